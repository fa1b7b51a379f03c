package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerProvider 基于 zap 的日志提供者，控制台输出与生产环境共用
type ZapLoggerProvider struct {
	base    *zap.Logger
	level   zap.AtomicLevel
	minimum *atomic.Int32
}

// NewZapLoggerProvider 使用已有的 zap.Logger 创建提供者
// base 为 nil 时使用 zap.NewProduction 的配置
func NewZapLoggerProvider(base *zap.Logger) (*ZapLoggerProvider, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if base == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		base = l
	}
	return newZapProvider(base, level), nil
}

func newZapProvider(base *zap.Logger, level zap.AtomicLevel) *ZapLoggerProvider {
	p := &ZapLoggerProvider{base: base, level: level, minimum: new(atomic.Int32)}
	p.minimum.Store(int32(LogLevelInfo))
	return p
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	l := p.base
	if category != "" {
		l = l.Named(category)
	}
	return &zapLogger{l: l, minimum: p.minimum}
}

// SetMinimumLevel 同时调整 zap 的级别；Trace 在 zap 中按 Debug 处理，由 minimum 单独过滤
func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.minimum.Store(int32(level))
	p.level.SetLevel(toZapLevel(level))
}

// Sync 刷新 zap 缓冲
func (p *ZapLoggerProvider) Sync() error {
	return p.base.Sync()
}

type zapLogger struct {
	l       *zap.Logger
	minimum *atomic.Int32
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

// Fatal 写出后由 zap 退出进程
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.Log(LogLevelFatal, msg, fields...) }

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < LogLevel(l.minimum.Load()) {
		return
	}
	if ce := l.l.Check(toZapLevel(level), msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{l: l.l.With(toZapFields(fields)...), minimum: l.minimum}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{l: l.l.Named(category), minimum: l.minimum}
}

// toZapLevel zap 没有 Trace，映射到 Debug
func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			zf = append(zf, zap.NamedError(f.Key, err))
			continue
		}
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}
