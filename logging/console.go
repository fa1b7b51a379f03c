package logging

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	// JSON 为 true 时每行输出一个 JSON 对象
	JSON   bool
	Output io.Writer
	// BufferSize 大于 0 时启用缓冲写出（字节），由 Close 刷新
	BufferSize int
}

// ConsoleLoggerProvider 控制台日志提供者
type ConsoleLoggerProvider struct {
	*ZapLoggerProvider
	buffered *zapcore.BufferedWriteSyncer
}

// NewConsoleLoggerProvider 创建控制台日志提供者
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.TimestampFormat == "" {
		options.TimestampFormat = "2006-01-02 15:04:05"
	}

	encCfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "category",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(options.TimestampFormat),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	if options.IncludeTimestamp {
		encCfg.TimeKey = "time"
	}

	var encoder zapcore.Encoder
	if options.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		if options.ColorOutput {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	p := &ConsoleLoggerProvider{}
	ws := zapcore.Lock(zapcore.AddSync(options.Output))
	if options.BufferSize > 0 {
		p.buffered = &zapcore.BufferedWriteSyncer{WS: ws, Size: options.BufferSize, FlushInterval: time.Second}
		ws = p.buffered
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	p.ZapLoggerProvider = newZapProvider(zap.New(zapcore.NewCore(encoder, ws, level)), level)
	return p
}

// Close 刷新缓冲（如果启用）
func (p *ConsoleLoggerProvider) Close() error {
	if p.buffered != nil {
		return p.buffered.Stop()
	}
	return p.Sync()
}
