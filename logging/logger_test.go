package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleProvider_Buffered(t *testing.T) {
	var buf bytes.Buffer
	writer := &syncWriter{buf: &buf, mu: &sync.Mutex{}}
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: writer, BufferSize: 4096})

	logger := provider.CreateLogger("Buffered")
	for i := 0; i < 5; i++ {
		logger.Info("Async")
	}

	// 关闭以刷新
	if err := provider.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(writer.String()), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(lines))
	}
}

type syncWriter struct {
	buf *bytes.Buffer
	mu  *sync.Mutex
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func BenchmarkConsoleLogging(b *testing.B) {
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: io.Discard, BufferSize: 256 * 1024})
	defer provider.Close()
	logger := provider.CreateLogger("bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("Benchmark", Field{Key: "i", Value: i})
	}
}

func TestConsoleProvider_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	builder := NewLoggingBuilder().SetMinimumLevel(LogLevelDebug)
	builder.AddConsole(ConsoleLoggerOptions{Output: &buf})
	factory := builder.Build()

	logger := factory.CreateLogger("Injector").WithFields(Field{Key: "definition", Value: "Service"})
	logger.Trace("hidden")
	logger.Debug("resolved", Field{Key: "scope", Value: "singleton"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Trace should be filtered at Debug level")
	}
	for _, want := range []string{"DEBUG Injector resolved", `"definition": "Service"`, `"scope": "singleton"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output: %q", want, out)
		}
	}
}

func TestConsoleProvider_JSON(t *testing.T) {
	var buf bytes.Buffer
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &buf, JSON: true})
	provider.CreateLogger("Events").Warn("handler skipped", Field{Key: "error", Value: io.EOF})

	var data map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &data); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if data["level"] != "WARN" || data["category"] != "Events" {
		t.Errorf("unexpected entry: %v", data)
	}
	if data["error"] != "EOF" {
		t.Errorf("expected error rendered as string, got %v", data["error"])
	}
}

func TestCompositeLogger_FieldsNotShared(t *testing.T) {
	var buf bytes.Buffer
	provider := NewConsoleLoggerProvider(ConsoleLoggerOptions{Output: &buf})
	base := NewCompositeLogger([]Logger{provider.CreateLogger("c")}, LogLevelInfo, "c").
		WithFields(Field{Key: "a", Value: 1})

	left := base.WithFields(Field{Key: "b", Value: 2})
	right := base.WithFields(Field{Key: "c", Value: 3})
	left.Info("left")
	right.Info("right")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if strings.Contains(lines[1], `"b"`) {
		t.Errorf("fields leaked between derived loggers: %q", lines[1])
	}
}

func TestZapProvider(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider, err := NewZapLoggerProvider(zap.New(core))
	if err != nil {
		t.Fatalf("NewZapLoggerProvider failed: %v", err)
	}
	provider.SetMinimumLevel(LogLevelWarn)

	logger := provider.CreateLogger("Events")
	logger.Info("dropped")
	logger.Error("handler failed", Field{Key: "priority", Value: "HIGH"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "Events" {
		t.Errorf("expected logger name Events, got %s", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["priority"] != "HIGH" {
		t.Errorf("expected priority field, got %v", entries[0].ContextMap())
	}
}

func TestNop(t *testing.T) {
	l := Nop().WithCategory("x").WithFields(Field{Key: "k", Value: "v"})
	l.Info("nothing")
	l.Error("nothing")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{"debug": LogLevelDebug, "WARN": LogLevelWarn, "error": LogLevelError}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Error("expected unknown level to fail")
	}
}
