package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, level Level, opts ...Option) (*BaseLogger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Format = JSONFormat
	cfg.EnableConsole = false

	l, err := New(cfg, append(opts, WithWriter(&buf))...)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to parse log output %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestNew 测试创建 Logger
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config uses default", config: nil},
		{name: "valid minimal config", config: &Config{Level: InfoLevel, Format: JSONFormat}},
		{
			name:    "file enabled but no path",
			config:  &Config{EnableFile: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

// TestLoggerKeyValues 测试 key-value 字段
func TestLoggerKeyValues(t *testing.T) {
	l, buf := newBufferLogger(t, DebugLevel)

	l.Info("session connected", "session_id", "abc", "remote", "127.0.0.1:5000")
	l.Warn("accept failed", zap.Int("code", 24))
	l.Error("odd pair", "dangling")

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0]["session_id"] != "abc" || entries[0]["remote"] != "127.0.0.1:5000" {
		t.Errorf("Unexpected fields: %v", entries[0])
	}
	if entries[1]["code"] != float64(24) {
		t.Errorf("Expected code=24, got %v", entries[1]["code"])
	}
	if entries[2]["dangling"] != "(MISSING)" {
		t.Errorf("Expected missing marker, got %v", entries[2]["dangling"])
	}
}

// TestLoggerSetLevel 测试动态调整等级
func TestLoggerSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)
	named := l.Named("tcp.server")

	named.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Debug should be filtered at info level: %s", buf.String())
	}

	l.SetLevel(DebugLevel)
	if l.Level() != DebugLevel {
		t.Errorf("Expected level debug, got %s", l.Level())
	}

	// 派生 logger 共享等级
	named.Debug("visible")
	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0]["logger"] != "tcp.server" {
		t.Errorf("Expected logger name tcp.server, got %v", entries[0]["logger"])
	}
}

// TestLoggerWithFields 测试 WithFields 与全局字段
func TestLoggerWithFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel, WithGlobalFields("app", "netcore"))

	derived := l.WithFields("listener", "net")
	if derived == Logger(l) {
		t.Error("WithFields() should return a new logger instance")
	}
	if l.WithFields() != Logger(l) {
		t.Error("WithFields() without fields should return the same logger")
	}

	derived.Info("bound")
	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0]["app"] != "netcore" || entries[0]["listener"] != "net" {
		t.Errorf("Unexpected fields: %v", entries[0])
	}
}

// TestLoggerContextExtractor 测试 context 字段提取
func TestLoggerContextExtractor(t *testing.T) {
	type ctxKey struct{}
	extractor := func(ctx context.Context) []zap.Field {
		if v, ok := ctx.Value(ctxKey{}).(string); ok {
			return []zap.Field{zap.String("trace_id", v)}
		}
		return nil
	}

	l, buf := newBufferLogger(t, InfoLevel, WithContextExtractor(extractor))
	ctx := context.WithValue(context.Background(), ctxKey{}, "t-1")
	l.InfoContext(ctx, "with trace", "k", "v")

	entries := decodeLines(t, buf)
	if entries[0]["trace_id"] != "t-1" || entries[0]["k"] != "v" {
		t.Errorf("Unexpected fields: %v", entries[0])
	}
}

// TestLoggerHooks 测试钩子
func TestLoggerHooks(t *testing.T) {
	var seen []string
	hook := MinLevelHook(zapcore.WarnLevel, HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		seen = append(seen, entry.Message)
		return entry.Message != "drop me"
	}))

	l, buf := newBufferLogger(t, DebugLevel, WithHooks(hook))
	l.Info("below threshold")
	l.Warn("drop me")
	l.Error("keep me")

	if len(seen) != 2 {
		t.Fatalf("Expected hook to see 2 entries, got %v", seen)
	}
	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 written entries, got %d", len(entries))
	}
	if entries[1]["msg"] != "keep me" {
		t.Errorf("Unexpected entry: %v", entries[1])
	}
}

// TestLoggerFileRotation 测试文件输出
func TestLoggerFileRotation(t *testing.T) {
	for _, rotation := range []RotationType{RotationBySize, RotationByTime} {
		t.Run(string(rotation), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "netcore.log")
			cfg := DefaultConfig()
			cfg.Format = JSONFormat
			cfg.EnableConsole = false
			cfg.EnableFile = true
			cfg.OutputPath = path
			cfg.Rotation.Type = rotation

			l, err := New(cfg)
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}
			l.Info("written to file")
			_ = l.Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read log file: %v", err)
			}
			if !strings.Contains(string(data), "written to file") {
				t.Errorf("Log file missing entry: %s", data)
			}
		})
	}
}

// TestDefaultLogger 测试默认 logger
func TestDefaultLogger(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	l, buf := newBufferLogger(t, InfoLevel)
	SetDefault(l)
	if Default() != l {
		t.Fatal("SetDefault() did not update default logger")
	}

	Info("via default", "k", 1)
	Named("child").Info("via named")
	WithFields("x", "y").Info("via fields")

	if got := len(decodeLines(t, buf)); got != 3 {
		t.Errorf("Expected 3 entries, got %d", got)
	}
}

// TestNoopLogger 测试空日志
func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoop()
	l.Info("nothing")
	if l.Named("x") != l || l.WithFields("a", 1) != l {
		t.Error("NoopLogger should return itself")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}

// TestHookSeesBoundFields 钩子能看到 WithFields 绑定的字段
func TestHookSeesBoundFields(t *testing.T) {
	var got map[string]interface{}
	hook := HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		got = enc.Fields
		return true
	})

	l, buf := newBufferLogger(t, InfoLevel, WithHooks(hook))
	l.WithFields("session", "s-1").Info("bound", "bytes", 3)

	if got["session"] != "s-1" || got["bytes"] != int64(3) {
		t.Errorf("Unexpected hook fields: %v", got)
	}
	entries := decodeLines(t, buf)
	if entries[0]["session"] != "s-1" {
		t.Errorf("Bound field missing from output: %v", entries[0])
	}
}

// TestContextWithFields 测试默认提取器
func TestContextWithFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	ctx := ContextWithFields(context.Background(), zap.String("remote", "127.0.0.1:1"))
	ctx = ContextWithFields(ctx, zap.Int("port", 7000))
	l.InfoContext(ctx, "accepted")

	entries := decodeLines(t, buf)
	if entries[0]["remote"] != "127.0.0.1:1" || entries[0]["port"] != float64(7000) {
		t.Errorf("Unexpected fields: %v", entries[0])
	}
	if FieldsFromContext(context.Background()) != nil {
		t.Error("Expected no fields on empty context")
	}
}
