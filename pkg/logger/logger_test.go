package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		level zapcore.Level
	}{
		{name: "debug json", cfg: Config{Level: "debug", Encoding: "json"}, level: zapcore.DebugLevel},
		{name: "warn console", cfg: Config{Level: "warn", Encoding: "console"}, level: zapcore.WarnLevel},
		{name: "unknown level falls back to info", cfg: Config{Level: "loud"}, level: zapcore.InfoLevel},
		{name: "development", cfg: Config{Level: "debug", Encoding: "console", Service: "tikshop", Development: true}, level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			if !log.Core().Enabled(tt.level) {
				t.Errorf("level %s should be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && log.Core().Enabled(tt.level-1) {
				t.Errorf("level %s should be disabled", tt.level-1)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Errorf("RequestID() = %q, want abc", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID() = %q, want empty", got)
	}
	if WithRequestID(context.Background(), nil) != nil {
		t.Error("WithRequestID(nil logger) should return nil")
	}
}

func TestNamed(t *testing.T) {
	if Named(nil, "catalog") == nil {
		t.Fatal("Named(nil) returned nil")
	}
	base, err := New(Config{Level: "info", Service: "tikshop"})
	if err != nil {
		t.Fatalf("New() unexpected error = %v", err)
	}
	if Named(base, "catalog") == base {
		t.Error("Named() should return a child logger")
	}
}
