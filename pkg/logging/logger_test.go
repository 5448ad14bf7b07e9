package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"warning alias", "WARNING", slog.LevelWarn},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level (info is higher)")
	}
	if logger.Logger == nil {
		t.Fatal("Default() returned Logger with nil slog.Logger")
	}

	logger2 := Default()
	if logger == logger2 {
		t.Error("Default() returned the same instance twice - expected new instances")
	}
}

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug").With("session_id", "abc")
	logger.Debug("booked", "appointment_id", 7)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "booked" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["session_id"] != "abc" {
		t.Fatalf("expected session_id attribute, got %v", line["session_id"])
	}
	if line["appointment_id"] != float64(7) {
		t.Fatalf("expected appointment_id attribute, got %v", line["appointment_id"])
	}
}

func TestDiscardDropsOutput(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("discard logger should not enable info")
	}
	var nilLogger *Logger
	child := nilLogger.With("k", "v")
	child.Error("still safe")
}
