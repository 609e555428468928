package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestHandler_FormatsComponentAndFields(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelInfo)).With(slog.String("component", "music"))

	l.Info("track started", "guild", "123")

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[MUSIC]")
	assert.Contains(t, out, "track started")
	assert.Contains(t, out, "guild=123")
	assert.NotContains(t, out, "component=")
}

func TestHandler_FiltersBelowLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelWarn))

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")
}
