package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: level, Format: format, Writer: &buf, Component: "test"})
	require.NoError(t, err)
	return logger, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"", InfoLevel},
		{"warning", WarnLevel},
		{" error ", ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLogger_RedactsCredentials(t *testing.T) {
	logger, buf := newBufferLogger(t, DebugLevel, "json")

	logger.Info("login", "password", "s3cret", "omero.pass", "public", "user", "public")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[REDACTED]", entry["password"])
	assert.Equal(t, "[REDACTED]", entry["omero.pass"])
	assert.Equal(t, "public", entry["user"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, WarnLevel, "text")

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
}

func TestLogger_WithComponent(t *testing.T) {
	logger, buf := newBufferLogger(t, InfoLevel, "text")

	logger.WithComponent("connect").Info("hello")

	assert.True(t, strings.Contains(buf.String(), "component=connect"), buf.String())
}

func TestLogger_LogOperation(t *testing.T) {
	logger, buf := newBufferLogger(t, DebugLevel, "text")

	require.NoError(t, logger.LogOperation("write_metrics", func() error { return nil }))
	assert.Contains(t, buf.String(), "Operation completed")
	assert.Contains(t, buf.String(), "operation=write_metrics")

	buf.Reset()
	err := logger.LogOperation("write_metrics", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, buf.String(), "Operation failed")
}
