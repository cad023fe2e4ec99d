package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewLoggerStdStreams(t *testing.T) {
	for _, output := range []string{"stdout", "stderr"} {
		t.Run(output, func(t *testing.T) {
			logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: output})
			require.NoError(t, err)
			require.NotNil(t, logger)

			assert.Nil(t, logger.file)
			assert.NoError(t, logger.Close())
		})
	}
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "nl2sql.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File:   logFile,
	})
	require.NoError(t, err)

	logger.Info("digest finished", slog.Int("tables", 3))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "digest finished", record["msg"])
	assert.InDelta(t, 3, record["tables"], 0)
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Output: "file"})
	assert.Error(t, err)

	_, err = NewLogger(config.LoggingConfig{Output: "syslog"})
	assert.Error(t, err)
}

func TestNewHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, config.LoggingConfig{Level: "warn", Format: "text"}))

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequestIDContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))

	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, config.LoggingConfig{Level: "info", Format: "text"}))
	FromContext(ctx, logger).Info("hello")

	assert.Contains(t, buf.String(), "request_id=req-1")
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), OrDefault(nil))

	logger := Discard()
	assert.Equal(t, logger, OrDefault(logger))
}

func TestOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, config.LoggingConfig{Level: "debug", Format: "text"}))

	err := Operation(context.Background(), logger, "plan", func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Operation completed successfully")
	assert.Contains(t, buf.String(), "operation=plan")

	buf.Reset()

	boom := errors.New("boom")
	err = Operation(context.Background(), logger, "generate", func() error { return boom })
	assert.ErrorIs(t, err, boom)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[len(lines)-1], "Operation failed")
	assert.Contains(t, lines[len(lines)-1], "error=boom")
}
