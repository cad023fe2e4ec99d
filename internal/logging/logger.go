package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Kurukshetran/nl2sql/internal/config"
)

const (
	logDirPerm  = 0755
	logFilePerm = 0644
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Logger bundles the slog logger with the file it may write to
type Logger struct {
	*slog.Logger

	file *os.File
}

// NewLogger creates a logger with the given configuration
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	var (
		output io.Writer
		file   *os.File
	)

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	case "file":
		if cfg.File == "" {
			return nil, errors.New("log file path is required when output is 'file'")
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		file = f
		output = f
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	return &Logger{
		Logger: slog.New(NewHandler(output, cfg)),
		file:   file,
	}, nil
}

// NewHandler builds the slog handler for the configured format and level
func NewHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// ParseLevel parses a string log level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Install makes the logger the process default
func (l *Logger) Install() {
	slog.SetDefault(l.Logger)
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}

	return nil
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDefault returns logger, or slog.Default() when it is nil
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}

// ContextWithRequestID attaches a request id used to correlate log records
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached to ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}

	return value
}

// FromContext returns logger annotated with the request id carried by ctx
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	logger = OrDefault(logger)
	if id := RequestIDFromContext(ctx); id != "" {
		return logger.With(slog.String("request_id", id))
	}

	return logger
}

// Operation wraps fn with start/finish records and its duration
func Operation(ctx context.Context, logger *slog.Logger, operation string, fn func() error) error {
	logger = FromContext(ctx, logger).With(slog.String("operation", operation))
	logger.DebugContext(ctx, "Starting operation")

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.ErrorContext(ctx, "Operation failed",
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)
	} else {
		logger.DebugContext(ctx, "Operation completed successfully",
			slog.Duration("duration", duration),
		)
	}

	return err
}
