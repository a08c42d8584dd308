package logger

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with additional convenience methods.
type Logger struct {
	*slog.Logger
}

// New creates a new structured logger.
func New(level string) *Logger {
	var logLevel slog.Level
	switch level {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN", "warning", "WARNING":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// JSON in production, text in development.
	var handler slog.Handler
	if os.Getenv("ENVIRONMENT") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithComponent creates a logger with component context.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("component", component)),
	}
}

// WithError creates a logger with error context.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithJob creates a logger scoped to one discovery job.
func (l *Logger) WithJob(deviceID string, depth int) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("device_id", deviceID),
			slog.Int("depth", depth),
		),
	}
}

// StoreError logs a persistence operation failure.
func (l *Logger) StoreError(ctx context.Context, operation, collection string, err error) {
	l.Logger.ErrorContext(ctx, "store operation failed",
		slog.String("operation", operation),
		slog.String("collection", collection),
		slog.String("error", err.Error()),
	)
}

// ConnectAttempt logs an SSH connection attempt (direct or chained).
func (l *Logger) ConnectAttempt(ctx context.Context, mode, host string) {
	l.Logger.InfoContext(ctx, "ssh connect attempt",
		slog.String("mode", mode),
		slog.String("host", host),
	)
}

// ParseResult logs the outcome of a neighbor-output parse.
func (l *Logger) ParseResult(ctx context.Context, protocol string, linkCount int) {
	l.Logger.InfoContext(ctx, "parsed neighbor output",
		slog.String("protocol", protocol),
		slog.Int("link_count", linkCount),
	)
}

// Cascade logs a cascade-triggered re-scan.
func (l *Logger) Cascade(ctx context.Context, deviceCount int) {
	l.Logger.InfoContext(ctx, "cascade triggered",
		slog.Int("device_count", deviceCount),
	)
}
