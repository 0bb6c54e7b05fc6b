// Package logging configures the process-wide structured logger and carries
// request-scoped loggers through context values. Handlers log JSON by default
// so output is machine-parseable in server deployments; set LOG_FORMAT=text
// for local development.
//
// Environment variables:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// loggerKey is the context key type for the request-scoped logger.
type loggerKey struct{}

// New builds a [*slog.Logger] writing to stderr, configured from LOG_LEVEL
// and LOG_FORMAT.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// levelFromEnv parses LOG_LEVEL, defaulting to info on anything unrecognised.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

// WithLogger returns a copy of ctx carrying logger for downstream callees.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or [slog.Default] when none
// is present, so call sites never need a nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
