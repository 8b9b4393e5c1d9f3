package logging

import (
	"log/slog"
	"os"
	"strings"
)

const appName = "screening-engine"

// NewJSONLogger builds the process-wide JSON logger. Both binaries share the
// app attribute; service distinguishes the api from the worker in aggregated
// log streams.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("app", appName, "service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
