package main

import (
	"io"
	"log/slog"
	"strings"

	cfg "github.com/example/authapi/internal/config"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// newLogger builds a text logger for development and a JSON logger in production.
func newLogger(c *cfg.Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}

	var logger *slog.Logger
	if c.IsProduction() {
		logger = slog.New(slog.NewJSONHandler(out, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(out, opts))
	}

	return logger.With("service", c.ServiceName)
}
