// Package logging builds the slog.Logger every command and internal
// package logs through. Grounded on gnames-gndb/pkg/logger: the same
// level-parsing plus format-switch (json/text/tint) shape, with tint as
// the default handler for interactive terminal output.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Config mirrors the [logging] table of psqlpack.toml (SPEC_FULL.md §B).
type Config struct {
	Level  string
	Format string
}

// New builds a *slog.Logger per cfg. Invalid or empty Level/Format fall
// back to Info and tint respectively, matching the teacher's defaulting.
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	}

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level. Unrecognized
// values default to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
