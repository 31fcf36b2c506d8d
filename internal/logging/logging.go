// Package logging provides the engine's leveled logger. The level is passed
// in by the caller; project configuration carries no log level.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is one of debug|info|warn|error.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// New builds a slog.Logger writing text-formatted records to w at the given
// level. An unrecognised level falls back to info.
func New(w io.Writer, level Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: toSlogLevel(level)}))
}

// NewDefault builds a logger writing to stderr at info level, used by
// components constructed outside of a fully loaded project configuration.
func NewDefault() *slog.Logger {
	return New(os.Stderr, LevelInfo)
}

func toSlogLevel(level Level) slog.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
