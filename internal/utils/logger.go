package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
func NewLogger(level string, json bool) *slog.Logger {
	return NewLoggerTo(os.Stdout, level, json)
}

// NewLoggerTo is NewLogger with an explicit destination, used by tests.
func NewLoggerTo(w io.Writer, level string, json bool) *slog.Logger {
	handlerLevel, ok := levelNames[strings.ToLower(level)]
	if !ok {
		handlerLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: handlerLevel}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
