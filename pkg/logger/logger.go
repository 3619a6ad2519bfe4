package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the root slog logger. Level accepts debug/info/warn/error,
// format accepts json or text.
func New(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LevelForMode maps an operating mode to a log level. The mode changes
// verbosity only, never extraction or reconciliation outcomes.
func LevelForMode(mode string) string {
	switch strings.ToLower(mode) {
	case "silent":
		return "warn"
	case "debug":
		return "debug"
	default: // detailed
		return "info"
	}
}
