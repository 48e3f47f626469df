package logger

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Init configures the process-wide JSON logger and installs it as the
// slog default. The level comes from PF_LOG_LEVEL, with LOG_LEVEL as a
// fallback; debug also records source positions. Call from main before
// anything logs.
func Init() {
	level := parseLevel(levelFromEnv())

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func levelFromEnv() string {
	if v := os.Getenv("PF_LOG_LEVEL"); v != "" {
		return v
	}
	return os.Getenv("LOG_LEVEL")
}

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

// Default returns the process logger, initializing it on first use so
// code paths that log before main runs Init still get JSON output.
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init()
	}
	return defaultLogger
}
