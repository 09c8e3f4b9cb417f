package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON logger. The configured level may be overridden by the
// LOG_LEVEL environment variable (default info).
func New(configured string) *slog.Logger {
	level := slog.LevelInfo
	if configured != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(configured)); err == nil {
			level = parsed
		}
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(env)); err == nil {
			level = parsed
		}
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
