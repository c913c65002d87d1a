package observability

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger builds the process logger. Format "json" emits structured JSON
// for log shippers; anything else gets a tinted console handler for local
// runs. The logger is passed down explicitly — no package mutates the global
// slog default.
func NewLogger(level, format string) *slog.Logger {
	lvl := parseLevel(level)

	if format == "json" {
		h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
		return slog.New(h).With("app", "farm-survey-etl")
	}

	h := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})
	return slog.New(h).With("app", "farm-survey-etl")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
