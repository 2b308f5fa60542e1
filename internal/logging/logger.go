package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON slog logger writing to stdout at the given level.
// The handler is returned so callers can fan it out together with other
// sinks once those are available.
func Setup(level slog.Level) slog.Handler {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return handler
}

// LevelFromEnv reads LOG_LEVEL (debug, info, warn, error), defaulting to info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
