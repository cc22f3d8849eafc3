package observability

import (
	"log/slog"
	"os"

	"github.com/notapi/notapi/internal/config"
)

// LevelFromConfig maps a config log level to its slog equivalent.
func LevelFromConfig(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured logger using Go's log/slog. The returned
// LevelVar allows the config watcher to adjust verbosity at runtime without
// rebuilding the handler chain.
func NewLogger(level config.LogLevel, format config.LogFormat) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(LevelFromConfig(level))

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == config.LogFormatText {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), lvl
}
