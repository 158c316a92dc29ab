package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bbasli/bdrive/config"
)

var level = new(slog.LevelVar)

// Setup installs the process-wide slog logger.
func Setup(cfg config.LogConfig) {
	SetupWriter(cfg, os.Stdout)
}

func SetupWriter(cfg config.LogConfig, w io.Writer) {
	SetLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

func IsDebugEnabled() bool {
	return slog.Default().Enabled(context.Background(), slog.LevelDebug)
}

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String("component", name))
}
