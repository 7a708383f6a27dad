// Package logger builds the forecaster's slog logger from configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/HatiCode/analogcast/cmd/forecaster/config"
)

// New returns a logger writing to stderr so stdout stays free for the
// forecast output.
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter returns a logger writing to w. LogFormat "json" selects the
// JSON handler; anything else uses text.
func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("component", "forecaster")
}

// ParseLevel maps debug, info, warn and error to slog levels, defaulting
// to info.
func ParseLevel(s string) slog.Level {
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
