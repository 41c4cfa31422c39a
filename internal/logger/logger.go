package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alenjb/deli/internal/models"
)

var base = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Setup replaces the process-wide base logger according to the log section of the config.
func Setup(cfg models.LogConfig) {
	base = slog.New(newHandler(os.Stdout, cfg))
	slog.SetDefault(base)
}

// New returns a logger tagged with the service component and host name.
func New(service string) *slog.Logger {
	return base.With(
		slog.String("service", service),
		slog.String("hostname", hostname()),
	)
}

// Discard is a logger that drops every record. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, cfg models.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
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

func hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
