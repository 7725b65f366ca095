// Package logging builds the process logger from the logging configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AntonStoeckl/library-loans-go/shell/config"
)

const serviceName = "library-loans"

// New creates a slog logger writing to the configured output.
// Every record carries the service name and version.
func New(cfg config.LoggingConfig, version string) *slog.Logger {
	return NewWithWriter(cfg, version, outputFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)
}

// ParseLevel converts debug, info, warn or error to a slog.Level. Unknown values yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func outputFor(output string) io.Writer {
	if strings.ToLower(output) == "stdout" {
		return os.Stdout
	}

	return os.Stderr
}
