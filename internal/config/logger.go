package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger for the given environment. Production
// writes JSON at info level for the log shipper; everything else writes
// human-readable text at debug level with source locations. Every record
// carries the service name so shared log streams stay attributable.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	var handler slog.Handler
	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(slog.String("service", "facefit-api"))
}
