// Package log provides the shared logging setup for askdoc.
//
// Loggers are passed to components via dependency injection, never held as
// package globals. Components that need scoped context call logger.With().
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so components depend on the standard type
// without a custom interface in between.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo.
	Level slog.Level

	// JSON switches output to JSON format. Default: text.
	JSON bool

	// AddSource includes source file positions in entries.
	AddSource bool
}

// New creates a logger writing to stderr. Stdout stays reserved for the
// interactive chat transcript.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture
// output in a buffer.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop returns a logger that discards everything. Tests only.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
