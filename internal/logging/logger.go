// Package logging builds the slog loggers the engine and CLI share.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger at the given level. Output goes to stderr so a
// run streamed on stdout stays machine-readable. The "error" attribute key
// is rewritten to "err", keeping log lines uniform across packages.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, options(level)))
}

// NewNop returns a logger that discards everything. Engine compilation
// defaults to it when no logger is configured.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func options(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}
