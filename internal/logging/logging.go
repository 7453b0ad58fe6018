// Package logging configures the process-wide *slog.Logger once at the
// composition root. Every other package accepts a *slog.Logger (or uses
// slog.Default()) rather than importing this package, following the
// teacher's convention of threading *slog.Logger through daemon/sync
// functions instead of a logging facade.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and level for New.
type Config struct {
	// Format is "json" or "text". Defaults to "json" for non-interactive
	// CLI output consistency with the NDJSON/JSON command results
	// (spec.md §6).
	Format string
	Level  slog.Level
	Output io.Writer
}

// New builds a *slog.Logger per cfg and installs it as the process
// default, mirroring cmd/bd's slog.Default() usage at call sites that
// don't carry their own logger.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything, for tests and dry-run
// tooling that shouldn't write to stderr.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
