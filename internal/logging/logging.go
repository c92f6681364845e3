// Package logging builds the client logger. The TUI owns stdout, so log
// output goes to a file in the data directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// New returns a JSON logger appending to the given file, plus a closer for
// the underlying handle. SHOPFRONT_LOG_FORMAT=console switches to a
// human-readable handler for debugging.
func New(path string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if os.Getenv("SHOPFRONT_LOG_LEVEL") == "debug" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewJSONHandler(file, opts)
	if os.Getenv("SHOPFRONT_LOG_FORMAT") == "console" {
		handler = slog.NewTextHandler(file, opts)
	}
	return slog.New(handler), file, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
