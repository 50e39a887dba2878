// Package logging builds the leveled console logger shared by every layer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Options holds configuration for a logger.
type Options struct {
	Level           string
	Prefix          string
	Formatter       log.Formatter
	ReportTimestamp bool
}

// DefaultOptions returns options for interactive CLI use.
func DefaultOptions() Options {
	return Options{
		Level:     "info",
		Prefix:    "todo",
		Formatter: log.TextFormatter,
	}
}

// ParseLevel accepts debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (log.Level, error) {
	if strings.TrimSpace(s) == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          opts.Prefix,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
	}), nil
}

// OpenFile creates a logger appending to path. The TUI uses it because
// stderr belongs to the alternate screen while the program runs.
// The returned closer must be called when done.
func OpenFile(path string, opts Options) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	opts.ReportTimestamp = true
	opts.Formatter = log.LogfmtFormatter
	l, err := New(f, opts)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return l, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
