package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout flow UI/JSON-RPC).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions(level)))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Options selects the handlers of NewWithOptions.
type Options struct {
	Level slog.Level
	// Format of the stderr handler: "text" (default) or "json".
	Format string
	// File, when set, additionally receives every record as JSON lines.
	File string
}

// NewWithOptions builds a logger that fans records out to stderr and, optionally, a JSON
// log file. The returned closer releases the file; it is a no-op without one.
func NewWithOptions(opts Options) (*slog.Logger, io.Closer, error) {
	var stderr slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		stderr = slog.NewTextHandler(os.Stderr, handlerOptions(opts.Level))
	case "json":
		stderr = slog.NewJSONHandler(os.Stderr, handlerOptions(opts.Level))
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File == "" {
		return slog.New(stderr), nopCloser{}, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := slog.NewJSONHandler(f, handlerOptions(opts.Level))
	return slog.New(slogmulti.Fanout(stderr, file)), f, nil
}

// ParseLevel maps "debug", "info", "warn" and "error" (any case) to a level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
