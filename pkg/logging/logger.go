// Package logging provides structured logging for the sampler and its
// supporting packages.
//
// It is adapted from a multi-destination logger design: stderr by default
// (so a library embedded in a CLI behaves like a well-mannered Unix tool),
// with an optional file sink for long-running sampler processes that want
// a durable log alongside their checkpoint directory.
//
// # Basic usage
//
//	logger := logging.Default()
//	logger.Info("sampler starting", "num_threads", opts.NumThreads)
//
// # Per-thread/per-run fields
//
//	threadLog := logger.With("run_id", runID, "thread", threadIdx)
//	threadLog.Debug("cycle complete", "count_mcmc_steps", steps)
package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Level mirrors slog's levels under names that read naturally at call
// sites in this codebase.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level that will be emitted.
	Level Level
	// LogDir, if non-empty, additionally writes JSON log lines to
	// <LogDir>/<Service>.log. Created if it doesn't exist.
	LogDir string
	// Service names the component for the log-file name and as a
	// "service" field on every record.
	Service string
}

// Logger wraps *slog.Logger with a Close method for the optional file
// sink. Safe for concurrent use — slog.Logger already is, and Close is
// expected to run once at process shutdown.
type Logger struct {
	*slog.Logger
	mu   sync.Mutex
	file *os.File
}

// Default returns a Logger that writes text-formatted records to stderr
// at Info level and above.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

// New constructs a Logger per Config. An empty LogDir writes to stderr
// only.
func New(cfg Config) *Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level}),
	}

	l := &Logger{}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err == nil {
			name := cfg.Service
			if name == "" {
				name = "sampler"
			}
			path := filepath.Join(cfg.LogDir, name+".log")
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				l.file = f
				handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.Level}))
			}
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = newFanoutHandler(handlers)
	}

	base := slog.New(handler)
	if cfg.Service != "" {
		base = base.With("service", cfg.Service)
	}
	l.Logger = base
	return l
}

// With returns a Logger with additional fields attached to every record,
// preserving the ability to Close the same underlying file sink.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// Close flushes and closes the optional file sink. Safe to call on a
// Logger with no file sink (no-op) and safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
