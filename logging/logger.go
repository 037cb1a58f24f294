// Package logging builds the demoseed slog loggers and captures the records
// of a run so the schedule server can show them per step.
//
// Example usage:
//
//	logger, closeLog, err := logging.New(cfg.Logging)
//	if err != nil {
//		return err
//	}
//	defer closeLog()
//	logger, runID := logging.ForRun(logger)
//	logger.Info("seeding", "database", cfg.Target.Database)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/demoseed/config"
)

const (
	// RunIDKey tags every record of one seeding run.
	RunIDKey = "run_id"
	// ComponentKey names the subsystem that logged a record.
	ComponentKey = "component"
)

// New creates the process logger described by cfg. The returned func closes
// the log file when Output names one, and is a no-op otherwise.
func New(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		_ = closer()
		return nil, nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	return slog.New(handler), closer, nil
}

// ParseLevel converts a configured level name to a slog.Level. An empty
// name is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch output {
	case "", "stdout":
		return os.Stdout, noop, nil
	case "stderr":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %q: %w", output, err)
		}
		return f, f.Close, nil
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ForRun tags logger with a new run id and returns both.
func ForRun(logger *slog.Logger) (*slog.Logger, string) {
	id := NewRunID()
	return logger.With(RunIDKey, id), id
}

// Component tags logger with the subsystem name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(ComponentKey, name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
