// Package logging builds the launcher's slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Options struct {
	// Level is one of error, warn, info or debug. Anything else means warn.
	Level string
	// Dir, when set, receives a per-run log file instead of Stderr.
	Dir string
	// OTLPEndpoint, when set, additionally exports records over OTLP/HTTP.
	OTLPEndpoint string
	// Stderr is the default log target. Defaults to os.Stderr.
	Stderr io.Writer
}

// ShutdownFunc flushes and releases whatever Setup opened.
type ShutdownFunc func(ctx context.Context) error

// ParseLevel maps a level name to a slog.Level, defaulting to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelWarn // Default to warn if invalid level
	}
}

// Setup creates a slog logger with the specified level and targets. The
// returned ShutdownFunc must be called before the process exits.
func Setup(ctx context.Context, opts Options) (*slog.Logger, ShutdownFunc, error) {
	level := ParseLevel(opts.Level)

	var closers []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	logTarget := opts.Stderr
	if logTarget == nil {
		logTarget = os.Stderr
	}

	if opts.Dir != "" {
		logFile, err := openLogFile(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func(context.Context) error { return logFile.Close() })

		// Set the log target to the file rather than stderr.
		logTarget = logFile
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(logTarget, &slog.HandlerOptions{
			Level: level,
		}),
	}

	if opts.OTLPEndpoint != "" {
		otelHandler, otelShutdown, err := newOTLPHandler(ctx, opts.OTLPEndpoint, level)
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, fmt.Errorf("could not set up OTLP log export: %w", err)
		}
		closers = append(closers, otelShutdown)
		handlers = append(handlers, otelHandler)
	}

	return slog.New(newFanoutHandler(handlers...)), shutdown, nil
}

func openLogFile(dir string) (*os.File, error) {
	// Set up the logging directory if it doesn't exist yet
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not set up log dir %s: %w", dir, err)
	}

	// Timestamp and pid keep concurrent kernels from sharing a file.
	name := fmt.Sprintf("swiftkernel-%s-%d.log",
		time.Now().Format("2006-01-02_15-04-05"),
		os.Getpid())

	logFile, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("could not create log file %s: %w", name, err)
	}
	return logFile, nil
}
