// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process-wide slog logger and the
// per-component child loggers every store and client derives from it.
//
// The root logger writes human-readable text when its output is a
// terminal and JSON otherwise. Components never create their own
// handler; they take a *slog.Logger and scope it with [Component].
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Format selects the handler used by New.
type Format string

const (
	// FormatAuto picks text for terminals and JSON for everything else.
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	// Level is the minimum level emitted. The zero value is Info.
	Level slog.Level

	// Format defaults to FormatAuto.
	Format Format

	// Output defaults to os.Stderr.
	Output io.Writer

	// Environment, when non-empty, is attached to every record as
	// "env".
	Environment string
}

// New builds the root logger.
func New(options Options) *slog.Logger {
	output := options.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOptions := &slog.HandlerOptions{Level: options.Level}
	var handler slog.Handler
	if useText(options.Format, output) {
		handler = slog.NewTextHandler(output, handlerOptions)
	} else {
		handler = slog.NewJSONHandler(output, handlerOptions)
	}

	logger := slog.New(handler)
	if options.Environment != "" {
		logger = logger.With("env", options.Environment)
	}
	return logger
}

func useText(format Format, output io.Writer) bool {
	switch format {
	case FormatText:
		return true
	case FormatJSON:
		return false
	}
	file, ok := output.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// Discard returns a logger that drops every record. Libraries fall
// back to it when the caller passes a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or Discard() when logger is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// Component derives a child logger tagged with component=name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return OrDiscard(logger).With("component", name)
}

// ParseLevel accepts debug, info, warn and error, case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
}

// Call records the outcome of one remote actor call at debug level on
// success and warn level on failure.
func Call(ctx context.Context, logger *slog.Logger, actor, method string, elapsed time.Duration, err error) {
	if err != nil {
		logger.WarnContext(ctx, "actor call failed",
			"actor", actor,
			"method", method,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	logger.DebugContext(ctx, "actor call",
		"actor", actor,
		"method", method,
		"elapsed", elapsed,
	)
}

// UserAction records an intent dispatched from the presentation
// layer.
func UserAction(ctx context.Context, logger *slog.Logger, action string, attrs ...any) {
	logger.InfoContext(ctx, "user action", append([]any{"action", action}, attrs...)...)
}

// AuthEvent records a session lifecycle transition.
func AuthEvent(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	logger.InfoContext(ctx, "auth event", append([]any{"event", event}, attrs...)...)
}
