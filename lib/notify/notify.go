// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers user-facing notifications (toasts) from the
// stores to whichever surface is showing them: the terminal UI, the
// CLI's stderr, or a test recorder.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// DefaultDuration is how long a notification stays visible when the
// sender does not say otherwise.
const DefaultDuration = 3 * time.Second

// Notification is one message for the user.
type Notification struct {
	Kind     Kind
	Message  string
	Duration time.Duration
}

// Dispatcher accepts notifications. Implementations must be safe for
// concurrent use and must not block.
type Dispatcher interface {
	Notify(ctx context.Context, notification Notification)
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, notification Notification)

func (f Func) Notify(ctx context.Context, notification Notification) { f(ctx, notification) }

// Discard drops every notification.
var Discard Dispatcher = Func(func(context.Context, Notification) {})

// Send is shorthand for building a Notification with the default
// duration. A nil dispatcher is treated as Discard.
func Send(ctx context.Context, dispatcher Dispatcher, kind Kind, format string, args ...any) {
	SendFor(ctx, dispatcher, kind, DefaultDuration, format, args...)
}

// SendFor is Send with an explicit duration.
func SendFor(ctx context.Context, dispatcher Dispatcher, kind Kind, duration time.Duration, format string, args ...any) {
	if dispatcher == nil {
		return
	}
	dispatcher.Notify(ctx, Notification{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Duration: duration,
	})
}

// Writer prints notifications as lines on w, prefixed by kind.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer dispatcher.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Notify(_ context.Context, notification Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, "%s %s\n", symbol(notification.Kind), notification.Message)
}

func symbol(kind Kind) string {
	switch kind {
	case Success:
		return "✓"
	case Error:
		return "✗"
	case Warning:
		return "!"
	default:
		return "i"
	}
}

// Logged forwards to next and records every notification on logger.
func Logged(next Dispatcher, logger *slog.Logger) Dispatcher {
	logger = logging.OrDiscard(logger)
	return Func(func(ctx context.Context, notification Notification) {
		level := slog.LevelInfo
		if notification.Kind == Error {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "notification", "kind", notification.Kind, "message", notification.Message)
		if next != nil {
			next.Notify(ctx, notification)
		}
	})
}

// Recorder keeps every notification. Tests use it to assert on what
// the user would have seen.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, notification Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Last returns the most recent notification and whether there was
// one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}
