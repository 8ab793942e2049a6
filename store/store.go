// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package store holds what the client-side state stores share: the
// local validation error and the coalescing change signal.
//
// The stores themselves live in subpackages. Each one caches backend
// state for the presentation layer, changes its cache only after the
// backend acknowledges a mutation, and guards everything with a mutex
// so intents can arrive from any goroutine.
package store

import (
	"errors"
	"fmt"
)

// ValidationError is a local input problem detected before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// Signal is a coalescing change notification: any number of Notify
// calls between two receives deliver one value.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns an idle signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify records a change without blocking.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C receives once per batch of changes.
func (s *Signal) C() <-chan struct{} { return s.ch }
