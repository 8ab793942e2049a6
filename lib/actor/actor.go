// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package actor provides typed clients for the three backend actors:
// the content backend (profiles and posts), the social graph, and
// messaging.
//
// Most methods answer with a variant of {ok: T} or {err: text}. The
// clients unwrap it: ok becomes the return value and err becomes a
// *BackendError carrying the backend's reason verbatim. Transport
// failures pass through unchanged from the Caller.
package actor

import (
	"context"
	"errors"
	"fmt"
)

// Caller sends one method invocation to a canister. *agent.Agent
// satisfies it.
type Caller interface {
	Query(ctx context.Context, canisterID, method string, reply any, args ...any) error
	Call(ctx context.Context, canisterID, method string, reply any, args ...any) error
}

// BackendError is a rejection the backend expressed in its own result
// type, as opposed to a transport or replica failure.
type BackendError struct {
	Method string
	Reason string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Reason)
}

// Reason returns the backend's message when err is a *BackendError,
// and "" otherwise.
func Reason(err error) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Reason
	}
	return ""
}

// IsBackendError reports whether err wraps a *BackendError.
func IsBackendError(err error) bool {
	var backendErr *BackendError
	return errors.As(err, &backendErr)
}

// Result is the wire form of a fallible reply. Exactly one field is
// set.
type Result[T any] struct {
	Ok  *T      `cbor:"ok,omitempty"`
	Err *string `cbor:"err,omitempty"`
}

// Ok wraps a success value.
func Ok[T any](value T) Result[T] { return Result[T]{Ok: &value} }

// Err wraps a backend rejection.
func Err[T any](format string, args ...any) Result[T] {
	reason := fmt.Sprintf(format, args...)
	return Result[T]{Err: &reason}
}

func (r Result[T]) unwrap(method string) (T, error) {
	var zero T
	switch {
	case r.Err != nil:
		return zero, &BackendError{Method: method, Reason: *r.Err}
	case r.Ok == nil:
		return zero, fmt.Errorf("%s: reply carried neither ok nor err", method)
	}
	return *r.Ok, nil
}

// Unit is the empty success value of methods that return nothing.
type Unit struct{}

// endpoint binds a Caller to one canister.
type endpoint struct {
	caller     Caller
	canisterID string
}

func query[T any](ctx context.Context, e endpoint, method string, args ...any) (T, error) {
	var result Result[T]
	if err := e.caller.Query(ctx, e.canisterID, method, &result, args...); err != nil {
		var zero T
		return zero, err
	}
	return result.unwrap(method)
}

func call[T any](ctx context.Context, e endpoint, method string, args ...any) (T, error) {
	var result Result[T]
	if err := e.caller.Call(ctx, e.canisterID, method, &result, args...); err != nil {
		var zero T
		return zero, err
	}
	return result.unwrap(method)
}

// CanisterID returns the canister this client talks to.
func (e endpoint) CanisterID() string { return e.canisterID }
