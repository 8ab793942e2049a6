// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/agent"
	"github.com/chainedsocial/chainedsocial/session"
	"github.com/chainedsocial/chainedsocial/store"
)

// ErrorCategory says what the user can do about an error.
type ErrorCategory string

const (
	// CategoryValidation is bad input. Fix it and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound is a missing user, post, conversation or message.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden is a refusal by the backend: another user's
	// message, a privacy policy, an anonymous caller.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict is a clash with existing state, such as a taken
	// username.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient is a replica or identity provider that could
	// not be reached. Retrying later may work.
	CategoryTransient ErrorCategory = "transient"

	CategoryInternal ErrorCategory = "internal"
)

// exitCodes follow sysexits(3) where one fits.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 64,
	CategoryNotFound:   66,
	CategoryForbidden:  77,
	CategoryConflict:   65,
	CategoryTransient:  69,
	CategoryInternal:   70,
}

// ToolError is a command failure with its category.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation reports bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden reports a refused operation.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict reports a clash with existing state.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient reports a temporary failure.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal reports an unexpected failure.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError whose category comes from the
// error types the stores and actors return. A ToolError passes
// through unchanged and nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	return &ToolError{Category: categoryOf(err), Err: err}
}

func categoryOf(err error) ErrorCategory {
	if store.IsValidation(err) {
		return CategoryValidation
	}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case session.LocalBackendUnreachable, session.DelegationUnavailable, session.InitializationExhausted:
			return CategoryTransient
		}
		return CategoryInternal
	}

	if actor.IsBackendError(err) {
		reason := strings.ToLower(actor.Reason(err))
		switch {
		case strings.Contains(reason, "not found"):
			return CategoryNotFound
		case strings.Contains(reason, "already taken"):
			return CategoryConflict
		case strings.Contains(reason, "empty"), strings.Contains(reason, "must be"):
			return CategoryValidation
		case strings.Contains(reason, "only"), strings.Contains(reason, "cannot"),
			strings.Contains(reason, "not accepting"), strings.Contains(reason, "does not accept"):
			return CategoryForbidden
		}
		return CategoryValidation
	}

	var reject *agent.RejectError
	if errors.As(err, &reject) {
		if reject.Code == agent.RejectSysTransient {
			return CategoryTransient
		}
		return CategoryInternal
	}
	if agent.IsUnreachable(err) {
		return CategoryTransient
	}
	return CategoryInternal
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if code, ok := exitCodes[toolErr.Category]; ok {
			return code
		}
	}
	return 1
}
