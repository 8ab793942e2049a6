// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry runs an operation a bounded number of times with a
// fixed pause between attempts. Session bootstrap is the only caller;
// nothing else in the client retries on its own.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	Attempts int

	// Backoff is the fixed pause between consecutive tries.
	Backoff time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// ExhaustedError reports that every attempt failed. Last is the error
// from the final attempt.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it immediately without
// further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do calls op until it succeeds, returns a Permanent error, ctx is
// done, or the policy's attempts are spent. The attempt number passed
// to op starts at 1.
func Do[T any](ctx context.Context, policy Policy, operation string, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := max(policy.Attempts, 1)
	wallClock := policy.Clock
	if wallClock == nil {
		wallClock = clock.Real()
	}
	logger := logging.OrDiscard(policy.Logger)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := op(ctx, attempt)
		if err == nil {
			return value, nil
		}
		var stop *permanent
		if errors.As(err, &stop) {
			return zero, stop.err
		}
		last = err

		logger.WarnContext(ctx, "attempt failed",
			"operation", operation,
			"attempt", attempt,
			"of", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}
		if err := clock.SleepContext(ctx, wallClock, policy.Backoff); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Operation: operation, Attempts: attempts, Last: last}
}
