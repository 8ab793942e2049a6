// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
)

func TestDoStopsAfterExactlyThreeAttempts(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	policy := Policy{Attempts: 3, Backoff: time.Second, Clock: fake}
	failure := errors.New("delegation refused")

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(context.Background(), policy, "delegation", func(context.Context, int) (string, error) {
			calls++
			return "", failure
		})
		done <- err
	}()

	// Two backoff sleeps separate the three attempts.
	for i := 0; i < 2; i++ {
		fake.WaitForTimers(1)
		fake.Advance(time.Second)
	}

	err := <-done
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 || calls != 3 {
		t.Fatalf("attempts = %d, calls = %d, want 3 and 3", exhausted.Attempts, calls)
	}
	if !errors.Is(err, failure) {
		t.Errorf("ExhaustedError does not wrap the last failure")
	}
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	policy := Policy{Attempts: 3, Backoff: time.Second, Clock: fake}

	done := make(chan int, 1)
	go func() {
		value, _ := Do(context.Background(), policy, "init", func(_ context.Context, attempt int) (int, error) {
			if attempt < 2 {
				return 0, errors.New("not yet")
			}
			return attempt, nil
		})
		done <- value
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	if got := <-done; got != 2 {
		t.Fatalf("Do() = %d, want 2", got)
	}
}

func TestDoPermanentErrorSkipsRemainingAttempts(t *testing.T) {
	calls := 0
	failure := errors.New("unsupported")
	_, err := Do(context.Background(), Policy{Attempts: 3, Backoff: time.Hour}, "init", func(context.Context, int) (struct{}, error) {
		calls++
		return struct{}{}, Permanent(failure)
	})
	if !errors.Is(err, failure) || calls != 1 {
		t.Fatalf("err = %v after %d calls, want the permanent error after 1", err, calls)
	}
}

func TestDoHonoursCancellationDuringBackoff(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, Policy{Attempts: 3, Backoff: time.Second, Clock: fake}, "init", func(context.Context, int) (int, error) {
			return 0, errors.New("down")
		})
		done <- err
	}()

	fake.WaitForTimers(1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
}
