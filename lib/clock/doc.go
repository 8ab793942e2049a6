// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time so that polling loops,
// debounce timers, retry backoff and error auto-dismissal can be
// driven deterministically in tests.
//
// Production wiring passes Real(). Tests pass Fake(start) and move
// time forward with Advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := messaging.New(messaging.Options{Clock: fake, ...})
//	store.Start(ctx)
//	fake.WaitForTimers(1)       // the poll ticker is registered
//	fake.Advance(30 * time.Second)
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
