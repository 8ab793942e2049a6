// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/debounce"
)

// DefaultUsernameDebounce is the quiet period before a check runs.
const DefaultUsernameDebounce = 500 * time.Millisecond

// UsernameChecker runs CheckUsernameAvailable once typing pauses. A
// result that arrives after a newer keystroke is dropped.
type UsernameChecker struct {
	store     *Store
	debouncer *debounce.Debouncer

	mu         sync.Mutex
	generation uint64
	latest     Availability
	results    chan Availability
}

// NewUsernameChecker wraps store with a debounce of delay on c.
func NewUsernameChecker(s *Store, c clock.Clock, delay time.Duration) *UsernameChecker {
	return &UsernameChecker{
		store:     s,
		debouncer: debounce.New(c, delay),
		latest:    Unknown,
		results:   make(chan Availability, 1),
	}
}

// Input records a keystroke. The check runs with ctx after the quiet
// period.
func (c *UsernameChecker) Input(ctx context.Context, name string) {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		result := c.store.CheckUsernameAvailable(ctx, name)

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.generation {
			return
		}
		c.latest = result
		select {
		case <-c.results:
		default:
		}
		c.results <- result
	})
}

// Cancel drops any pending check.
func (c *UsernameChecker) Cancel() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	c.debouncer.Cancel()
}

// Pending reports whether a check is waiting for the quiet period.
func (c *UsernameChecker) Pending() bool { return c.debouncer.Pending() }

// Latest returns the newest delivered result.
func (c *UsernameChecker) Latest() Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Results receives each delivered result. Only the newest undelivered
// result is kept.
func (c *UsernameChecker) Results() <-chan Availability { return c.results }
