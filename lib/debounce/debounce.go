// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package debounce delays an action until input has been quiet for a
// fixed window. Each new trigger cancels the pending action and
// restarts the window, so at most one action is ever pending.
package debounce

import (
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
)

// Debouncer is a single-flight restartable timer. The zero value is
// not usable; call New.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu         sync.Mutex
	timer      *clock.Timer
	generation uint64
}

// New returns a Debouncer that fires delay after the last Trigger.
func New(c clock.Clock, delay time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer{clock: c, delay: delay}
}

// Trigger schedules action, replacing any pending one. With a
// non-positive delay the action runs immediately on the caller's
// goroutine.
func (d *Debouncer) Trigger(action func()) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	generation := d.generation
	if d.delay <= 0 {
		d.mu.Unlock()
		action()
		return
	}
	defer d.mu.Unlock()

	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.generation == generation
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			action()
		}
	})
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an action is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
