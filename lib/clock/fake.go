// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// It is safe for concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order. A callback must not call Advance or Sleep on the same clock.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*entry
	changed *sync.Cond
	nextSeq uint64
}

// entry is one registered timer, ticker or sleep.
type entry struct {
	at  time.Time
	seq uint64

	// Exactly one of ch and fn is set.
	ch chan time.Time
	fn func()

	// period is non-zero for tickers.
	period time.Duration

	cancelled bool
	done      bool
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.addLocked(&entry{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	c.mu.Lock()
	e := &entry{at: c.now.Add(d), fn: f}
	c.addLocked(e)
	c.mu.Unlock()

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e.cancelled || e.done {
				return false
			}
			e.cancelled = true
			c.removeLocked(e)
			return true
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			active := !e.cancelled && !e.done
			e.at = c.now.Add(d)
			e.cancelled = false
			e.done = false
			if !active {
				c.addLocked(e)
			}
			return active
		},
	}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker called with non-positive interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	e := &entry{at: c.now.Add(d), ch: ch, period: d}
	c.addLocked(e)
	return &Ticker{
		C: ch,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !e.cancelled {
				e.cancelled = true
				c.removeLocked(e)
			}
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasCancelled := e.cancelled
			e.period = d
			e.at = c.now.Add(d)
			e.cancelled = false
			if wasCancelled {
				c.addLocked(e)
			}
		},
	}
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d and fires everything whose
// deadline is reached, earliest first. A ticker spanning several
// periods fires once per period; ticks that find its channel full are
// dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, e := range due {
			if e.fn != nil {
				e.fn()
				continue
			}
			select {
			case e.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes due entries from the pending set, reschedules
// tickers, and returns the due entries sorted by deadline.
func (c *FakeClock) takeDue(target time.Time) []*entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*entry
	for _, e := range c.pending {
		switch {
		case e.cancelled:
		case e.at.After(target):
			keep = append(keep, e)
		default:
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	for _, e := range due {
		if e.period > 0 {
			e.at = e.at.Add(e.period)
			keep = append(keep, e)
		} else {
			e.done = true
		}
	}
	c.pending = keep
	c.changed.Broadcast()
	return due
}

// WaitForTimers blocks until at least n timers, tickers or sleeps are
// pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of active timers, tickers and
// sleeps.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) addLocked(e *entry) {
	c.nextSeq++
	e.seq = c.nextSeq
	c.pending = append(c.pending, e)
	c.changed.Broadcast()
}

func (c *FakeClock) removeLocked(target *entry) {
	for i, e := range c.pending {
		if e == target {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	c.changed.Broadcast()
}

func (c *FakeClock) activeLocked() int {
	n := 0
	for _, e := range c.pending {
		if !e.cancelled {
			n++
		}
	}
	return n
}
