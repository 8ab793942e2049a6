// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package debounce

import (
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
)

func TestTriggerRestartsWindow(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	debouncer := New(fake, 500*time.Millisecond)

	var fired []string
	for _, keystroke := range []string{"a", "al", "ali", "alic", "alice"} {
		value := keystroke
		debouncer.Trigger(func() { fired = append(fired, value) })
		fake.Advance(200 * time.Millisecond)
	}
	if len(fired) != 0 {
		t.Fatalf("fired %v while typing, want nothing", fired)
	}

	fake.Advance(300 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "alice" {
		t.Fatalf("fired %v, want [alice]", fired)
	}
	if debouncer.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestCancelDropsPendingAction(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	debouncer := New(fake, 300*time.Millisecond)

	called := false
	debouncer.Trigger(func() { called = true })
	debouncer.Cancel()
	fake.Advance(time.Second)
	if called {
		t.Fatal("cancelled action ran")
	}
}
