// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/testutil"
)

func TestSignalCoalesces(t *testing.T) {
	signal := NewSignal()
	for i := 0; i < 5; i++ {
		signal.Notify()
	}
	testutil.RequireReceive(t, signal.C(), time.Second, "first change")
	testutil.RequireNoReceive(t, signal.C(), 10*time.Millisecond, "coalesced changes")
}

func TestIsValidationThroughWrapping(t *testing.T) {
	err := fmt.Errorf("saving profile: %w", Invalid("name", "must not be empty"))
	if !IsValidation(err) {
		t.Fatal("wrapped validation error not recognised")
	}
	if err.Error() != "saving profile: name: must not be empty" {
		t.Errorf("Error() = %q", err.Error())
	}
}
