// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

type memorySaver struct {
	mu    sync.Mutex
	saves [][]byte
	fail  error
}

func (s *memorySaver) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.saves = append(s.saves, data)
	return nil
}

func (s *memorySaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCheckpointSkipsUnchangedState(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(Options{Clock: fake})
	saver := &memorySaver{}
	checkpointer := NewCheckpointer(r, saver, time.Minute, fake, nil)
	ctx := context.Background()

	for range 2 {
		if err := checkpointer.Save(ctx); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}
	if saver.count() != 1 {
		t.Fatalf("unchanged state saved %d times, want 1", saver.count())
	}

	signer, _ := identity.GenerateEd25519()
	if result := r.setUserProfile(signer.Principal(), "alice", ""); result.Err != nil {
		t.Fatalf("setUserProfile() = %s", *result.Err)
	}
	checkpointer.Save(ctx)
	if saver.count() != 2 {
		t.Fatalf("changed state saved %d times in total, want 2", saver.count())
	}

	restored := New(Options{})
	if err := restored.Restore(saver.saves[1]); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if result := restored.getCurrentUserProfile(signer.Principal()); result.Ok == nil || result.Ok.Name != "alice" {
		t.Errorf("restored profile = %+v", result)
	}
}

func TestCheckpointRetriesAfterFailure(t *testing.T) {
	r := New(Options{})
	saver := &memorySaver{fail: errors.New("connection reset")}
	checkpointer := NewCheckpointer(r, saver, time.Minute, nil, nil)

	if err := checkpointer.Save(context.Background()); err == nil {
		t.Fatal("Save() hid the saver error")
	}
	saver.fail = nil
	if err := checkpointer.Save(context.Background()); err != nil || saver.count() != 1 {
		t.Fatalf("Save() after recovery = %v with %d saves", err, saver.count())
	}
}

func TestCheckpointRunSavesOnTickAndShutdown(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(Options{Clock: fake})
	saver := &memorySaver{}
	checkpointer := NewCheckpointer(r, saver, time.Minute, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- checkpointer.Run(ctx) }()

	fake.WaitForTimers(1)
	fake.Advance(time.Minute)
	for saver.count() == 0 {
		time.Sleep(time.Millisecond)
	}

	signer, _ := identity.GenerateEd25519()
	r.createPost(signer.Principal(), actor.NewPost{Content: "late write"})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if saver.count() != 2 {
		t.Errorf("saves = %d, want the tick plus the final save", saver.count())
	}
}

func TestCheckpointRejectsZeroInterval(t *testing.T) {
	checkpointer := NewCheckpointer(New(Options{}), &memorySaver{}, 0, nil, nil)
	if err := checkpointer.Run(context.Background()); err == nil {
		t.Fatal("Run() accepted a zero interval")
	}
}
