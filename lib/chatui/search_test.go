// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func principal(t *testing.T, seed byte) identity.Principal {
	t.Helper()
	return identity.SelfAuthenticating([]byte{seed, seed, seed})
}

type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
	users   []actor.UserSummary
}

func (s *recordingSearcher) SearchUsers(_ context.Context, fragment string) ([]actor.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, fragment)
	return s.users, nil
}

func (s *recordingSearcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func TestRankUsersOrdersByMatchQuality(t *testing.T) {
	alice := actor.UserSummary{Principal: principal(t, 1), Username: "alice"}
	malik := actor.UserSummary{Principal: principal(t, 2), Username: "malik"}
	bob := actor.UserSummary{Principal: principal(t, 3), Username: "bob"}
	alicia := actor.UserSummary{Principal: principal(t, 4), Username: "alicia"}

	ranked := RankUsers([]actor.UserSummary{malik, bob, alicia, alice}, "ali", nil)
	if len(ranked) != 3 {
		t.Fatalf("RankUsers() returned %d users, want 3 (bob does not match): %+v", len(ranked), ranked)
	}
	if ranked[0].Username != "alice" || ranked[1].Username != "alicia" {
		t.Errorf("prefix matches should lead in name order, got %s, %s", ranked[0].Username, ranked[1].Username)
	}
	if ranked[2].Username != "malik" {
		t.Errorf("last = %s, want malik", ranked[2].Username)
	}

	excluded := RankUsers([]actor.UserSummary{alice, alicia}, "ali", []identity.Principal{alice.Principal})
	if len(excluded) != 1 || excluded[0].Username != "alicia" {
		t.Errorf("excluded users were not dropped: %+v", excluded)
	}
}

func TestUserSearchDebouncesAndSkipsShortQueries(t *testing.T) {
	fake := clock.Fake(epoch)
	searcher := &recordingSearcher{users: []actor.UserSummary{
		{Principal: principal(t, 1), Username: "alice"},
		{Principal: principal(t, 2), Username: "bob"},
	}}
	var results []searchResultMsg
	search := NewUserSearch(searcher, fake, 300*time.Millisecond, 2, func(result searchResultMsg) {
		results = append(results, result)
	})
	ctx := context.Background()

	search.Input(ctx, "a", nil)
	if len(results) != 1 || results[0].Query != "a" || len(results[0].Users) != 0 {
		t.Fatalf("short query delivered %+v, want one empty result", results)
	}

	search.Input(ctx, "al", nil)
	fake.Advance(200 * time.Millisecond)
	search.Input(ctx, "ali", nil)
	fake.Advance(200 * time.Millisecond)
	if calls := searcher.calls(); len(calls) != 0 {
		t.Fatalf("searched %v before the quiet period", calls)
	}

	fake.Advance(100 * time.Millisecond)
	if calls := searcher.calls(); len(calls) != 1 || calls[0] != "ali" {
		t.Fatalf("searches = %v, want one for \"ali\"", calls)
	}
	last := results[len(results)-1]
	if last.Query != "ali" || len(last.Users) != 1 || last.Users[0].Username != "alice" {
		t.Errorf("result = %+v, want alice for \"ali\"", last)
	}
}

func TestUserSearchShortQueryCancelsPending(t *testing.T) {
	fake := clock.Fake(epoch)
	searcher := &recordingSearcher{}
	search := NewUserSearch(searcher, fake, 300*time.Millisecond, 2, func(searchResultMsg) {})

	search.Input(context.Background(), "bo", nil)
	search.Input(context.Background(), "b", nil)
	fake.Advance(time.Second)
	if calls := searcher.calls(); len(calls) != 0 {
		t.Errorf("searches = %v after the query shrank below the minimum", calls)
	}
}
