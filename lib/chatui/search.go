// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/debounce"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

const (
	// DefaultSearchDebounce is the quiet period before a user search.
	DefaultSearchDebounce = 300 * time.Millisecond

	// DefaultSearchMinLength is the shortest query that is searched.
	DefaultSearchMinLength = 2
)

// UserSearcher finds users by name fragment. *actor.Backend satisfies
// it.
type UserSearcher interface {
	SearchUsers(ctx context.Context, fragment string) ([]actor.UserSummary, error)
}

// fuzzyScore matches pattern against text the way fzf's default
// scheme does. ok is false when pattern is not a subsequence of text.
func fuzzyScore(text string, pattern []rune, slab *util.Slab) (score int, ok bool) {
	chars := util.ToChars([]byte(text))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
	return result.Score, result.Start >= 0
}

// RankUsers orders users by how well their name matches query, best
// first, dropping those that do not match and those in exclude.
func RankUsers(users []actor.UserSummary, query string, exclude []identity.Principal) []actor.UserSummary {
	pattern := []rune(strings.ToLower(query))
	slab := util.MakeSlab(16*1024, 2048)

	type scored struct {
		user  actor.UserSummary
		score int
	}
	var matches []scored
	for _, user := range users {
		if slices.Contains(exclude, user.Principal) {
			continue
		}
		if score, ok := fuzzyScore(user.Username, pattern, slab); ok {
			matches = append(matches, scored{user, score})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return strings.Compare(a.user.Username, b.user.Username)
	})

	ranked := make([]actor.UserSummary, len(matches))
	for index, match := range matches {
		ranked[index] = match.user
	}
	return ranked
}

// searchResultMsg carries the outcome of one debounced search.
type searchResultMsg struct {
	Query string
	Users []actor.UserSummary
	Err   error
}

// UserSearch runs a debounced search as the query changes. Queries
// shorter than the minimum clear the results without a call, and a
// result for anything but the latest query is dropped.
type UserSearch struct {
	searcher  UserSearcher
	debouncer *debounce.Debouncer
	minLength int
	deliver   func(searchResultMsg)

	mu    sync.Mutex
	query string
}

// NewUserSearch returns a search that hands each result to deliver.
func NewUserSearch(searcher UserSearcher, c clock.Clock, delay time.Duration, minLength int, deliver func(searchResultMsg)) *UserSearch {
	if minLength <= 0 {
		minLength = DefaultSearchMinLength
	}
	return &UserSearch{
		searcher:  searcher,
		debouncer: debounce.New(c, delay),
		minLength: minLength,
		deliver:   deliver,
	}
}

// Input records the new query text.
func (s *UserSearch) Input(ctx context.Context, query string, exclude []identity.Principal) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	if len([]rune(strings.TrimSpace(query))) < s.minLength || s.searcher == nil {
		s.debouncer.Cancel()
		s.deliver(searchResultMsg{Query: query})
		return
	}
	exclude = slices.Clone(exclude)
	s.debouncer.Trigger(func() {
		users, err := s.searcher.SearchUsers(ctx, strings.TrimSpace(query))
		s.mu.Lock()
		current := s.query == query
		s.mu.Unlock()
		if !current {
			return
		}
		s.deliver(searchResultMsg{Query: query, Users: RankUsers(users, query, exclude), Err: err})
	})
}

// Cancel drops any pending search.
func (s *UserSearch) Cancel() { s.debouncer.Cancel() }
