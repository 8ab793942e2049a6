// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

const (
	maxGroupTitleLength     = 50
	maxInitialMessageLength = 500
)

var (
	errNoParticipants = errors.New("Please select at least one user to start a conversation")
	errNoGroupTitle   = errors.New("Please enter a title for the group chat")

	// errGroupRequired is returned the first time more than one user
	// is submitted as a direct conversation. The form switches to a
	// group and waits for a title.
	errGroupRequired = errors.New("Several users were selected: enter a group title to continue")
)

// conversationForm is the new-conversation modal's state.
type conversationForm struct {
	Query          string
	Results        []actor.UserSummary
	Cursor         int
	Selected       []actor.UserSummary
	Group          bool
	Title          string
	InitialMessage string
	Creating       bool
}

// selectedPrincipals lists who is already picked, for excluding them
// from search results.
func (f *conversationForm) selectedPrincipals() []identity.Principal {
	principals := make([]identity.Principal, len(f.Selected))
	for index, user := range f.Selected {
		principals[index] = user.Principal
	}
	return principals
}

// pick adds the highlighted search result and clears the search.
func (f *conversationForm) pick() bool {
	if f.Cursor < 0 || f.Cursor >= len(f.Results) {
		return false
	}
	user := f.Results[f.Cursor]
	if !slices.Contains(f.selectedPrincipals(), user.Principal) {
		f.Selected = append(f.Selected, user)
	}
	f.Query = ""
	f.Results = nil
	f.Cursor = 0
	return true
}

// remove drops the most recently selected user.
func (f *conversationForm) remove() {
	if len(f.Selected) > 0 {
		f.Selected = f.Selected[:len(f.Selected)-1]
	}
	if len(f.Selected) <= 1 {
		f.Group = false
	}
}

// setResults installs a search result if it answers the current query.
func (f *conversationForm) setResults(result searchResultMsg) {
	if result.Query != f.Query {
		return
	}
	f.Results = result.Users
	f.Cursor = 0
}

// request validates the form and builds the createConversation
// argument. A direct submission with several users flips the form to
// a group and returns errGroupRequired.
func (f *conversationForm) request() (actor.CreateConversationRequest, error) {
	if len(f.Selected) == 0 {
		return actor.CreateConversationRequest{}, errNoParticipants
	}
	title := strings.TrimSpace(f.Title)
	if f.Group && title == "" {
		return actor.CreateConversationRequest{}, errNoGroupTitle
	}
	if len(f.Selected) > 1 && !f.Group {
		f.Group = true
		return actor.CreateConversationRequest{}, errGroupRequired
	}

	request := actor.CreateConversationRequest{IsGroup: f.Group}
	for _, user := range f.Selected {
		request.Participants = append(request.Participants, user.Principal)
		request.ParticipantNames = append(request.ParticipantNames, user.Username)
	}
	if f.Group {
		request.Title = &title
	}
	if message := strings.TrimSpace(f.InitialMessage); message != "" {
		request.InitialMessage = &message
	}
	return request, nil
}

// appendLimited appends r to s unless s already holds limit runes.
func appendLimited(s string, r []rune, limit int) string {
	for _, char := range r {
		if utf8.RuneCountInString(s) >= limit {
			break
		}
		s += string(char)
	}
	return s
}

// dropLast removes the final rune of s.
func dropLast(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
