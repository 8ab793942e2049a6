// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"errors"
	"strings"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/actor"
)

func TestConversationFormRequest(t *testing.T) {
	alice := actor.UserSummary{Principal: principal(t, 1), Username: "alice"}
	bob := actor.UserSummary{Principal: principal(t, 2), Username: "bob"}

	form := &conversationForm{}
	if _, err := form.request(); !errors.Is(err, errNoParticipants) {
		t.Fatalf("empty form: error = %v, want errNoParticipants", err)
	}

	form.Results = []actor.UserSummary{alice}
	if !form.pick() {
		t.Fatal("pick() with a highlighted result returned false")
	}
	form.InitialMessage = "  hi  "
	request, err := form.request()
	if err != nil {
		t.Fatalf("direct request error: %v", err)
	}
	if request.IsGroup || request.Title != nil {
		t.Errorf("direct request = %+v, want no group and no title", request)
	}
	if request.InitialMessage == nil || *request.InitialMessage != "hi" {
		t.Errorf("initial message = %v, want trimmed \"hi\"", request.InitialMessage)
	}
	if len(request.ParticipantNames) != 1 || request.ParticipantNames[0] != "alice" {
		t.Errorf("participant names = %v", request.ParticipantNames)
	}

	form.Results = []actor.UserSummary{bob}
	form.pick()
	if _, err := form.request(); !errors.Is(err, errGroupRequired) {
		t.Fatalf("two users, direct: error = %v, want errGroupRequired", err)
	}
	if !form.Group {
		t.Fatal("submitting two users did not switch the form to a group")
	}
	if _, err := form.request(); !errors.Is(err, errNoGroupTitle) {
		t.Fatalf("group without title: error = %v, want errNoGroupTitle", err)
	}

	form.Title = "Weekend plans"
	request, err = form.request()
	if err != nil {
		t.Fatalf("group request error: %v", err)
	}
	if !request.IsGroup || request.Title == nil || *request.Title != "Weekend plans" || len(request.Participants) != 2 {
		t.Errorf("group request = %+v", request)
	}
}

func TestConversationFormPickSkipsDuplicates(t *testing.T) {
	alice := actor.UserSummary{Principal: principal(t, 1), Username: "alice"}
	form := &conversationForm{Results: []actor.UserSummary{alice}, Query: "al"}
	form.pick()
	form.Results = []actor.UserSummary{alice}
	form.pick()
	if len(form.Selected) != 1 {
		t.Errorf("selected = %d users, want 1", len(form.Selected))
	}
	if form.Query != "" || form.Results != nil {
		t.Errorf("pick() left query %q and results %v", form.Query, form.Results)
	}

	form.remove()
	if len(form.Selected) != 0 || form.Group {
		t.Errorf("after remove: selected = %v, group = %v", form.Selected, form.Group)
	}
}

func TestConversationFormDropsStaleResults(t *testing.T) {
	form := &conversationForm{Query: "ali"}
	form.setResults(searchResultMsg{Query: "al", Users: []actor.UserSummary{{Username: "alan"}}})
	if len(form.Results) != 0 {
		t.Errorf("a result for an older query was installed: %v", form.Results)
	}
	form.setResults(searchResultMsg{Query: "ali", Users: []actor.UserSummary{{Username: "alice"}}})
	if len(form.Results) != 1 {
		t.Errorf("results = %v, want alice", form.Results)
	}
}

func TestAppendLimited(t *testing.T) {
	title := appendLimited(strings.Repeat("x", maxGroupTitleLength-1), []rune("yz"), maxGroupTitleLength)
	if len([]rune(title)) != maxGroupTitleLength || !strings.HasSuffix(title, "y") {
		t.Errorf("appendLimited() = %q", title)
	}
	if got := dropLast("héé"); got != "hé" {
		t.Errorf("dropLast() = %q, want %q", got, "hé")
	}
}
