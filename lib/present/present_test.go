// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1m"},
		{59 * time.Minute, "59m"},
		{2 * time.Hour, "2h"},
		{23*time.Hour + 59*time.Minute, "23h"},
		{24 * time.Hour, "1d"},
		{6 * 24 * time.Hour, "6d"},
		{7 * 24 * time.Hour, "Mar 13, 2026"},
	}
	for _, tc := range cases {
		if got := RelativeTime(now.Add(-tc.ago).UnixNano(), now); got != tc.want {
			t.Errorf("RelativeTime(%v ago) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestMessageTime(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	if got := MessageTime(now.Add(-5*time.Minute).UnixNano(), now); got != "5m ago" {
		t.Errorf("5 minutes = %q", got)
	}
	if got := MessageTime(now.Add(-3*time.Hour).UnixNano(), now); got != "09:00" {
		t.Errorf("3 hours = %q", got)
	}
	if got := MessageTime(now.Add(-48*time.Hour).UnixNano(), now); got != "Mar 18 12:00" {
		t.Errorf("2 days = %q", got)
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"alice":                 "A",
		"ada lovelace":          "AL",
		"grace brewster hopper": "GB",
		"  émile  zola ":        "ÉZ",
		"":                      "",
	}
	for name, want := range cases {
		if got := Initials(name); got != want {
			t.Errorf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestConversationTitle(t *testing.T) {
	me, _ := identity.GenerateEd25519()
	bob, _ := identity.GenerateEd25519()
	title := "Climbing"

	direct := actor.Conversation{
		Participants:     []identity.Principal{me.Principal(), bob.Principal()},
		ParticipantNames: []string{"me", "bob"},
	}
	if got := ConversationTitle(direct, me.Principal()); got != "bob" {
		t.Errorf("direct title = %q, want bob", got)
	}
	direct.ParticipantNames = direct.ParticipantNames[:1]
	if got := ConversationTitle(direct, me.Principal()); got != "Unknown User" {
		t.Errorf("title without a name = %q", got)
	}
	if got := ConversationTitle(actor.Conversation{IsGroup: true}, me.Principal()); got != "Group Chat" {
		t.Errorf("untitled group = %q", got)
	}
	if got := ConversationTitle(actor.Conversation{IsGroup: true, Title: &title}, me.Principal()); got != title {
		t.Errorf("titled group = %q", got)
	}
}

func TestUnread(t *testing.T) {
	me, _ := identity.GenerateEd25519()
	bob, _ := identity.GenerateEd25519()
	conversation := actor.Conversation{UnreadCounts: []actor.UnreadCount{
		{Participant: bob.Principal(), Count: 4},
		{Participant: me.Principal(), Count: 120},
	}}

	count := UnreadFor(conversation, me.Principal())
	if count != 120 {
		t.Fatalf("UnreadFor() = %d", count)
	}
	for n, want := range map[uint64]string{0: "", 1: "1", 99: "99", 100: "99+", count: "99+"} {
		if got := UnreadBadge(n); got != want {
			t.Errorf("UnreadBadge(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLabels(t *testing.T) {
	if got := PrivacyLabel(actor.ConnectionsOnly); got != "Connections only" {
		t.Errorf("PrivacyLabel = %q", got)
	}
	if got := Preview(actor.Conversation{}); got != NoMessages {
		t.Errorf("Preview of an empty conversation = %q", got)
	}
	if got := AttachmentLabel(actor.Attachment{Name: "cat.png", Size: 2_500_000}); got != "cat.png (2.5 MB)" {
		t.Errorf("AttachmentLabel = %q", got)
	}
	if got := Count(12345); got != "12,345" {
		t.Errorf("Count = %q", got)
	}
}
