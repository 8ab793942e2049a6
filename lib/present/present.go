// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package present derives display strings from backend records. It
// holds no state: everything is computed from its arguments at render
// time.
package present

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// NoMessages previews a conversation with no messages.
const NoMessages = "No messages yet"

// RelativeTime buckets a nanosecond epoch timestamp against now:
// "Just now" under a minute, then minutes, hours and days, and the
// calendar date from seven days on.
func RelativeTime(timestamp int64, now time.Time) string {
	at := time.Unix(0, timestamp)
	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "Just now"
	case elapsed < time.Hour:
		return strconv.Itoa(int(elapsed/time.Minute)) + "m"
	case elapsed < 24*time.Hour:
		return strconv.Itoa(int(elapsed/time.Hour)) + "h"
	case elapsed < 7*24*time.Hour:
		return strconv.Itoa(int(elapsed/(24*time.Hour))) + "d"
	}
	return at.In(now.Location()).Format("Jan 2, 2006")
}

// MessageTime is the timestamp shown under a message: minutes ago
// within the hour, the clock time within the day, otherwise date and
// time.
func MessageTime(timestamp int64, now time.Time) string {
	at := time.Unix(0, timestamp).In(now.Location())
	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "Just now"
	case elapsed < time.Hour:
		return strconv.Itoa(int(elapsed/time.Minute)) + "m ago"
	case elapsed < 24*time.Hour:
		return at.Format("15:04")
	}
	return at.Format("Jan 2 15:04")
}

// Initials takes the first letter of each word, upper-cased, at most
// two.
func Initials(name string) string {
	var initials strings.Builder
	count := 0
	for _, word := range strings.Fields(name) {
		first, _ := utf8.DecodeRuneInString(word)
		initials.WriteRune(unicode.ToUpper(first))
		if count++; count == 2 {
			break
		}
	}
	return initials.String()
}

// ConversationTitle names a conversation from viewer's side: the
// title of a group, or the other participant's name in a direct
// conversation.
func ConversationTitle(conversation actor.Conversation, viewer identity.Principal) string {
	if conversation.IsGroup {
		if conversation.Title != nil && *conversation.Title != "" {
			return *conversation.Title
		}
		return "Group Chat"
	}
	for index, participant := range conversation.Participants {
		if participant != viewer && index < len(conversation.ParticipantNames) {
			return conversation.ParticipantNames[index]
		}
	}
	return "Unknown User"
}

// Preview is the last-message line under a conversation title.
func Preview(conversation actor.Conversation) string {
	if conversation.LastMessage == "" {
		return NoMessages
	}
	return conversation.LastMessage
}

// UnreadFor returns viewer's unread count in conversation.
func UnreadFor(conversation actor.Conversation, viewer identity.Principal) uint64 {
	for _, count := range conversation.UnreadCounts {
		if count.Participant == viewer {
			return count.Count
		}
	}
	return 0
}

// UnreadBadge is "" for zero and "99+" above 99.
func UnreadBadge(count uint64) string {
	switch {
	case count == 0:
		return ""
	case count > 99:
		return "99+"
	}
	return strconv.FormatUint(count, 10)
}

// PrivacyLabel names a message policy.
func PrivacyLabel(policy actor.MessagePolicy) string {
	switch policy {
	case actor.Everyone:
		return "Everyone"
	case actor.FollowersOnly:
		return "Followers only"
	case actor.ConnectionsOnly:
		return "Connections only"
	case actor.Nobody:
		return "Nobody"
	}
	return string(policy)
}

// PrivacyDescription explains a message policy in one line.
func PrivacyDescription(policy actor.MessagePolicy) string {
	switch policy {
	case actor.Everyone:
		return "Anyone can send you messages"
	case actor.FollowersOnly:
		return "Only people who follow you"
	case actor.ConnectionsOnly:
		return "Only mutual connections"
	case actor.Nobody:
		return "Turn off messaging completely"
	}
	return ""
}

// AttachmentLabel is "name (size)" with a human size.
func AttachmentLabel(attachment actor.Attachment) string {
	return attachment.Name + " (" + humanize.Bytes(attachment.Size) + ")"
}

// Count formats a like or comment count with thousands separators.
func Count(n uint64) string {
	return humanize.Comma(int64(n))
}
