// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"fmt"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// UserProfile is a user's public profile. Name is the unique username.
type UserProfile struct {
	Name string `cbor:"name"`
	Bio  string `cbor:"bio"`
	ID   string `cbor:"id"`
}

// UserSummary is one row of a user search.
type UserSummary struct {
	Principal identity.Principal `cbor:"principal"`
	Username  string             `cbor:"username"`
}

// Post is a feed entry. Timestamp is nanoseconds since the epoch.
type Post struct {
	ID         uint64    `cbor:"id"`
	AuthorName string    `cbor:"authorName"`
	Content    string    `cbor:"content"`
	Timestamp  int64     `cbor:"timestamp"`
	Likes      uint64    `cbor:"likes"`
	Comments   []Comment `cbor:"comments"`
}

// Time returns Timestamp as a time.
func (p Post) Time() time.Time { return time.Unix(0, p.Timestamp) }

// Comment is a reply under a post.
type Comment struct {
	ID         uint64 `cbor:"id"`
	AuthorName string `cbor:"authorName"`
	Content    string `cbor:"content"`
	Timestamp  int64  `cbor:"timestamp"`
}

// NewPost is the argument to createPost.
type NewPost struct {
	Content    string `cbor:"content"`
	AuthorName string `cbor:"authorName"`
}

// NewComment is the argument to addComment.
type NewComment struct {
	PostID     uint64 `cbor:"postId"`
	Content    string `cbor:"content"`
	AuthorName string `cbor:"authorName"`
}

// MessageType distinguishes user text from system notices and media.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
)

// ParseMessageType accepts the four message kinds.
func ParseMessageType(name string) (MessageType, error) {
	switch kind := MessageType(name); kind {
	case MessageText, MessageSystem, MessageImage, MessageFile:
		return kind, nil
	}
	return "", fmt.Errorf("unknown message type %q (want text, system, image or file)", name)
}

// Attachment is a file carried inline in a message. Data is encoded
// per Compression; see package attachment.
type Attachment struct {
	Name        string `cbor:"name"`
	MimeType    string `cbor:"mimeType"`
	Size        uint64 `cbor:"size"`
	Compression string `cbor:"compression,omitempty"`
	Data        []byte `cbor:"data"`
}

// Message is one entry in a conversation.
type Message struct {
	ID             string             `cbor:"id"`
	ConversationID string             `cbor:"conversationId"`
	Sender         identity.Principal `cbor:"sender"`
	SenderName     string             `cbor:"senderName"`
	Content        string             `cbor:"content"`
	MessageType    MessageType        `cbor:"messageType"`
	Timestamp      int64              `cbor:"timestamp"`
	IsEdited       bool               `cbor:"isEdited"`
	ReplyTo        *string            `cbor:"replyTo,omitempty"`
	Attachments    []Attachment       `cbor:"attachments,omitempty"`
}

// UnreadCount is one participant's unread counter in a conversation.
type UnreadCount struct {
	Participant identity.Principal `cbor:"participant"`
	Count       uint64             `cbor:"count"`
}

// Conversation is a direct or group thread. LastMessageAt is
// nanoseconds since the epoch, zero when the thread is empty.
type Conversation struct {
	ID               string               `cbor:"id"`
	Participants     []identity.Principal `cbor:"participants"`
	ParticipantNames []string             `cbor:"participantNames"`
	IsGroup          bool                 `cbor:"isGroup"`
	Title            *string              `cbor:"title,omitempty"`
	LastMessage      string               `cbor:"lastMessage"`
	LastMessageAt    int64                `cbor:"lastMessageAt"`
	UnreadCounts     []UnreadCount        `cbor:"unreadCounts"`
	CreatedAt        int64                `cbor:"createdAt"`
}

// SendMessageRequest is the argument to sendMessage.
type SendMessageRequest struct {
	ConversationID string       `cbor:"conversationId"`
	Content        string       `cbor:"content"`
	MessageType    MessageType  `cbor:"messageType"`
	ReplyTo        *string      `cbor:"replyTo,omitempty"`
	Attachments    []Attachment `cbor:"attachments"`
}

// CreateConversationRequest is the argument to createConversation. The
// backend adds the caller to Participants.
type CreateConversationRequest struct {
	Participants     []identity.Principal `cbor:"participants"`
	ParticipantNames []string             `cbor:"participantNames"`
	Title            *string              `cbor:"title,omitempty"`
	IsGroup          bool                 `cbor:"isGroup"`
	InitialMessage   *string              `cbor:"initialMessage,omitempty"`
}

// MessagePolicy says who may open a conversation with a user.
type MessagePolicy string

const (
	Everyone        MessagePolicy = "everyone"
	FollowersOnly   MessagePolicy = "followersOnly"
	ConnectionsOnly MessagePolicy = "connectionsOnly"
	Nobody          MessagePolicy = "nobody"
)

// ParseMessagePolicy accepts the four policies.
func ParseMessagePolicy(name string) (MessagePolicy, error) {
	switch policy := MessagePolicy(name); policy {
	case Everyone, FollowersOnly, ConnectionsOnly, Nobody:
		return policy, nil
	}
	return "", fmt.Errorf("unknown message policy %q (want everyone, followersOnly, connectionsOnly or nobody)", name)
}

// PrivacySettings are a user's messaging preferences.
type PrivacySettings struct {
	AllowMessagesFrom MessagePolicy `cbor:"allowMessagesFrom"`
	AllowGroupInvites bool          `cbor:"allowGroupInvites"`
	ShowOnlineStatus  bool          `cbor:"showOnlineStatus"`
	ShowReadReceipts  bool          `cbor:"showReadReceipts"`
}

// DefaultPrivacySettings is what a user has before saving any.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		AllowMessagesFrom: FollowersOnly,
		AllowGroupInvites: true,
		ShowOnlineStatus:  true,
		ShowReadReceipts:  true,
	}
}
