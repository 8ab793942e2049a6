// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import "context"

// Messaging is the conversations actor.
type Messaging struct{ endpoint }

// NewMessaging binds caller to the messaging canister.
func NewMessaging(caller Caller, canisterID string) *Messaging {
	return &Messaging{endpoint{caller: caller, canisterID: canisterID}}
}

// GetUserConversations lists every conversation the caller is in.
func (m *Messaging) GetUserConversations(ctx context.Context) ([]Conversation, error) {
	return query[[]Conversation](ctx, m.endpoint, "getUserConversations")
}

// GetConversationMessages pages through a conversation newest first.
func (m *Messaging) GetConversationMessages(ctx context.Context, conversationID string, limit, offset uint64) ([]Message, error) {
	return query[[]Message](ctx, m.endpoint, "getConversationMessages", conversationID, limit, offset)
}

// SendMessage appends to a conversation and returns the stored message.
func (m *Messaging) SendMessage(ctx context.Context, request SendMessageRequest) (Message, error) {
	if request.Attachments == nil {
		request.Attachments = []Attachment{}
	}
	return call[Message](ctx, m.endpoint, "sendMessage", request)
}

// CreateConversation opens a conversation with the caller added as a
// participant.
func (m *Messaging) CreateConversation(ctx context.Context, request CreateConversationRequest) (Conversation, error) {
	return call[Conversation](ctx, m.endpoint, "createConversation", request)
}

// MarkConversationAsRead zeroes the caller's unread counter.
func (m *Messaging) MarkConversationAsRead(ctx context.Context, conversationID string) error {
	_, err := call[Unit](ctx, m.endpoint, "markConversationAsRead", conversationID)
	return err
}

// GetUnreadMessageCount totals the caller's unread messages.
func (m *Messaging) GetUnreadMessageCount(ctx context.Context) (uint64, error) {
	return query[uint64](ctx, m.endpoint, "getUnreadMessageCount")
}

func (m *Messaging) GetPrivacySettings(ctx context.Context) (PrivacySettings, error) {
	return query[PrivacySettings](ctx, m.endpoint, "getPrivacySettings")
}

func (m *Messaging) SetPrivacySettings(ctx context.Context, settings PrivacySettings) error {
	_, err := call[Unit](ctx, m.endpoint, "setPrivacySettings", settings)
	return err
}

// EditMessage replaces a message's content and returns the new
// version, flagged as edited.
func (m *Messaging) EditMessage(ctx context.Context, messageID, content string) (Message, error) {
	return call[Message](ctx, m.endpoint, "editMessage", messageID, content)
}

func (m *Messaging) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := call[Unit](ctx, m.endpoint, "deleteMessage", messageID)
	return err
}
