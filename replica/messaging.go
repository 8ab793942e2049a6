// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

func (r *Replica) participantOf(conversation actor.Conversation, caller identity.Principal) bool {
	return slices.Contains(conversation.Participants, caller)
}

// conversationFor returns the conversation if caller is in it. A
// conversation the caller cannot see is reported as missing.
func (r *Replica) conversationFor(id string, caller identity.Principal) (actor.Conversation, bool) {
	conversation, ok := r.state.Conversations[id]
	if !ok || !r.participantOf(conversation, caller) {
		return actor.Conversation{}, false
	}
	return conversation, true
}

func (r *Replica) getUserConversations(caller identity.Principal) actor.Result[[]actor.Conversation] {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversations := []actor.Conversation{}
	for _, conversation := range r.state.Conversations {
		if r.participantOf(conversation, caller) {
			conversations = append(conversations, cloneConversation(conversation))
		}
	}
	slices.SortFunc(conversations, func(a, b actor.Conversation) int {
		return cmp.Or(
			cmp.Compare(activity(b), activity(a)),
			strings.Compare(a.ID, b.ID),
		)
	})
	return actor.Ok(conversations)
}

func activity(conversation actor.Conversation) int64 {
	return max(conversation.LastMessageAt, conversation.CreatedAt)
}

func cloneConversation(conversation actor.Conversation) actor.Conversation {
	conversation.Participants = slices.Clone(conversation.Participants)
	conversation.ParticipantNames = slices.Clone(conversation.ParticipantNames)
	conversation.UnreadCounts = slices.Clone(conversation.UnreadCounts)
	return conversation
}

// getConversationMessages pages newest first.
func (r *Replica) getConversationMessages(caller identity.Principal, id string, limit, offset uint64) actor.Result[[]actor.Message] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversationFor(id, caller); !ok {
		return actor.Err[[]actor.Message]("Conversation not found")
	}
	stored := r.state.Messages[id]
	total := uint64(len(stored))
	messages := []actor.Message{}
	for index := offset; index < total && uint64(len(messages)) < limit; index++ {
		messages = append(messages, stored[total-1-index])
	}
	return actor.Ok(messages)
}

func (r *Replica) sendMessage(caller identity.Principal, request actor.SendMessageRequest) actor.Result[actor.Message] {
	content := strings.TrimSpace(request.Content)
	switch {
	case request.MessageType == actor.MessageSystem:
		return actor.Err[actor.Message]("System messages cannot be sent")
	case content == "" && len(request.Attachments) == 0:
		return actor.Err[actor.Message]("Message cannot be empty")
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return actor.Err[actor.Message]("Message must be at most %d characters", MaxMessageLength)
	}
	if request.MessageType == "" {
		request.MessageType = actor.MessageText
	}
	if _, err := actor.ParseMessageType(string(request.MessageType)); err != nil {
		return actor.Err[actor.Message]("%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversationFor(request.ConversationID, caller); !ok {
		return actor.Err[actor.Message]("Conversation not found")
	}
	message := actor.Message{
		ID:             r.newID(),
		ConversationID: request.ConversationID,
		Sender:         caller,
		SenderName:     r.state.displayName(caller.String()),
		Content:        content,
		MessageType:    request.MessageType,
		Timestamp:      r.now(),
		ReplyTo:        request.ReplyTo,
		Attachments:    request.Attachments,
	}
	r.appendLocked(message)
	return actor.Ok(message)
}

// appendLocked stores message, updates the preview and counts it as
// unread for everyone but the sender.
func (r *Replica) appendLocked(message actor.Message) {
	id := message.ConversationID
	r.state.Messages[id] = append(r.state.Messages[id], message)

	conversation := r.state.Conversations[id]
	conversation.LastMessage = preview(message)
	conversation.LastMessageAt = message.Timestamp
	if message.MessageType != actor.MessageSystem {
		for index := range conversation.UnreadCounts {
			if conversation.UnreadCounts[index].Participant != message.Sender {
				conversation.UnreadCounts[index].Count++
			}
		}
	}
	r.state.Conversations[id] = conversation
}

func preview(message actor.Message) string {
	if message.Content == "" && len(message.Attachments) > 0 {
		return message.Attachments[0].Name
	}
	return message.Content
}

func (r *Replica) createConversation(caller identity.Principal, request actor.CreateConversationRequest) actor.Result[actor.Conversation] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Conversation]("Anonymous users cannot start conversations")
	}
	var others []identity.Principal
	for _, participant := range request.Participants {
		if participant != caller && !slices.Contains(others, participant) {
			others = append(others, participant)
		}
	}
	if len(others) == 0 {
		return actor.Err[actor.Conversation]("A conversation needs at least one other participant")
	}
	isGroup := request.IsGroup || len(others) > 1
	var title *string
	if isGroup {
		if request.Title == nil || strings.TrimSpace(*request.Title) == "" {
			return actor.Err[actor.Conversation]("Group conversations need a title")
		}
		trimmed := strings.TrimSpace(*request.Title)
		if utf8.RuneCountInString(trimmed) > MaxTitleLength {
			return actor.Err[actor.Conversation]("Title must be at most %d characters", MaxTitleLength)
		}
		title = &trimmed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	self := caller.String()
	for _, other := range others {
		key := other.String()
		profile, ok := r.state.Profiles[key]
		if !ok {
			return actor.Err[actor.Conversation]("User not found")
		}
		if reason := r.refusalLocked(self, key, profile.Name, isGroup); reason != "" {
			return actor.Err[actor.Conversation]("%s", reason)
		}
	}

	if !isGroup {
		if existing, ok := r.directLocked(caller, others[0]); ok {
			return actor.Ok(cloneConversation(existing))
		}
	}

	participants := append([]identity.Principal{caller}, others...)
	conversation := actor.Conversation{
		ID:           r.newID(),
		Participants: participants,
		IsGroup:      isGroup,
		Title:        title,
		CreatedAt:    r.now(),
	}
	for _, participant := range participants {
		conversation.ParticipantNames = append(conversation.ParticipantNames, r.state.displayName(participant.String()))
		conversation.UnreadCounts = append(conversation.UnreadCounts, actor.UnreadCount{Participant: participant})
	}
	r.state.Conversations[conversation.ID] = conversation

	if isGroup {
		r.appendLocked(actor.Message{
			ID:             r.newID(),
			ConversationID: conversation.ID,
			Sender:         caller,
			SenderName:     r.state.displayName(self),
			Content:        r.state.displayName(self) + " created the group \"" + *title + "\"",
			MessageType:    actor.MessageSystem,
			Timestamp:      r.now(),
		})
	}
	if request.InitialMessage != nil {
		if content := strings.TrimSpace(*request.InitialMessage); content != "" {
			r.appendLocked(actor.Message{
				ID:             r.newID(),
				ConversationID: conversation.ID,
				Sender:         caller,
				SenderName:     r.state.displayName(self),
				Content:        content,
				MessageType:    actor.MessageText,
				Timestamp:      r.now(),
			})
		}
	}
	r.logger.Info("conversation created", "conversation", conversation.ID, "group", isGroup, "participants", len(participants))
	return actor.Ok(cloneConversation(r.state.Conversations[conversation.ID]))
}

// refusalLocked applies recipient's privacy settings to sender.
func (r *Replica) refusalLocked(sender, recipient, name string, group bool) string {
	settings := r.state.privacyOf(recipient)
	if group && !settings.AllowGroupInvites {
		return name + " does not accept group invitations"
	}
	switch settings.AllowMessagesFrom {
	case actor.Nobody:
		return name + " is not accepting messages"
	case actor.FollowersOnly:
		if !r.state.following(sender, recipient) {
			return name + " only accepts messages from followers"
		}
	case actor.ConnectionsOnly:
		if !r.state.following(sender, recipient) || !r.state.following(recipient, sender) {
			return name + " only accepts messages from connections"
		}
	}
	return ""
}

func (r *Replica) directLocked(a, b identity.Principal) (actor.Conversation, bool) {
	for _, conversation := range r.state.Conversations {
		if !conversation.IsGroup && len(conversation.Participants) == 2 &&
			slices.Contains(conversation.Participants, a) && slices.Contains(conversation.Participants, b) {
			return conversation, true
		}
	}
	return actor.Conversation{}, false
}

func (r *Replica) markConversationAsRead(caller identity.Principal, id string) actor.Result[actor.Unit] {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversationFor(id, caller)
	if !ok {
		return actor.Err[actor.Unit]("Conversation not found")
	}
	for index := range conversation.UnreadCounts {
		if conversation.UnreadCounts[index].Participant == caller {
			conversation.UnreadCounts[index].Count = 0
		}
	}
	r.state.Conversations[id] = conversation
	return actor.Ok(actor.Unit{})
}

func (r *Replica) getUnreadMessageCount(caller identity.Principal) actor.Result[uint64] {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint64
	for _, conversation := range r.state.Conversations {
		for _, unread := range conversation.UnreadCounts {
			if unread.Participant == caller {
				total += unread.Count
			}
		}
	}
	return actor.Ok(total)
}

func (r *Replica) getPrivacySettings(caller identity.Principal) actor.Result[actor.PrivacySettings] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return actor.Ok(r.state.privacyOf(caller.String()))
}

func (r *Replica) setPrivacySettings(caller identity.Principal, settings actor.PrivacySettings) actor.Result[actor.Unit] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Unit]("Anonymous users cannot change privacy settings")
	}
	if _, err := actor.ParseMessagePolicy(string(settings.AllowMessagesFrom)); err != nil {
		return actor.Err[actor.Unit]("%v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Privacy[caller.String()] = settings
	return actor.Ok(actor.Unit{})
}

func (r *Replica) editMessage(caller identity.Principal, id, content string) actor.Result[actor.Message] {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return actor.Err[actor.Message]("Message cannot be empty")
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return actor.Err[actor.Message]("Message must be at most %d characters", MaxMessageLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	conversationID, index, ok := r.state.findMessage(id)
	if !ok {
		return actor.Err[actor.Message]("Message not found")
	}
	message := &r.state.Messages[conversationID][index]
	switch {
	case message.Sender != caller:
		return actor.Err[actor.Message]("You can only edit your own messages")
	case message.MessageType == actor.MessageSystem:
		return actor.Err[actor.Message]("System messages cannot be edited")
	}
	message.Content = content
	message.IsEdited = true
	r.refreshPreviewLocked(conversationID)
	return actor.Ok(*message)
}

func (r *Replica) deleteMessage(caller identity.Principal, id string) actor.Result[actor.Unit] {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversationID, index, ok := r.state.findMessage(id)
	if !ok {
		return actor.Err[actor.Unit]("Message not found")
	}
	if r.state.Messages[conversationID][index].Sender != caller {
		return actor.Err[actor.Unit]("You can only delete your own messages")
	}
	r.state.Messages[conversationID] = slices.Delete(r.state.Messages[conversationID], index, index+1)
	r.refreshPreviewLocked(conversationID)
	return actor.Ok(actor.Unit{})
}

// refreshPreviewLocked recomputes the preview from the newest message.
func (r *Replica) refreshPreviewLocked(conversationID string) {
	conversation := r.state.Conversations[conversationID]
	messages := r.state.Messages[conversationID]
	if len(messages) == 0 {
		conversation.LastMessage = ""
		conversation.LastMessageAt = 0
	} else {
		last := messages[len(messages)-1]
		conversation.LastMessage = preview(last)
		conversation.LastMessageAt = last.Timestamp
	}
	r.state.Conversations[conversationID] = conversation
}
