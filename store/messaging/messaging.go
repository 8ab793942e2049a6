// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the client-side cache of the user's
// conversations, the open conversation's messages, the unread total
// and the privacy settings.
//
// The backend is authoritative. Lists are replaced wholesale on every
// load, and mutations change the cache only after the backend
// acknowledges them. Sending appends the backend's canonical message,
// and only when the conversation is still the open one. A background
// poll refreshes conversations and the unread total.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/store"
)

// Defaults for Options.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultPageSize     = 50
	DefaultErrorDisplay = 5 * time.Second
)

// ErrNotReady is returned by every operation before an actor is set.
var ErrNotReady = errors.New("messaging is not available until login completes")

// Actor is the messaging backend. *actor.Messaging satisfies it.
type Actor interface {
	GetUserConversations(ctx context.Context) ([]actor.Conversation, error)
	GetConversationMessages(ctx context.Context, conversationID string, limit, offset uint64) ([]actor.Message, error)
	SendMessage(ctx context.Context, request actor.SendMessageRequest) (actor.Message, error)
	CreateConversation(ctx context.Context, request actor.CreateConversationRequest) (actor.Conversation, error)
	MarkConversationAsRead(ctx context.Context, conversationID string) error
	GetUnreadMessageCount(ctx context.Context) (uint64, error)
	GetPrivacySettings(ctx context.Context) (actor.PrivacySettings, error)
	SetPrivacySettings(ctx context.Context, settings actor.PrivacySettings) error
	EditMessage(ctx context.Context, messageID, content string) (actor.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// Options configures New. Zero durations and sizes take the defaults.
type Options struct {
	Actor        Actor
	PollInterval time.Duration
	PageSize     int
	ErrorDisplay time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// View is a consistent copy of the store's state.
type View struct {
	Conversations []actor.Conversation
	Active        *actor.Conversation
	Messages      []actor.Message
	UnreadCount   uint64
	Privacy       *actor.PrivacySettings
	Loading       bool
	Error         string
}

// Store is safe for concurrent use.
type Store struct {
	pollInterval time.Duration
	pageSize     int
	errorDisplay time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	changes      *store.Signal

	mu            sync.Mutex
	actor         Actor
	conversations []actor.Conversation
	active        *actor.Conversation
	messages      []actor.Message
	unread        uint64
	privacy       *actor.PrivacySettings
	loading       int

	// selection increments on every SelectConversation so a fetch
	// that completes after the user moved on can be recognised.
	selection       uint64
	cancelSelection context.CancelFunc

	errorText       string
	errorGeneration uint64
	errorTimer      *clock.Timer

	poll *poller
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an empty store.
func New(options Options) *Store {
	s := &Store{
		actor:        options.Actor,
		pollInterval: options.PollInterval,
		pageSize:     options.PageSize,
		errorDisplay: options.ErrorDisplay,
		clock:        options.Clock,
		logger:       logging.Component(options.Logger, "messaging"),
		changes:      store.NewSignal(),
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.errorDisplay <= 0 {
		s.errorDisplay = DefaultErrorDisplay
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	return s
}

// SetActor installs the backend, or removes it when nil. Removing it
// stops polling and clears every cache.
func (s *Store) SetActor(a Actor) {
	if a == nil {
		s.Stop()
	}
	s.mu.Lock()
	s.actor = a
	if a == nil {
		s.resetLocked()
	}
	s.mu.Unlock()
	s.changes.Notify()
}

func (s *Store) resetLocked() {
	if s.cancelSelection != nil {
		s.cancelSelection()
		s.cancelSelection = nil
	}
	s.selection++
	s.conversations = nil
	s.active = nil
	s.messages = nil
	s.unread = 0
	s.privacy = nil
	s.clearErrorLocked()
}

// Changes receives after any state change.
func (s *Store) Changes() <-chan struct{} { return s.changes.C() }

// View returns a copy of the current state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := View{
		Conversations: slices.Clone(s.conversations),
		Messages:      slices.Clone(s.messages),
		UnreadCount:   s.unread,
		Loading:       s.loading > 0,
		Error:         s.errorText,
	}
	if s.active != nil {
		active := *s.active
		view.Active = &active
	}
	if s.privacy != nil {
		privacy := *s.privacy
		view.Privacy = &privacy
	}
	return view
}

// Start loads conversations, the unread total and privacy settings,
// then refreshes conversations and the unread total every poll
// interval until Stop or ctx ends. Start on a running store is a
// no-op.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.actor == nil {
		s.mu.Unlock()
		return ErrNotReady
	}
	if s.poll != nil {
		s.mu.Unlock()
		return nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p := &poller{cancel: cancel, done: make(chan struct{})}
	s.poll = p
	ticker := s.clock.NewTicker(s.pollInterval)
	s.mu.Unlock()

	go func() {
		defer close(p.done)
		defer ticker.Stop()

		s.LoadConversations(pollCtx)
		s.LoadUnreadCount(pollCtx)
		s.LoadPrivacySettings(pollCtx)

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				s.logger.Debug("refreshing conversations")
				s.LoadConversations(pollCtx)
				s.LoadUnreadCount(pollCtx)
			}
		}
	}()
	return nil
}

// Stop ends polling and waits for the poll goroutine to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	p := s.poll
	s.poll = nil
	s.mu.Unlock()
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

// Polling reports whether the background refresh is running.
func (s *Store) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll != nil
}

func (s *Store) begin() (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actor == nil {
		return nil, ErrNotReady
	}
	s.loading++
	return s.actor, nil
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	s.changes.Notify()
}

// fail records err in the error slot. A backend rejection is shown
// verbatim; anything else shows curated.
func (s *Store) fail(ctx context.Context, curated string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	message := actor.Reason(err)
	if message == "" {
		message = curated
	}
	s.logger.WarnContext(ctx, curated, "error", err)

	s.mu.Lock()
	s.setErrorLocked(message)
	s.mu.Unlock()
	s.changes.Notify()
	return err
}

func (s *Store) setErrorLocked(message string) {
	s.errorGeneration++
	generation := s.errorGeneration
	if s.errorTimer != nil {
		s.errorTimer.Stop()
	}
	s.errorText = message
	s.errorTimer = s.clock.AfterFunc(s.errorDisplay, func() {
		s.mu.Lock()
		cleared := generation == s.errorGeneration
		if cleared {
			s.errorText = ""
			s.errorTimer = nil
		}
		s.mu.Unlock()
		if cleared {
			s.changes.Notify()
		}
	})
}

func (s *Store) clearErrorLocked() {
	s.errorGeneration++
	if s.errorTimer != nil {
		s.errorTimer.Stop()
		s.errorTimer = nil
	}
	s.errorText = ""
}

// DismissError clears the error slot.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.clearErrorLocked()
	s.mu.Unlock()
	s.changes.Notify()
}

// LoadConversations replaces the conversation list.
func (s *Store) LoadConversations(ctx context.Context) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()

	conversations, err := a.GetUserConversations(ctx)
	if err != nil {
		return s.fail(ctx, "Failed to load conversations", err)
	}
	s.mu.Lock()
	if s.actor == a {
		s.conversations = conversations
		if s.active != nil {
			if index := indexConversation(conversations, s.active.ID); index >= 0 {
				refreshed := conversations[index]
				s.active = &refreshed
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// SelectConversation opens conversation, loading its most recent page
// of messages oldest first and marking it read. Nil closes the
// window. A load that finishes after another selection is dropped.
func (s *Store) SelectConversation(ctx context.Context, conversation *actor.Conversation) error {
	s.mu.Lock()
	if s.cancelSelection != nil {
		s.cancelSelection()
		s.cancelSelection = nil
	}
	s.selection++
	if conversation == nil {
		s.active = nil
		s.messages = nil
		s.mu.Unlock()
		s.changes.Notify()
		return nil
	}
	selected := *conversation
	s.active = &selected
	s.messages = nil
	selectCtx, cancel := context.WithCancel(ctx)
	s.cancelSelection = cancel
	generation := s.selection
	s.mu.Unlock()
	s.changes.Notify()

	if err := s.loadMessages(selectCtx, selected.ID, generation); err != nil {
		return err
	}
	if selectCtx.Err() != nil {
		return nil
	}
	s.MarkConversationAsRead(selectCtx, selected.ID)
	return nil
}

// loadMessages fetches the newest page of conversationID into the
// window if selection generation is still current.
func (s *Store) loadMessages(ctx context.Context, conversationID string, generation uint64) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()

	messages, err := a.GetConversationMessages(ctx, conversationID, uint64(s.pageSize), 0)

	s.mu.Lock()
	current := generation == s.selection && s.active != nil && s.active.ID == conversationID
	s.mu.Unlock()
	if !current {
		s.logger.DebugContext(ctx, "discarding messages for a conversation no longer open", "conversation", conversationID)
		return nil
	}
	if err != nil {
		return s.fail(ctx, "Failed to load messages", err)
	}

	slices.Reverse(messages)
	s.mu.Lock()
	if generation == s.selection {
		s.messages = messages
	}
	s.mu.Unlock()
	return nil
}

// ReloadMessages refetches the open conversation's window.
func (s *Store) ReloadMessages(ctx context.Context) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil
	}
	id, generation := s.active.ID, s.selection
	s.mu.Unlock()
	return s.loadMessages(ctx, id, generation)
}

// SendMessage posts a message. On success the canonical message is
// appended if conversationID is still open, and conversations are
// reloaded to pick up the new preview.
func (s *Store) SendMessage(ctx context.Context, request actor.SendMessageRequest) (actor.Message, error) {
	if strings.TrimSpace(request.Content) == "" && len(request.Attachments) == 0 {
		return actor.Message{}, store.Invalid("content", "message is empty")
	}
	if request.MessageType == "" {
		request.MessageType = actor.MessageText
	}
	a, err := s.begin()
	if err != nil {
		return actor.Message{}, err
	}

	message, err := a.SendMessage(ctx, request)
	s.end()
	if err != nil {
		return actor.Message{}, s.fail(ctx, "Failed to send message", err)
	}

	s.mu.Lock()
	if s.active != nil && s.active.ID == request.ConversationID {
		s.messages = append(s.messages, message)
	}
	s.mu.Unlock()
	s.changes.Notify()

	s.LoadConversations(ctx)
	return message, nil
}

// CreateConversation opens a new conversation and reloads the list.
func (s *Store) CreateConversation(ctx context.Context, request actor.CreateConversationRequest) (actor.Conversation, error) {
	a, err := s.begin()
	if err != nil {
		return actor.Conversation{}, err
	}
	conversation, err := a.CreateConversation(ctx, request)
	s.end()
	if err != nil {
		return actor.Conversation{}, s.fail(ctx, "Failed to create conversation", err)
	}
	s.LoadConversations(ctx)
	return conversation, nil
}

// EditMessage replaces the message in the window with the backend's
// edited version.
func (s *Store) EditMessage(ctx context.Context, messageID, content string) (actor.Message, error) {
	if strings.TrimSpace(content) == "" {
		return actor.Message{}, store.Invalid("content", "message is empty")
	}
	a, err := s.begin()
	if err != nil {
		return actor.Message{}, err
	}
	edited, err := a.EditMessage(ctx, messageID, content)
	s.end()
	if err != nil {
		return actor.Message{}, s.fail(ctx, "Failed to edit message", err)
	}

	s.mu.Lock()
	for index := range s.messages {
		if s.messages[index].ID == messageID {
			s.messages[index] = edited
		}
	}
	s.mu.Unlock()
	s.changes.Notify()
	return edited, nil
}

// DeleteMessage removes a message and reloads the open window.
func (s *Store) DeleteMessage(ctx context.Context, messageID string) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	err = a.DeleteMessage(ctx, messageID)
	s.end()
	if err != nil {
		return s.fail(ctx, "Failed to delete message", err)
	}
	return s.ReloadMessages(ctx)
}

// MarkConversationAsRead clears the conversation's unread counters
// locally once the backend acknowledges, then refreshes the total.
func (s *Store) MarkConversationAsRead(ctx context.Context, conversationID string) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	err = a.MarkConversationAsRead(ctx, conversationID)
	s.end()
	if err != nil {
		// Not shown in the error slot.
		s.logger.WarnContext(ctx, "marking conversation read", "conversation", conversationID, "error", err)
		return err
	}

	s.mu.Lock()
	if index := indexConversation(s.conversations, conversationID); index >= 0 {
		s.conversations[index].UnreadCounts = zeroed(s.conversations[index].UnreadCounts)
	}
	if s.active != nil && s.active.ID == conversationID {
		s.active.UnreadCounts = zeroed(s.active.UnreadCounts)
	}
	s.mu.Unlock()
	s.changes.Notify()

	return s.LoadUnreadCount(ctx)
}

// LoadUnreadCount refreshes the caller's unread total.
func (s *Store) LoadUnreadCount(ctx context.Context) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()
	count, err := a.GetUnreadMessageCount(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "loading unread count", "error", err)
		return err
	}
	s.mu.Lock()
	if s.actor == a {
		s.unread = count
	}
	s.mu.Unlock()
	return nil
}

// LoadPrivacySettings refreshes the caller's privacy settings.
func (s *Store) LoadPrivacySettings(ctx context.Context) error {
	a, err := s.begin()
	if err != nil {
		return err
	}
	defer s.end()
	settings, err := a.GetPrivacySettings(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "loading privacy settings", "error", err)
		return err
	}
	s.mu.Lock()
	if s.actor == a {
		s.privacy = &settings
	}
	s.mu.Unlock()
	return nil
}

// UpdatePrivacySettings saves settings and, once acknowledged,
// replaces the cached settings as a whole.
func (s *Store) UpdatePrivacySettings(ctx context.Context, settings actor.PrivacySettings) error {
	if _, err := actor.ParseMessagePolicy(string(settings.AllowMessagesFrom)); err != nil {
		return store.Invalid("allowMessagesFrom", "%v", err)
	}
	a, err := s.begin()
	if err != nil {
		return err
	}
	err = a.SetPrivacySettings(ctx, settings)
	s.end()
	if err != nil {
		return s.fail(ctx, "Failed to update privacy settings", err)
	}
	s.mu.Lock()
	s.privacy = &settings
	s.mu.Unlock()
	s.changes.Notify()
	return nil
}

// Conversation returns the cached conversation with id.
func (s *Store) Conversation(id string) (actor.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index := indexConversation(s.conversations, id); index >= 0 {
		return s.conversations[index], true
	}
	return actor.Conversation{}, false
}

func indexConversation(conversations []actor.Conversation, id string) int {
	return slices.IndexFunc(conversations, func(c actor.Conversation) bool { return c.ID == id })
}

func zeroed(counts []actor.UnreadCount) []actor.UnreadCount {
	result := make([]actor.UnreadCount, len(counts))
	for index, count := range counts {
		result[index] = actor.UnreadCount{Participant: count.Participant}
	}
	return result
}
