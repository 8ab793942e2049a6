// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"fmt"
	"slices"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/codec"
)

// snapshotVersion is bumped whenever State changes incompatibly.
const snapshotVersion = 1

// State is everything the three actors hold. Principals are keyed by
// their textual form.
type State struct {
	Profiles map[string]actor.UserProfile `cbor:"profiles"`

	// Posts are oldest first.
	Posts         []actor.Post `cbor:"posts"`
	NextPostID    uint64       `cbor:"nextPostId"`
	NextCommentID uint64       `cbor:"nextCommentId"`

	// Follows maps a follower to the principals it follows.
	Follows map[string][]string `cbor:"follows"`

	Conversations map[string]actor.Conversation `cbor:"conversations"`

	// Messages are oldest first per conversation.
	Messages map[string][]actor.Message `cbor:"messages"`

	Privacy map[string]actor.PrivacySettings `cbor:"privacy"`
}

func newState() *State {
	return &State{
		Profiles:      make(map[string]actor.UserProfile),
		NextPostID:    1,
		NextCommentID: 1,
		Follows:       make(map[string][]string),
		Conversations: make(map[string]actor.Conversation),
		Messages:      make(map[string][]actor.Message),
		Privacy:       make(map[string]actor.PrivacySettings),
	}
}

// fill replaces nil maps left by decoding an older or empty snapshot.
func (s *State) fill() {
	if s.Profiles == nil {
		s.Profiles = make(map[string]actor.UserProfile)
	}
	if s.Follows == nil {
		s.Follows = make(map[string][]string)
	}
	if s.Conversations == nil {
		s.Conversations = make(map[string]actor.Conversation)
	}
	if s.Messages == nil {
		s.Messages = make(map[string][]actor.Message)
	}
	if s.Privacy == nil {
		s.Privacy = make(map[string]actor.PrivacySettings)
	}
	if s.NextPostID == 0 {
		s.NextPostID = 1
	}
	if s.NextCommentID == 0 {
		s.NextCommentID = 1
	}
}

type snapshot struct {
	Version int    `cbor:"version"`
	State   *State `cbor:"state"`
}

// Snapshot encodes the current state.
func (r *Replica) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := codec.Marshal(snapshot{Version: snapshotVersion, State: r.state})
	if err != nil {
		return nil, fmt.Errorf("encoding replica snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the state with a snapshot from Snapshot.
func (r *Replica) Restore(data []byte) error {
	var decoded snapshot
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decoding replica snapshot: %w", err)
	}
	if decoded.Version != snapshotVersion {
		return fmt.Errorf("replica snapshot version %d, want %d", decoded.Version, snapshotVersion)
	}
	if decoded.State == nil {
		decoded.State = newState()
	}
	decoded.State.fill()

	r.mu.Lock()
	r.state = decoded.State
	r.mu.Unlock()
	r.logger.Info("restored replica state",
		"profiles", len(decoded.State.Profiles),
		"posts", len(decoded.State.Posts),
		"conversations", len(decoded.State.Conversations))
	return nil
}

func (s *State) following(follower, followee string) bool {
	return slices.Contains(s.Follows[follower], followee)
}

// profileByName finds a profile by exact name.
func (s *State) profileByName(name string) (string, actor.UserProfile, bool) {
	for key, profile := range s.Profiles {
		if profile.Name == name {
			return key, profile, true
		}
	}
	return "", actor.UserProfile{}, false
}

func (s *State) privacyOf(principal string) actor.PrivacySettings {
	if settings, ok := s.Privacy[principal]; ok {
		return settings
	}
	return actor.DefaultPrivacySettings()
}

// findMessage locates a message by id across conversations.
func (s *State) findMessage(id string) (conversationID string, index int, ok bool) {
	for conversation, messages := range s.Messages {
		for position, message := range messages {
			if message.ID == id {
				return conversation, position, true
			}
		}
	}
	return "", 0, false
}
