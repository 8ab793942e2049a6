// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package replica is an in-memory development backend. It serves the
// content, social-graph and messaging actors behind the same signed
// CBOR protocol the client's agent speaks, plus a development identity
// provider, so the client can be exercised end to end without a
// network deployment.
//
// Callers are authenticated by envelope signature and delegation
// chain; every method sees the verified principal. State lives in
// memory and can be moved in and out with Snapshot and Restore.
package replica

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// Limits enforced by the actors.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxBioLength      = 500
	MaxPostLength     = 1000
	MaxCommentLength  = 500
	MaxMessageLength  = 5000
	MaxTitleLength    = 50
	maxSearchResults  = 20
)

// Canisters names the id each actor is served under.
type Canisters struct {
	Backend   string
	Social    string
	Messaging string
}

// DefaultCanisters are the ids a fresh local deployment uses.
var DefaultCanisters = Canisters{
	Backend:   "bkyz2-fmaaa-aaaaa-qaaaq-cai",
	Social:    "bd3sg-teaaa-aaaaa-qaaba-cai",
	Messaging: "be2us-64aaa-aaaaa-qaabq-cai",
}

// Options configures New.
type Options struct {
	Canisters Canisters
	Clock     clock.Clock
	Logger    *slog.Logger

	// NewID generates conversation and message ids. Defaults to
	// random UUIDs.
	NewID func() string
}

// Replica holds the actors' state. It is safe for concurrent use.
type Replica struct {
	canisters Canisters
	clock     clock.Clock
	logger    *slog.Logger
	newID     func() string

	mu    sync.Mutex
	state *State
}

// New returns an empty replica.
func New(options Options) *Replica {
	r := &Replica{
		canisters: options.Canisters,
		clock:     options.Clock,
		logger:    logging.Component(options.Logger, "replica"),
		newID:     options.NewID,
		state:     newState(),
	}
	if r.canisters == (Canisters{}) {
		r.canisters = DefaultCanisters
	}
	if r.clock == nil {
		r.clock = clock.Real()
	}
	if r.newID == nil {
		r.newID = func() string { return uuid.NewString() }
	}
	return r
}

// Canisters returns the ids the replica answers to.
func (r *Replica) Canisters() Canisters { return r.canisters }

func (r *Replica) now() int64 { return r.clock.Now().UnixNano() }

// displayName is the caller's profile name, or its principal text.
func (s *State) displayName(principal string) string {
	if profile, ok := s.Profiles[principal]; ok && profile.Name != "" {
		return profile.Name
	}
	return principal
}

func validUsername(name string) error {
	length := utf8.RuneCountInString(name)
	if length < MinUsernameLength || length > MaxUsernameLength {
		return fmt.Errorf("Username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	for _, char := range name {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' && char != '-' && char != '.' {
			return fmt.Errorf("Username may only contain letters, digits, '_', '-' and '.'")
		}
	}
	return nil
}

// Content actor.

func (r *Replica) getCurrentUserProfile(caller identity.Principal) actor.Result[actor.UserProfile] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.state.Profiles[caller.String()]; ok {
		return actor.Ok(profile)
	}
	return actor.Err[actor.UserProfile]("Profile not found")
}

func (r *Replica) setUserProfile(caller identity.Principal, username, bio string) actor.Result[actor.UserProfile] {
	if caller.IsAnonymous() {
		return actor.Err[actor.UserProfile]("Anonymous users cannot create a profile")
	}
	username = strings.TrimSpace(username)
	bio = strings.TrimSpace(bio)
	if err := validUsername(username); err != nil {
		return actor.Err[actor.UserProfile]("%v", err)
	}
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return actor.Err[actor.UserProfile]("Bio must be at most %d characters", MaxBioLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := caller.String()
	if owner, _, taken := r.state.profileByName(username); taken && owner != key {
		return actor.Err[actor.UserProfile]("Username already taken")
	}
	profile := actor.UserProfile{Name: username, Bio: bio, ID: key}
	r.state.Profiles[key] = profile
	r.logger.Info("profile saved", "principal", key, "username", username)
	return actor.Ok(profile)
}

func (r *Replica) isUsernameAvailable(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _, taken := r.state.profileByName(strings.TrimSpace(username))
	return !taken
}

func (r *Replica) getUserProfileByUsername(username string) actor.Result[actor.UserProfile] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, profile, ok := r.state.profileByName(username); ok {
		return actor.Ok(profile)
	}
	return actor.Err[actor.UserProfile]("User not found")
}

func (r *Replica) getPrincipalByUsername(username string) actor.Result[identity.Principal] {
	r.mu.Lock()
	key, _, ok := r.state.profileByName(username)
	r.mu.Unlock()
	if !ok {
		return actor.Err[identity.Principal]("User not found")
	}
	principal, err := identity.ParsePrincipal(key)
	if err != nil {
		return actor.Err[identity.Principal]("Stored principal is invalid: %v", err)
	}
	return actor.Ok(principal)
}

// searchUsers matches fragment case-insensitively anywhere in the
// name. The caller is never listed.
func (r *Replica) searchUsers(caller identity.Principal, fragment string) []actor.UserSummary {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return []actor.UserSummary{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	users := []actor.UserSummary{}
	for key, profile := range r.state.Profiles {
		if key == caller.String() || !strings.Contains(strings.ToLower(profile.Name), fragment) {
			continue
		}
		principal, err := identity.ParsePrincipal(key)
		if err != nil {
			continue
		}
		users = append(users, actor.UserSummary{Principal: principal, Username: profile.Name})
	}
	slices.SortFunc(users, func(a, b actor.UserSummary) int { return strings.Compare(a.Username, b.Username) })
	if len(users) > maxSearchResults {
		users = users[:maxSearchResults]
	}
	return users
}

// getPosts pages newest first.
func (r *Replica) getPosts(limit, offset uint64) actor.Result[[]actor.Post] {
	r.mu.Lock()
	defer r.mu.Unlock()
	posts := []actor.Post{}
	total := uint64(len(r.state.Posts))
	for index := offset; index < total && uint64(len(posts)) < limit; index++ {
		post := r.state.Posts[total-1-index]
		post.Comments = slices.Clone(post.Comments)
		posts = append(posts, post)
	}
	return actor.Ok(posts)
}

func (r *Replica) createPost(caller identity.Principal, request actor.NewPost) actor.Result[actor.Post] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Post]("Anonymous users cannot post")
	}
	content := strings.TrimSpace(request.Content)
	switch {
	case content == "":
		return actor.Err[actor.Post]("Post content cannot be empty")
	case utf8.RuneCountInString(content) > MaxPostLength:
		return actor.Err[actor.Post]("Post must be at most %d characters", MaxPostLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	author := strings.TrimSpace(request.AuthorName)
	if author == "" {
		author = r.state.displayName(caller.String())
	}
	post := actor.Post{
		ID:         r.state.NextPostID,
		AuthorName: author,
		Content:    content,
		Timestamp:  r.now(),
		Comments:   []actor.Comment{},
	}
	r.state.NextPostID++
	r.state.Posts = append(r.state.Posts, post)
	return actor.Ok(post)
}

func (r *Replica) postIndex(id uint64) int {
	return slices.IndexFunc(r.state.Posts, func(post actor.Post) bool { return post.ID == id })
}

func (r *Replica) likePost(caller identity.Principal, id uint64) actor.Result[actor.Post] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Post]("Anonymous users cannot like posts")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.postIndex(id)
	if index < 0 {
		return actor.Err[actor.Post]("Post not found")
	}
	r.state.Posts[index].Likes++
	return actor.Ok(r.state.Posts[index])
}

func (r *Replica) addComment(caller identity.Principal, request actor.NewComment) actor.Result[actor.Post] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Post]("Anonymous users cannot comment")
	}
	content := strings.TrimSpace(request.Content)
	switch {
	case content == "":
		return actor.Err[actor.Post]("Comment cannot be empty")
	case utf8.RuneCountInString(content) > MaxCommentLength:
		return actor.Err[actor.Post]("Comment must be at most %d characters", MaxCommentLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.postIndex(request.PostID)
	if index < 0 {
		return actor.Err[actor.Post]("Post not found")
	}
	author := strings.TrimSpace(request.AuthorName)
	if author == "" {
		author = r.state.displayName(caller.String())
	}
	post := &r.state.Posts[index]
	post.Comments = append(post.Comments, actor.Comment{
		ID:         r.state.NextCommentID,
		AuthorName: author,
		Content:    content,
		Timestamp:  r.now(),
	})
	r.state.NextCommentID++
	return actor.Ok(*post)
}

// Social-graph actor.

func (r *Replica) isFollowing(follower, followee identity.Principal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.following(follower.String(), followee.String())
}

func (r *Replica) followUser(caller, target identity.Principal) actor.Result[actor.Unit] {
	switch {
	case caller.IsAnonymous():
		return actor.Err[actor.Unit]("Anonymous users cannot follow")
	case caller == target:
		return actor.Err[actor.Unit]("You cannot follow yourself")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	follower, followee := caller.String(), target.String()
	if _, ok := r.state.Profiles[followee]; !ok {
		return actor.Err[actor.Unit]("User not found")
	}
	if !r.state.following(follower, followee) {
		r.state.Follows[follower] = append(r.state.Follows[follower], followee)
	}
	return actor.Ok(actor.Unit{})
}

func (r *Replica) unfollowUser(caller, target identity.Principal) actor.Result[actor.Unit] {
	if caller.IsAnonymous() {
		return actor.Err[actor.Unit]("Anonymous users cannot unfollow")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	follower := caller.String()
	r.state.Follows[follower] = slices.DeleteFunc(r.state.Follows[follower], func(followee string) bool {
		return followee == target.String()
	})
	if len(r.state.Follows[follower]) == 0 {
		delete(r.state.Follows, follower)
	}
	return actor.Ok(actor.Unit{})
}
