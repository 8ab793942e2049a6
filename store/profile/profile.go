// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile loads one user's page (profile, recent posts and
// follow state) and follows or unfollows them.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/store"
)

// DefaultBio stands in for a user who has no stored profile.
const DefaultBio = "This user has not set a bio yet."

const (
	// postWindow is how many recent posts are searched for the user's
	// own.
	postWindow = 20

	// existenceWindow is how many recent posts are searched to decide
	// whether a user with no profile has ever posted.
	existenceWindow = 50

	unknownUserID = "unknown-user"
)

// Backend is the part of the content actor profile pages use.
type Backend interface {
	GetUserProfileByUsername(ctx context.Context, username string) (actor.UserProfile, error)
	GetPrincipalByUsername(ctx context.Context, username string) (identity.Principal, error)
	GetPosts(ctx context.Context, limit, offset uint64) ([]actor.Post, error)
}

// Social is the follow-graph actor.
type Social interface {
	IsFollowing(ctx context.Context, follower, followee identity.Principal) (bool, error)
	FollowUser(ctx context.Context, target identity.Principal) error
	UnfollowUser(ctx context.Context, target identity.Principal) error
}

// Page is one loaded profile page.
type Page struct {
	Profile actor.UserProfile
	Posts   []actor.Post

	// Own is set when the page is the viewer's.
	Own bool

	// Placeholder is set when no profile is stored under the name.
	Placeholder bool

	// Following is whether the viewer follows this user. It is false
	// on the viewer's own page and for placeholders.
	Following bool
}

// Options configures New.
type Options struct {
	Backend Backend
	Social  Social
	Logger  *slog.Logger
}

// Store is safe for concurrent use.
type Store struct {
	logger  *slog.Logger
	changes *store.Signal

	mu         sync.Mutex
	backend    Backend
	social     Social
	viewer     identity.Principal
	own        *actor.UserProfile
	page       *Page
	loading    bool
	errText    string
	generation uint64
}

// New returns a store with no page loaded.
func New(options Options) *Store {
	return &Store{
		backend: options.Backend,
		social:  options.Social,
		logger:  logging.Component(options.Logger, "profile"),
		changes: store.NewSignal(),
	}
}

// SetActors swaps the actors and drops the loaded page.
func (s *Store) SetActors(backend Backend, social Social) {
	s.mu.Lock()
	s.backend, s.social = backend, social
	s.page = nil
	s.generation++
	s.mu.Unlock()
	s.changes.Notify()
}

// SetViewer records who is looking. own is the viewer's cached
// profile, nil when they have none.
func (s *Store) SetViewer(viewer identity.Principal, own *actor.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = viewer
	s.own = nil
	if own != nil {
		copied := *own
		s.own = &copied
	}
}

func (s *Store) Changes() <-chan struct{} { return s.changes.C() }

// Current returns the loaded page, loading flag and error text.
func (s *Store) Current() (*Page, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, s.loading, s.errText
	}
	page := *s.page
	page.Posts = slices.Clone(page.Posts)
	return &page, s.loading, s.errText
}

// Load builds username's page. The profile comes from the backend,
// then from the viewer's own cached profile, then from a placeholder.
// A Load superseded by a later one returns its page without storing
// it.
func (s *Store) Load(ctx context.Context, username string) (Page, error) {
	s.mu.Lock()
	backend, social, viewer, own := s.backend, s.social, s.viewer, s.own
	if backend == nil {
		s.mu.Unlock()
		return Page{}, store.Invalid("username", "not connected")
	}
	s.generation++
	generation := s.generation
	s.loading = true
	s.errText = ""
	s.mu.Unlock()
	s.changes.Notify()

	page, err := s.build(ctx, backend, social, viewer, own, username)

	s.mu.Lock()
	if generation == s.generation {
		s.loading = false
		if err != nil {
			s.errText = fmt.Sprintf("Error loading profile: %v", err)
		} else {
			stored := page
			s.page = &stored
		}
	}
	s.mu.Unlock()
	s.changes.Notify()
	if err != nil {
		return Page{}, fmt.Errorf("loading profile %q: %w", username, err)
	}
	return page, nil
}

func (s *Store) build(ctx context.Context, backend Backend, social Social, viewer identity.Principal, own *actor.UserProfile, username string) (Page, error) {
	isOwn := own != nil && own.Name == username
	page := Page{Own: isOwn}

	found, err := backend.GetUserProfileByUsername(ctx, username)
	switch {
	case err == nil:
		page.Profile = found
	case isOwn:
		page.Profile = *own
	default:
		s.logger.DebugContext(ctx, "no stored profile", "username", username, "error", err)
		page.Placeholder = true
		page.Profile = actor.UserProfile{Name: username, Bio: DefaultBio, ID: unknownUserID}
		if recent, err := backend.GetPosts(ctx, existenceWindow, 0); err == nil && slices.ContainsFunc(recent, byAuthor(username)) {
			page.Profile.ID = "user-" + username
		}
	}

	posts, err := backend.GetPosts(ctx, postWindow, 0)
	if err != nil {
		return Page{}, err
	}
	page.Posts = slices.DeleteFunc(posts, func(post actor.Post) bool { return post.AuthorName != username })

	if !page.Own && !page.Placeholder && social != nil && !viewer.IsZero() && !viewer.IsAnonymous() {
		following, err := isFollowing(ctx, backend, social, viewer, username)
		if err != nil {
			s.logger.WarnContext(ctx, "checking follow state", "username", username, "error", err)
		}
		page.Following = following
	}
	return page, nil
}

func byAuthor(username string) func(actor.Post) bool {
	return func(post actor.Post) bool { return post.AuthorName == username }
}

func isFollowing(ctx context.Context, backend Backend, social Social, viewer identity.Principal, username string) (bool, error) {
	target, err := backend.GetPrincipalByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return social.IsFollowing(ctx, viewer, target)
}

// IsFollowing reports whether the viewer follows username.
func (s *Store) IsFollowing(ctx context.Context, username string) (bool, error) {
	backend, social, viewer, err := s.graph()
	if err != nil {
		return false, err
	}
	following, err := isFollowing(ctx, backend, social, viewer, username)
	if err != nil {
		return false, fmt.Errorf("checking whether you follow %s: %w", username, err)
	}
	return following, nil
}

// Follow makes the viewer follow username.
func (s *Store) Follow(ctx context.Context, username string) error {
	return s.setFollowing(ctx, username, true)
}

// Unfollow removes the viewer's follow of username.
func (s *Store) Unfollow(ctx context.Context, username string) error {
	return s.setFollowing(ctx, username, false)
}

func (s *Store) setFollowing(ctx context.Context, username string, follow bool) error {
	backend, social, viewer, err := s.graph()
	if err != nil {
		return err
	}
	target, err := backend.GetPrincipalByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", username, err)
	}
	if target == viewer {
		return store.Invalid("username", "you cannot follow yourself")
	}

	action := "follow"
	if follow {
		err = social.FollowUser(ctx, target)
	} else {
		action = "unfollow"
		err = social.UnfollowUser(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, username, err)
	}
	logging.UserAction(ctx, s.logger, action, "username", username, "target", target.String())

	s.mu.Lock()
	if s.page != nil && s.page.Profile.Name == username {
		s.page.Following = follow
	}
	s.mu.Unlock()
	s.changes.Notify()
	return nil
}

func (s *Store) graph() (Backend, Social, identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil || s.social == nil || s.viewer.IsZero() || s.viewer.IsAnonymous() {
		return nil, nil, identity.Principal{}, store.Invalid("viewer", "sign in to follow users")
	}
	return s.backend, s.social, s.viewer, nil
}
