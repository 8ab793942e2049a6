// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed caches the most recent posts and applies the caller's
// posts, likes and comments to them.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/store"
)

const (
	// PageSize is how many posts the feed shows.
	PageSize = 10

	MaxPostLength    = 1000
	MaxCommentLength = 500

	// anonymousAuthor is sent when the caller's profile has no name.
	anonymousAuthor = "Anonymous"
)

// ErrNoProfile is returned by CreatePost and AddComment before the
// caller has set a profile.
var ErrNoProfile = errors.New("please set your profile before creating posts")

// Backend is the part of the content actor the feed uses.
type Backend interface {
	GetPosts(ctx context.Context, limit, offset uint64) ([]actor.Post, error)
	CreatePost(ctx context.Context, post actor.NewPost) (actor.Post, error)
	LikePost(ctx context.Context, postID uint64) (actor.Post, error)
	AddComment(ctx context.Context, comment actor.NewComment) (actor.Post, error)
}

// View is a consistent copy of the feed.
type View struct {
	Posts   []actor.Post
	Loading bool
	Error   string
}

// Store is safe for concurrent use.
type Store struct {
	logger  *slog.Logger
	changes *store.Signal

	mu      sync.Mutex
	backend Backend
	profile *actor.UserProfile
	posts   []actor.Post
	loading bool
	errText string
}

// New returns an empty feed. backend may be nil until login.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logging.Component(logger, "feed"),
		changes: store.NewSignal(),
	}
}

// SetBackend swaps the backend and drops the cached posts.
func (s *Store) SetBackend(backend Backend) {
	s.mu.Lock()
	s.backend = backend
	s.posts = nil
	s.errText = ""
	s.mu.Unlock()
	s.changes.Notify()
}

// SetProfile records whose name new posts and comments carry. Nil
// disables posting.
func (s *Store) SetProfile(profile *actor.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile == nil {
		s.profile = nil
		return
	}
	copied := *profile
	s.profile = &copied
}

func (s *Store) Changes() <-chan struct{} { return s.changes.C() }

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{Posts: slices.Clone(s.posts), Loading: s.loading, Error: s.errText}
}

// LoadPosts replaces the feed with the newest posts.
func (s *Store) LoadPosts(ctx context.Context) error {
	s.mu.Lock()
	backend := s.backend
	if backend == nil {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.errText = ""
	s.mu.Unlock()
	s.changes.Notify()

	posts, err := backend.GetPosts(ctx, PageSize, 0)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errText = describe("load posts", "loading posts", err)
	} else {
		s.posts = posts
	}
	s.mu.Unlock()
	s.changes.Notify()
	if err != nil {
		s.logger.WarnContext(ctx, "loading posts", "error", err)
		return fmt.Errorf("loading posts: %w", err)
	}
	return nil
}

// CreatePost publishes content under the caller's profile name and
// reloads the feed.
func (s *Store) CreatePost(ctx context.Context, content string) (actor.Post, error) {
	content = strings.TrimSpace(content)
	if err := checkLength("content", content, MaxPostLength); err != nil {
		return actor.Post{}, err
	}
	backend, author, err := s.author()
	if err != nil {
		return actor.Post{}, err
	}

	post, err := backend.CreatePost(ctx, actor.NewPost{Content: content, AuthorName: author})
	if err != nil {
		s.mu.Lock()
		s.errText = describe("create post", "creating post", err)
		s.mu.Unlock()
		s.changes.Notify()
		return actor.Post{}, fmt.Errorf("creating post: %w", err)
	}
	logging.UserAction(ctx, s.logger, "post_created", "post", post.ID)
	s.LoadPosts(ctx)
	return post, nil
}

// LikePost adds the caller's like and replaces the post with the
// backend's version. Failures are logged only.
func (s *Store) LikePost(ctx context.Context, postID uint64) (actor.Post, error) {
	s.mu.Lock()
	backend := s.backend
	s.mu.Unlock()
	if backend == nil {
		return actor.Post{}, store.Invalid("post", "not signed in")
	}

	post, err := backend.LikePost(ctx, postID)
	if err != nil {
		s.logger.WarnContext(ctx, "liking post", "post", postID, "error", err)
		return actor.Post{}, fmt.Errorf("liking post %d: %w", postID, err)
	}
	s.replace(post)
	return post, nil
}

// AddComment comments on postID and replaces the post with the
// backend's version. Failures are logged only.
func (s *Store) AddComment(ctx context.Context, postID uint64, content string) (actor.Post, error) {
	content = strings.TrimSpace(content)
	if err := checkLength("comment", content, MaxCommentLength); err != nil {
		return actor.Post{}, err
	}
	backend, author, err := s.author()
	if err != nil {
		return actor.Post{}, err
	}

	post, err := backend.AddComment(ctx, actor.NewComment{PostID: postID, Content: content, AuthorName: author})
	if err != nil {
		s.logger.WarnContext(ctx, "adding comment", "post", postID, "error", err)
		return actor.Post{}, fmt.Errorf("commenting on post %d: %w", postID, err)
	}
	s.replace(post)
	return post, nil
}

func (s *Store) author() (Backend, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil || s.profile == nil {
		return nil, "", ErrNoProfile
	}
	name := s.profile.Name
	if name == "" {
		name = anonymousAuthor
	}
	return s.backend, name, nil
}

func (s *Store) replace(post actor.Post) {
	s.mu.Lock()
	for index := range s.posts {
		if s.posts[index].ID == post.ID {
			s.posts[index] = post
		}
	}
	s.mu.Unlock()
	s.changes.Notify()
}

func checkLength(field, content string, limit int) error {
	if content == "" {
		return store.Invalid(field, "must not be empty")
	}
	if n := utf8.RuneCountInString(content); n > limit {
		return store.Invalid(field, "%d characters, at most %d allowed", n, limit)
	}
	return nil
}

// describe words err for the error slot: the backend's reason after
// "Failed to <action>", or the transport detail after "Error <doing>".
func describe(action, doing string, err error) string {
	if reason := actor.Reason(err); reason != "" {
		return fmt.Sprintf("Failed to %s: %s", action, reason)
	}
	return fmt.Sprintf("Error %s: %v", doing, err)
}
