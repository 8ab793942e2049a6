// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/store"
)

type memoryBackend struct {
	posts    []actor.Post
	limits   []uint64
	created  []actor.NewPost
	failWith error
}

func (m *memoryBackend) GetPosts(ctx context.Context, limit, offset uint64) ([]actor.Post, error) {
	m.limits = append(m.limits, limit)
	if m.failWith != nil {
		return nil, m.failWith
	}
	if uint64(len(m.posts)) > limit {
		return append([]actor.Post(nil), m.posts[:limit]...), nil
	}
	return append([]actor.Post(nil), m.posts...), nil
}

func (m *memoryBackend) CreatePost(ctx context.Context, post actor.NewPost) (actor.Post, error) {
	if m.failWith != nil {
		return actor.Post{}, m.failWith
	}
	m.created = append(m.created, post)
	created := actor.Post{ID: uint64(len(m.posts) + 1), AuthorName: post.AuthorName, Content: post.Content}
	m.posts = append([]actor.Post{created}, m.posts...)
	return created, nil
}

func (m *memoryBackend) LikePost(ctx context.Context, postID uint64) (actor.Post, error) {
	for index := range m.posts {
		if m.posts[index].ID == postID {
			m.posts[index].Likes++
			return m.posts[index], nil
		}
	}
	return actor.Post{}, &actor.BackendError{Method: "likePost", Reason: "Post not found"}
}

func (m *memoryBackend) AddComment(ctx context.Context, comment actor.NewComment) (actor.Post, error) {
	for index := range m.posts {
		if m.posts[index].ID == comment.PostID {
			m.posts[index].Comments = append(m.posts[index].Comments, actor.Comment{
				AuthorName: comment.AuthorName,
				Content:    comment.Content,
			})
			return m.posts[index], nil
		}
	}
	return actor.Post{}, &actor.BackendError{Method: "addComment", Reason: "Post not found"}
}

func seeded(n int) *memoryBackend {
	backend := &memoryBackend{}
	for i := n; i >= 1; i-- {
		backend.posts = append(backend.posts, actor.Post{ID: uint64(i), AuthorName: "bob", Content: "post"})
	}
	return backend
}

func TestLoadPostsShowsTenNewest(t *testing.T) {
	backend := seeded(15)
	s := New(backend, nil)

	if err := s.LoadPosts(context.Background()); err != nil {
		t.Fatal(err)
	}
	view := s.View()
	if len(view.Posts) != PageSize || view.Posts[0].ID != 15 {
		t.Errorf("feed = %d posts starting at %d, want 10 starting at 15", len(view.Posts), view.Posts[0].ID)
	}
	if backend.limits[0] != PageSize {
		t.Errorf("requested %d posts", backend.limits[0])
	}
}

func TestCreatePostRequiresProfile(t *testing.T) {
	backend := seeded(0)
	s := New(backend, nil)

	if _, err := s.CreatePost(context.Background(), "hello"); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("CreatePost() without profile = %v, want ErrNoProfile", err)
	}
	if len(backend.created) != 0 {
		t.Fatal("backend called without a profile")
	}
}

func TestCreatePostTrimsAndReloads(t *testing.T) {
	backend := seeded(1)
	s := New(backend, nil)
	s.SetProfile(&actor.UserProfile{Name: "alice"})

	post, err := s.CreatePost(context.Background(), "  first light  \n")
	if err != nil {
		t.Fatal(err)
	}
	sent := backend.created[0]
	if sent.Content != "first light" || sent.AuthorName != "alice" {
		t.Errorf("sent %+v", sent)
	}
	view := s.View()
	if len(view.Posts) != 2 || view.Posts[0].ID != post.ID {
		t.Errorf("feed not reloaded with the new post: %+v", view.Posts)
	}
}

func TestCreatePostValidation(t *testing.T) {
	s := New(seeded(0), nil)
	s.SetProfile(&actor.UserProfile{Name: "alice"})

	for _, content := range []string{"   ", strings.Repeat("é", MaxPostLength+1)} {
		if _, err := s.CreatePost(context.Background(), content); !store.IsValidation(err) {
			t.Errorf("CreatePost(%d chars) = %v, want validation", len(content), err)
		}
	}
	if _, err := s.CreatePost(context.Background(), strings.Repeat("é", MaxPostLength)); err != nil {
		t.Errorf("post at the limit rejected: %v", err)
	}
}

func TestLikeAndCommentReplaceInPlace(t *testing.T) {
	backend := seeded(3)
	s := New(backend, nil)
	s.SetProfile(&actor.UserProfile{Name: "alice"})
	ctx := context.Background()
	s.LoadPosts(ctx)

	if _, err := s.LikePost(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddComment(ctx, 2, " nice "); err != nil {
		t.Fatal(err)
	}

	view := s.View()
	if view.Posts[1].ID != 2 {
		t.Fatalf("post order changed: %+v", view.Posts)
	}
	if view.Posts[1].Likes != 1 {
		t.Errorf("likes = %d, want 1", view.Posts[1].Likes)
	}
	comments := view.Posts[1].Comments
	if len(comments) != 1 || comments[0].Content != "nice" || comments[0].AuthorName != "alice" {
		t.Errorf("comments = %+v", comments)
	}

	if _, err := s.AddComment(ctx, 2, strings.Repeat("x", MaxCommentLength+1)); !store.IsValidation(err) {
		t.Errorf("long comment = %v, want validation", err)
	}
}

func TestLoadErrorWording(t *testing.T) {
	backend := seeded(0)
	s := New(backend, nil)

	backend.failWith = &actor.BackendError{Method: "getPosts", Reason: "Rate limited"}
	s.LoadPosts(context.Background())
	if got := s.View().Error; got != "Failed to load posts: Rate limited" {
		t.Errorf("error = %q", got)
	}

	backend.failWith = errors.New("connection refused")
	s.LoadPosts(context.Background())
	if got := s.View().Error; got != "Error loading posts: connection refused" {
		t.Errorf("error = %q", got)
	}
}
