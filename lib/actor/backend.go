// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"context"

	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// Backend is the content actor: profiles, usernames and posts.
type Backend struct{ endpoint }

// NewBackend binds caller to the content canister.
func NewBackend(caller Caller, canisterID string) *Backend {
	return &Backend{endpoint{caller: caller, canisterID: canisterID}}
}

// GetCurrentUserProfile returns the caller's profile. A caller with no
// profile gets a *BackendError.
func (b *Backend) GetCurrentUserProfile(ctx context.Context) (UserProfile, error) {
	return query[UserProfile](ctx, b.endpoint, "getCurrentUserProfile")
}

// SetUserProfile creates or replaces the caller's profile and returns
// the stored version.
func (b *Backend) SetUserProfile(ctx context.Context, username, bio string) (UserProfile, error) {
	return call[UserProfile](ctx, b.endpoint, "setUserProfile", username, bio)
}

// IsUsernameAvailable answers with a bare bool.
func (b *Backend) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var available bool
	if err := b.caller.Query(ctx, b.canisterID, "isUsernameAvailable", &available, username); err != nil {
		return false, err
	}
	return available, nil
}

// GetUserProfileByUsername looks a profile up by its unique name.
func (b *Backend) GetUserProfileByUsername(ctx context.Context, username string) (UserProfile, error) {
	return query[UserProfile](ctx, b.endpoint, "getUserProfileByUsername", username)
}

// GetPrincipalByUsername resolves a username to its owner.
func (b *Backend) GetPrincipalByUsername(ctx context.Context, username string) (identity.Principal, error) {
	return query[identity.Principal](ctx, b.endpoint, "getPrincipalByUsername", username)
}

// SearchUsers returns users whose name contains fragment. It answers
// with a bare list.
func (b *Backend) SearchUsers(ctx context.Context, fragment string) ([]UserSummary, error) {
	var users []UserSummary
	if err := b.caller.Query(ctx, b.canisterID, "searchUsers", &users, fragment); err != nil {
		return nil, err
	}
	return users, nil
}

// GetPosts returns up to limit posts, newest first, skipping offset.
func (b *Backend) GetPosts(ctx context.Context, limit, offset uint64) ([]Post, error) {
	return query[[]Post](ctx, b.endpoint, "getPosts", limit, offset)
}

// CreatePost publishes a post.
func (b *Backend) CreatePost(ctx context.Context, post NewPost) (Post, error) {
	return call[Post](ctx, b.endpoint, "createPost", post)
}

// LikePost adds a like and returns the updated post.
func (b *Backend) LikePost(ctx context.Context, postID uint64) (Post, error) {
	return call[Post](ctx, b.endpoint, "likePost", postID)
}

// AddComment appends a comment and returns the updated post.
func (b *Backend) AddComment(ctx context.Context, comment NewComment) (Post, error) {
	return call[Post](ctx, b.endpoint, "addComment", comment)
}
