// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"context"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/store"
)

type directory struct {
	profiles   map[string]actor.UserProfile
	principals map[string]identity.Principal
	posts      []actor.Post
	follows    map[[2]identity.Principal]bool
}

func (d *directory) GetUserProfileByUsername(ctx context.Context, username string) (actor.UserProfile, error) {
	if profile, ok := d.profiles[username]; ok {
		return profile, nil
	}
	return actor.UserProfile{}, &actor.BackendError{Method: "getUserProfileByUsername", Reason: "User not found"}
}

func (d *directory) GetPrincipalByUsername(ctx context.Context, username string) (identity.Principal, error) {
	if principal, ok := d.principals[username]; ok {
		return principal, nil
	}
	return identity.Principal{}, &actor.BackendError{Method: "getPrincipalByUsername", Reason: "User not found"}
}

func (d *directory) GetPosts(ctx context.Context, limit, offset uint64) ([]actor.Post, error) {
	posts := append([]actor.Post(nil), d.posts...)
	if uint64(len(posts)) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (d *directory) IsFollowing(ctx context.Context, follower, followee identity.Principal) (bool, error) {
	return d.follows[[2]identity.Principal{follower, followee}], nil
}

func (d *directory) FollowUser(ctx context.Context, target identity.Principal) error {
	d.follows[[2]identity.Principal{d.principals["me"], target}] = true
	return nil
}

func (d *directory) UnfollowUser(ctx context.Context, target identity.Principal) error {
	delete(d.follows, [2]identity.Principal{d.principals["me"], target})
	return nil
}

func newDirectory(t *testing.T) *directory {
	t.Helper()
	d := &directory{
		profiles:   map[string]actor.UserProfile{},
		principals: map[string]identity.Principal{},
		follows:    map[[2]identity.Principal]bool{},
	}
	for _, name := range []string{"me", "bob"} {
		signer, err := identity.GenerateEd25519()
		if err != nil {
			t.Fatal(err)
		}
		d.principals[name] = signer.Principal()
		d.profiles[name] = actor.UserProfile{Name: name, Bio: name + "'s bio", ID: signer.Principal().String()}
	}
	d.posts = []actor.Post{
		{ID: 3, AuthorName: "bob", Content: "three"},
		{ID: 2, AuthorName: "ghost", Content: "two"},
		{ID: 1, AuthorName: "bob", Content: "one"},
	}
	return d
}

func newStore(d *directory) *Store {
	s := New(Options{Backend: d, Social: d})
	own := d.profiles["me"]
	s.SetViewer(d.principals["me"], &own)
	return s
}

func TestLoadStoredProfileWithPosts(t *testing.T) {
	d := newDirectory(t)
	s := newStore(d)

	page, err := s.Load(context.Background(), "bob")
	if err != nil {
		t.Fatal(err)
	}
	if page.Profile.Bio != "bob's bio" || page.Own || page.Placeholder {
		t.Errorf("page = %+v", page)
	}
	if len(page.Posts) != 2 || page.Posts[0].ID != 3 || page.Posts[1].ID != 1 {
		t.Errorf("posts = %+v, want bob's posts newest first", page.Posts)
	}
	if current, _, _ := s.Current(); current == nil || current.Profile.Name != "bob" {
		t.Errorf("Current() = %+v", current)
	}
}

func TestLoadOwnProfileFallsBackToCache(t *testing.T) {
	d := newDirectory(t)
	s := newStore(d)
	delete(d.profiles, "me")

	page, err := s.Load(context.Background(), "me")
	if err != nil {
		t.Fatal(err)
	}
	if !page.Own || page.Placeholder || page.Profile.Bio != "me's bio" {
		t.Errorf("page = %+v, want the cached own profile", page)
	}
}

func TestLoadPlaceholder(t *testing.T) {
	d := newDirectory(t)
	s := newStore(d)

	cases := map[string]string{
		"ghost":  "user-ghost",
		"nobody": "unknown-user",
	}
	for username, wantID := range cases {
		page, err := s.Load(context.Background(), username)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", username, err)
		}
		if !page.Placeholder || page.Profile.Bio != DefaultBio || page.Profile.ID != wantID {
			t.Errorf("Load(%s) profile = %+v, want placeholder with id %s", username, page.Profile, wantID)
		}
	}
}

func TestFollowAndUnfollow(t *testing.T) {
	d := newDirectory(t)
	s := newStore(d)
	ctx := context.Background()
	s.Load(ctx, "bob")

	if err := s.Follow(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	if following, _ := s.IsFollowing(ctx, "bob"); !following {
		t.Error("IsFollowing() = false after Follow")
	}
	if page, _, _ := s.Current(); !page.Following {
		t.Error("loaded page not updated after Follow")
	}

	reloaded, _ := s.Load(ctx, "bob")
	if !reloaded.Following {
		t.Error("reloaded page lost the follow")
	}

	if err := s.Unfollow(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	if following, _ := s.IsFollowing(ctx, "bob"); following {
		t.Error("IsFollowing() = true after Unfollow")
	}
}

func TestFollowRules(t *testing.T) {
	d := newDirectory(t)
	s := newStore(d)
	ctx := context.Background()

	if err := s.Follow(ctx, "me"); !store.IsValidation(err) {
		t.Errorf("following yourself = %v, want validation", err)
	}
	if err := s.Follow(ctx, "nobody"); !actor.IsBackendError(err) {
		t.Errorf("following an unknown user = %v, want a backend error", err)
	}

	anonymous := New(Options{Backend: d, Social: d})
	anonymous.SetViewer(identity.Anonymous(), nil)
	if err := anonymous.Follow(ctx, "bob"); !store.IsValidation(err) {
		t.Errorf("anonymous follow = %v, want validation", err)
	}
}
