// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/store/auth"
	"github.com/chainedsocial/chainedsocial/store/feed"
	"github.com/chainedsocial/chainedsocial/store/messaging"
	"github.com/chainedsocial/chainedsocial/store/profile"
)

type feedBackend struct {
	posts []actor.Post
}

func (b *feedBackend) GetPosts(context.Context, uint64, uint64) ([]actor.Post, error) {
	return append([]actor.Post(nil), b.posts...), nil
}

func (b *feedBackend) CreatePost(_ context.Context, post actor.NewPost) (actor.Post, error) {
	created := actor.Post{ID: uint64(len(b.posts) + 1), AuthorName: post.AuthorName, Content: post.Content}
	b.posts = append([]actor.Post{created}, b.posts...)
	return created, nil
}

func (b *feedBackend) LikePost(_ context.Context, postID uint64) (actor.Post, error) {
	for index := range b.posts {
		if b.posts[index].ID == postID {
			b.posts[index].Likes++
			return b.posts[index], nil
		}
	}
	return actor.Post{}, &actor.BackendError{Method: "likePost", Reason: "Post not found"}
}

func (b *feedBackend) AddComment(_ context.Context, comment actor.NewComment) (actor.Post, error) {
	return actor.Post{}, &actor.BackendError{Method: "addComment", Reason: "unsupported"}
}

func testModel(t *testing.T, backend *feedBackend) Model {
	t.Helper()
	feedStore := feed.New(backend, nil)
	feedStore.SetProfile(&actor.UserProfile{Name: "alice"})
	model := NewModel(context.Background(), Options{
		Auth:      auth.New(auth.Options{}),
		Feed:      feedStore,
		Profile:   profile.New(profile.Options{}),
		Messaging: messaging.New(messaging.Options{}),
		Clock:     clock.Fake(epoch),
	})
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, model Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, name := range keys {
		var message tea.KeyMsg
		switch name {
		case "enter":
			message = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			message = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			message = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "ctrl+s":
			message = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			message = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
		}
		updated, next := model.Update(message)
		model, cmd = updated.(Model), next
	}
	return model, cmd
}

func TestModelSwitchesScreens(t *testing.T) {
	model := testModel(t, &feedBackend{})

	model, _ = press(t, model, "2")
	if model.screen != ScreenMessages {
		t.Fatalf("screen = %v after 2, want messages", model.screen)
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "No conversations") {
		t.Errorf("messages screen view:\n%s", view)
	}

	model, _ = press(t, model, "3")
	if model.screen != ScreenProfile {
		t.Fatalf("screen = %v after 3, want profile", model.screen)
	}
	model, _ = press(t, model, "1")
	if model.screen != ScreenFeed {
		t.Fatalf("screen = %v after 1, want feed", model.screen)
	}
}

func TestModelComposesPost(t *testing.T) {
	backend := &feedBackend{}
	model := testModel(t, backend)

	model, _ = press(t, model, "n")
	if model.mode != modeInput || model.target != inputPost {
		t.Fatalf("mode = %v target = %v after n", model.mode, model.target)
	}
	model, _ = press(t, model, "h", "e", "l", "l", "o")
	model, cmd := press(t, model, "enter")
	if model.mode != modeNormal {
		t.Fatalf("mode = %v after submitting", model.mode)
	}
	if cmd == nil {
		t.Fatal("submitting a post returned no command")
	}
	if result, ok := cmd().(resultMsg); !ok || result.err != nil {
		t.Fatalf("post command result = %#v", result)
	}

	posts := model.options.Feed.View().Posts
	if len(posts) != 1 || posts[0].Content != "hello" || posts[0].AuthorName != "alice" {
		t.Fatalf("feed after posting = %+v", posts)
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "hello") || !strings.Contains(view, "alice") {
		t.Errorf("feed view missing the new post:\n%s", view)
	}
}

func TestModelValidationErrorOnStatusLine(t *testing.T) {
	model := testModel(t, &feedBackend{})
	model.options.Feed.SetProfile(nil)

	model, _ = press(t, model, "n", "x")
	_, cmd := press(t, model, "enter")
	updated, _ := model.Update(cmd())
	model = updated.(Model)
	if !strings.Contains(model.status, "profile") {
		t.Errorf("status = %q, want the missing profile message", model.status)
	}
}

func TestModelPrivacyModal(t *testing.T) {
	model := testModel(t, &feedBackend{})
	model, _ = press(t, model, "2", "p")
	if model.mode != modePrivacy {
		t.Fatalf("mode = %v after p", model.mode)
	}
	if model.privacy.AllowMessagesFrom != actor.FollowersOnly {
		t.Fatalf("initial policy = %v, want the default", model.privacy.AllowMessagesFrom)
	}

	model, _ = press(t, model, "j", "j", "space")
	if model.privacy.AllowMessagesFrom != actor.ConnectionsOnly {
		t.Errorf("policy = %v, want connections only", model.privacy.AllowMessagesFrom)
	}
	model, _ = press(t, model, "j", "j", "j", "j", "j", "space")
	if model.privacyCursor != 6 || model.privacy.ShowReadReceipts {
		t.Errorf("cursor = %d, read receipts = %v", model.privacyCursor, model.privacy.ShowReadReceipts)
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "(•) Connections only") {
		t.Errorf("privacy view:\n%s", view)
	}

	model, cmd := press(t, model, "ctrl+s")
	if model.mode != modeNormal || cmd == nil {
		t.Errorf("ctrl+s: mode = %v, cmd = %v", model.mode, cmd)
	}
}

func TestModelNewConversationRequiresUser(t *testing.T) {
	model := testModel(t, &feedBackend{})
	model, _ = press(t, model, "2", "N")
	if model.mode != modeNewConversation || model.form == nil {
		t.Fatalf("mode = %v after N", model.mode)
	}

	model, _ = press(t, model, "a")
	if model.form.Query != "a" {
		t.Errorf("query = %q", model.form.Query)
	}
	model, _ = press(t, model, "enter")
	if model.status != errNoParticipants.Error() {
		t.Errorf("status = %q, want %q", model.status, errNoParticipants.Error())
	}

	model, _ = press(t, model, "esc")
	if model.mode != modeNormal || model.form != nil {
		t.Errorf("esc left mode = %v", model.mode)
	}
}

func TestModelToastFades(t *testing.T) {
	model := testModel(t, &feedBackend{})
	updated, cmd := model.Update(toastMsg{})
	model = updated.(Model)
	if model.toast == nil || cmd == nil {
		t.Fatal("toast not shown")
	}

	updated, _ = model.Update(toastFadeMsg{id: model.toastID - 1})
	if updated.(Model).toast == nil {
		t.Error("a stale fade cleared the current toast")
	}
	updated, _ = model.Update(toastFadeMsg{id: model.toastID})
	if updated.(Model).toast != nil {
		t.Error("toast still shown after its fade")
	}
}
