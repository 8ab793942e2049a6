// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/notify"
	"github.com/chainedsocial/chainedsocial/session"
	"github.com/chainedsocial/chainedsocial/store"
)

type fakeBackend struct {
	mu            sync.Mutex
	profile       *actor.UserProfile
	taken         map[string]bool
	rejectSave    string
	checks        []string
	saves         int
	transportFail error
}

func (f *fakeBackend) GetCurrentUserProfile(ctx context.Context) (actor.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transportFail != nil {
		return actor.UserProfile{}, f.transportFail
	}
	if f.profile == nil {
		return actor.UserProfile{}, &actor.BackendError{Method: "getCurrentUserProfile", Reason: "Profile not found"}
	}
	return *f.profile, nil
}

func (f *fakeBackend) SetUserProfile(ctx context.Context, username, bio string) (actor.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.rejectSave != "" {
		return actor.UserProfile{}, &actor.BackendError{Method: "setUserProfile", Reason: f.rejectSave}
	}
	f.profile = &actor.UserProfile{Name: username, Bio: bio, ID: "profile-1"}
	return *f.profile, nil
}

func (f *fakeBackend) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, username)
	return !f.taken[username], nil
}

func (f *fakeBackend) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checks)
}

func principal(t *testing.T) identity.Principal {
	t.Helper()
	signer, err := identity.GenerateEd25519()
	if err != nil {
		t.Fatal(err)
	}
	return signer.Principal()
}

func authenticated(t *testing.T, backend *fakeBackend) (*Store, *notify.Recorder) {
	t.Helper()
	recorder := &notify.Recorder{}
	s := New(Options{Notifier: recorder, Keys: keystore.NewMemory()})
	s.SetChannel(context.Background(), backend, principal(t))
	return s, recorder
}

func TestSetChannelWelcomesBack(t *testing.T) {
	backend := &fakeBackend{profile: &actor.UserProfile{Name: "alice", Bio: "hello"}}
	s, recorder := authenticated(t, backend)

	view := s.View()
	if view.State != Authenticated || view.Profile == nil || view.Profile.Name != "alice" {
		t.Fatalf("view = %+v", view)
	}
	last, _ := recorder.Last()
	if last.Message != "Welcome back, alice!" || last.Duration != 4*time.Second {
		t.Errorf("notification = %+v", last)
	}
}

func TestSetChannelWithoutProfilePromptsSetup(t *testing.T) {
	s, recorder := authenticated(t, &fakeBackend{})

	if s.Profile() != nil {
		t.Error("profile cached for a user without one")
	}
	last, _ := recorder.Last()
	if last.Kind != notify.Success || !strings.Contains(last.Message, "Please set up your profile.") {
		t.Errorf("notification = %+v", last)
	}
}

func TestOwnUsernameIsCurrentWithoutNetwork(t *testing.T) {
	backend := &fakeBackend{profile: &actor.UserProfile{Name: "alice"}}
	s, _ := authenticated(t, backend)

	if got := s.CheckUsernameAvailable(context.Background(), "alice"); got != Current {
		t.Errorf("CheckUsernameAvailable(own name) = %s, want current", got)
	}
	if backend.checkCount() != 0 {
		t.Error("own username triggered a backend call")
	}
}

func TestTakenUsername(t *testing.T) {
	backend := &fakeBackend{taken: map[string]bool{"alice": true}}
	s, _ := authenticated(t, backend)

	if got := s.CheckUsernameAvailable(context.Background(), "alice"); got != Taken {
		t.Errorf("CheckUsernameAvailable(alice) = %s, want taken", got)
	}
	if got := s.CheckUsernameAvailable(context.Background(), "bob"); got != Available {
		t.Errorf("CheckUsernameAvailable(bob) = %s, want available", got)
	}
	if s.View().Availability != Available {
		t.Error("availability indicator not updated")
	}
}

func TestUsernameUnknownWhenAnonymousOrBlank(t *testing.T) {
	anonymous := New(Options{})
	if got := anonymous.CheckUsernameAvailable(context.Background(), "alice"); got != Unknown {
		t.Errorf("anonymous check = %s, want unknown", got)
	}

	backend := &fakeBackend{}
	s, _ := authenticated(t, backend)
	if got := s.CheckUsernameAvailable(context.Background(), "   "); got != Unknown {
		t.Errorf("blank check = %s, want unknown", got)
	}
	if backend.checkCount() != 0 {
		t.Error("blank username reached the backend")
	}
}

func TestSetProfileReplacesCacheAndClearsForm(t *testing.T) {
	backend := &fakeBackend{}
	s, recorder := authenticated(t, backend)
	s.BeginEdit()
	s.UpdateForm(ProfileForm{Username: "alice", Bio: "gardener"})

	saved, err := s.SetProfile(context.Background(), "alice", "gardener")
	if err != nil {
		t.Fatalf("SetProfile() error: %v", err)
	}
	view := s.View()
	if view.Profile == nil || *view.Profile != saved {
		t.Errorf("cached profile %+v, want the backend's %+v", view.Profile, saved)
	}
	if view.Form != (ProfileForm{}) || view.Editing {
		t.Errorf("form not cleared: %+v", view.Form)
	}
	last, _ := recorder.Last()
	if last.Message != "Profile saved successfully!" {
		t.Errorf("notification = %q", last.Message)
	}
}

func TestSetProfileRejectsBlankNameLocally(t *testing.T) {
	backend := &fakeBackend{}
	s, _ := authenticated(t, backend)

	_, err := s.SetProfile(context.Background(), "  ", "bio")
	if !store.IsValidation(err) {
		t.Fatalf("SetProfile() error = %v, want a validation error", err)
	}
	if backend.saves != 0 {
		t.Error("blank name reached the backend")
	}
}

func TestSetProfileSurfacesBackendReason(t *testing.T) {
	backend := &fakeBackend{rejectSave: "Username already taken"}
	s, recorder := authenticated(t, backend)

	_, err := s.SetProfile(context.Background(), "alice", "")
	if actor.Reason(err) != "Username already taken" {
		t.Fatalf("SetProfile() error = %v", err)
	}
	last, _ := recorder.Last()
	if last.Kind != notify.Error || last.Message != "Failed to save profile: Username already taken" {
		t.Errorf("notification = %+v", last)
	}
	if s.Profile() != nil {
		t.Error("rejected save changed the cache")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	keys := keystore.NewMemory()
	ctx := context.Background()
	keys.Set(ctx, session.SessionKeyName, []byte("abcd"))

	recorder := &notify.Recorder{}
	s := New(Options{Notifier: recorder, Keys: keys})
	s.SetChannel(ctx, &fakeBackend{profile: &actor.UserProfile{Name: "alice"}}, principal(t))
	stopped := false
	s.OnLogout(func() { stopped = true })

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	view := s.View()
	if view.State != Anonymous || view.Profile != nil || !view.Principal.IsZero() {
		t.Errorf("view after logout = %+v", view)
	}
	if !stopped {
		t.Error("logout hook did not run")
	}
	if _, err := keys.Get(ctx, session.SessionKeyName); !errors.Is(err, keystore.ErrNotFound) {
		t.Error("session key survived logout")
	}
	last, _ := recorder.Last()
	if last.Message != "Logged out successfully!" {
		t.Errorf("notification = %q", last.Message)
	}
}

type failingBootstrapper struct{ err error }

func (f failingBootstrapper) Login(context.Context) (*session.Session, error) { return nil, f.err }

func TestLoginFailureReturnsToAnonymous(t *testing.T) {
	recorder := &notify.Recorder{}
	s := New(Options{Notifier: recorder})

	authErr := &session.AuthError{Kind: session.LocalBackendUnreachable, Host: "http://localhost:4943"}
	if _, err := s.Login(context.Background(), failingBootstrapper{err: authErr}); err == nil {
		t.Fatal("Login() succeeded")
	}
	if s.View().State != Anonymous {
		t.Errorf("state = %s, want anonymous", s.View().State)
	}
	last, _ := recorder.Last()
	if last.Message != authErr.Remediation() {
		t.Errorf("notification = %q, want the remediation", last.Message)
	}
}

func TestUsernameCheckerDebounces(t *testing.T) {
	backend := &fakeBackend{taken: map[string]bool{"alice": true}}
	s, _ := authenticated(t, backend)
	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	checker := NewUsernameChecker(s, fake, DefaultUsernameDebounce)

	for _, typed := range []string{"a", "al", "ali", "alic", "alice"} {
		checker.Input(context.Background(), typed)
		fake.Advance(100 * time.Millisecond)
	}
	if backend.checkCount() != 0 {
		t.Fatal("check ran while typing")
	}
	fake.Advance(DefaultUsernameDebounce)

	if backend.checkCount() != 1 || backend.checks[0] != "alice" {
		t.Fatalf("checks = %v, want [alice]", backend.checks)
	}
	select {
	case result := <-checker.Results():
		if result != Taken {
			t.Errorf("result = %s, want taken", result)
		}
	default:
		t.Fatal("no result delivered")
	}
}
