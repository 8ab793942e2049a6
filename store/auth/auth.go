// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth is the client's login state: who is signed in, their
// cached profile, the profile edit form and the username availability
// indicator.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/lib/notify"
	"github.com/chainedsocial/chainedsocial/session"
	"github.com/chainedsocial/chainedsocial/store"
)

// State is the login lifecycle.
type State string

const (
	Anonymous      State = "anonymous"
	Authenticating State = "authenticating"
	Authenticated  State = "authenticated"
)

// Availability is the answer to a username check.
type Availability string

const (
	Unknown   Availability = "unknown"
	Available Availability = "available"
	Taken     Availability = "taken"

	// Current means the name is the caller's own.
	Current Availability = "current"
)

// Backend is the part of the content actor the auth store uses.
type Backend interface {
	GetCurrentUserProfile(ctx context.Context) (actor.UserProfile, error)
	SetUserProfile(ctx context.Context, username, bio string) (actor.UserProfile, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

// Bootstrapper produces a session. *session.Bootstrapper satisfies it.
type Bootstrapper interface {
	Login(ctx context.Context) (*session.Session, error)
}

// ProfileForm is the profile editor's working copy.
type ProfileForm struct {
	Username string
	Bio      string
}

// View is a consistent copy of the store's state.
type View struct {
	State        State
	Principal    identity.Principal
	Profile      *actor.UserProfile
	Form         ProfileForm
	Editing      bool
	Availability Availability
	Session      *session.Session
}

// Options configures New.
type Options struct {
	Notifier notify.Dispatcher

	// Keys holds the persisted session key, removed on Logout.
	Keys keystore.Store

	Logger *slog.Logger
}

// Store is safe for concurrent use.
type Store struct {
	notifier notify.Dispatcher
	keys     keystore.Store
	logger   *slog.Logger
	changes  *store.Signal

	mu           sync.Mutex
	state        State
	session      *session.Session
	backend      Backend
	principal    identity.Principal
	profile      *actor.UserProfile
	form         ProfileForm
	editing      bool
	availability Availability
	logoutHooks  []func()
}

// New returns an anonymous store.
func New(options Options) *Store {
	notifier := options.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Store{
		notifier:     notifier,
		keys:         options.Keys,
		logger:       logging.Component(options.Logger, "auth"),
		changes:      store.NewSignal(),
		state:        Anonymous,
		availability: Unknown,
	}
}

// Changes receives after any state change.
func (s *Store) Changes() <-chan struct{} { return s.changes.C() }

// View returns a copy of the current state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := View{
		State:        s.state,
		Principal:    s.principal,
		Form:         s.form,
		Editing:      s.editing,
		Availability: s.availability,
		Session:      s.session,
	}
	if s.profile != nil {
		profile := *s.profile
		view.Profile = &profile
	}
	return view
}

// Profile returns the cached profile, or nil.
func (s *Store) Profile() *actor.UserProfile { return s.View().Profile }

// OnLogout registers f to run at the start of Logout, before state is
// cleared. The messaging store's Stop is registered here.
func (s *Store) OnLogout(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutHooks = append(s.logoutHooks, f)
}

// Login runs bootstrap and, on success, SetChannel. On failure the
// store returns to Anonymous and the remediation message is shown.
func (s *Store) Login(ctx context.Context, bootstrapper Bootstrapper) (*session.Session, error) {
	s.mu.Lock()
	if s.state != Anonymous {
		state := s.state
		s.mu.Unlock()
		return nil, store.Invalid("login", "already %s", state)
	}
	s.state = Authenticating
	s.mu.Unlock()
	s.changes.Notify()

	sess, err := bootstrapper.Login(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = Anonymous
		s.mu.Unlock()
		s.changes.Notify()

		message := "Login failed: " + err.Error()
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			message = authErr.Remediation()
		}
		notify.SendFor(ctx, s.notifier, notify.Error, 5*time.Second, "%s", message)
		return nil, err
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.SetChannel(ctx, sess.Backend(), sess.Principal)
	return sess, nil
}

// SetChannel installs an authenticated backend and loads the caller's
// profile. A caller without a profile is prompted to create one.
func (s *Store) SetChannel(ctx context.Context, backend Backend, principal identity.Principal) {
	s.mu.Lock()
	s.backend = backend
	s.principal = principal
	s.state = Authenticated
	s.mu.Unlock()
	s.changes.Notify()
	logging.AuthEvent(ctx, s.logger, "authenticated", "principal", principal.String())

	profile, err := backend.GetCurrentUserProfile(ctx)
	if err != nil {
		if !actor.IsBackendError(err) {
			s.logger.WarnContext(ctx, "loading current profile", "error", err)
		}
		notify.SendFor(ctx, s.notifier, notify.Success, 4*time.Second,
			"Logged in successfully!\nPrincipal: %s\nPlease set up your profile.", principal)
		return
	}

	s.mu.Lock()
	if s.backend != backend {
		s.mu.Unlock()
		return
	}
	s.profile = &profile
	s.mu.Unlock()
	s.changes.Notify()
	notify.SendFor(ctx, s.notifier, notify.Success, 4*time.Second, "Welcome back, %s!", profile.Name)
}

// CheckUsernameAvailable asks whether name is free. The caller's own
// name is Current without a backend call; a blank name, a missing
// login or a failed call is Unknown.
func (s *Store) CheckUsernameAvailable(ctx context.Context, name string) Availability {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	backend := s.backend
	var result Availability
	switch {
	case backend == nil || s.state != Authenticated || name == "":
		result = Unknown
	case s.profile != nil && s.profile.Name == name:
		result = Current
	}
	if result != "" {
		s.availability = result
		s.mu.Unlock()
		s.changes.Notify()
		return result
	}
	s.mu.Unlock()

	available, err := backend.IsUsernameAvailable(ctx, name)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "checking username availability", "username", name, "error", err)
		result = Unknown
	case available:
		result = Available
	default:
		result = Taken
	}

	s.mu.Lock()
	if s.backend == backend {
		s.availability = result
	}
	s.mu.Unlock()
	s.changes.Notify()
	return result
}

// SetProfile saves the caller's profile. A blank name is rejected
// locally. On success the cache holds the backend's version and the
// edit form is cleared.
func (s *Store) SetProfile(ctx context.Context, name, bio string) (actor.UserProfile, error) {
	if strings.TrimSpace(name) == "" {
		return actor.UserProfile{}, store.Invalid("username", "must not be empty")
	}

	s.mu.Lock()
	backend := s.backend
	s.mu.Unlock()
	if backend == nil {
		return actor.UserProfile{}, store.Invalid("session", "not logged in")
	}

	logging.UserAction(ctx, s.logger, "set profile", "username", name)
	profile, err := backend.SetUserProfile(ctx, name, bio)
	if err != nil {
		reason := actor.Reason(err)
		if reason == "" {
			reason = err.Error()
		}
		notify.SendFor(ctx, s.notifier, notify.Error, 5*time.Second, "Failed to save profile: %s", reason)
		return actor.UserProfile{}, err
	}

	s.mu.Lock()
	if s.backend == backend {
		s.profile = &profile
		s.form = ProfileForm{}
		s.editing = false
		s.availability = Unknown
	}
	s.mu.Unlock()
	s.changes.Notify()
	notify.SendFor(ctx, s.notifier, notify.Success, 3*time.Second, "Profile saved successfully!")
	return profile, nil
}

// BeginEdit fills the form from the cached profile.
func (s *Store) BeginEdit() {
	s.mu.Lock()
	s.editing = true
	if s.profile != nil {
		s.form = ProfileForm{Username: s.profile.Name, Bio: s.profile.Bio}
	}
	s.mu.Unlock()
	s.changes.Notify()
}

// UpdateForm replaces the form's contents.
func (s *Store) UpdateForm(form ProfileForm) {
	s.mu.Lock()
	s.form = form
	s.mu.Unlock()
	s.changes.Notify()
}

// CancelEdit discards the form.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	s.editing = false
	s.form = ProfileForm{}
	s.availability = Unknown
	s.mu.Unlock()
	s.changes.Notify()
}

// Logout ends the session and forgets the persisted session key, so
// the next login yields a new identity.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]func(){}, s.logoutHooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook()
	}

	s.mu.Lock()
	principal := s.principal
	s.state = Anonymous
	s.session = nil
	s.backend = nil
	s.principal = identity.Principal{}
	s.profile = nil
	s.form = ProfileForm{}
	s.editing = false
	s.availability = Unknown
	s.mu.Unlock()
	s.changes.Notify()

	err := session.Forget(ctx, s.keys)
	if err != nil {
		s.logger.WarnContext(ctx, "clearing persisted session", "error", err)
	}
	logging.AuthEvent(ctx, s.logger, "logged out", "principal", principal.String())
	notify.Send(ctx, s.notifier, notify.Success, "Logged out successfully!")
	return err
}
