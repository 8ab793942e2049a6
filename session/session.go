// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package session acquires the identity a client acts as and binds an
// authenticated agent to it.
//
// Development and sandbox logins derive a stable Ed25519 key from a
// session key persisted in the key/value store, then probe the local
// replica. Production logins obtain a delegation from the identity
// provider, retrying initialisation and delegation independently, and
// cache the delegation until it expires.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/agent"
	"github.com/chainedsocial/chainedsocial/lib/canister"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/config"
	"github.com/chainedsocial/chainedsocial/lib/delegation"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/lib/retry"
	"github.com/chainedsocial/chainedsocial/lib/secret"
)

// Keys in the key/value store.
const (
	SessionKeyName    = "chainedsocial_session_key"
	DelegationKeyName = "chainedsocial_delegation"
)

// SessionKeySize is the number of random bytes in a new session key.
const SessionKeySize = 32

// delegationRenewMargin is how close to expiry a cached delegation is
// still reused.
const delegationRenewMargin = time.Minute

// Session is one live login.
type Session struct {
	Principal   identity.Principal
	Identity    identity.Identity
	Agent       *agent.Agent
	Environment config.Environment
	Canisters   canister.IDs

	// Expiry is when the delegation lapses. Zero for seeded
	// identities, which do not expire.
	Expiry time.Time
}

// Backend returns the content actor bound to this session.
func (s *Session) Backend() *actor.Backend { return actor.NewBackend(s.Agent, s.Canisters.Backend) }

// Social returns the follow-graph actor bound to this session.
func (s *Session) Social() *actor.Social { return actor.NewSocial(s.Agent, s.Canisters.Social) }

// Messaging returns the messaging actor bound to this session.
func (s *Session) Messaging() *actor.Messaging {
	return actor.NewMessaging(s.Agent, s.Canisters.Messaging)
}

// Expired reports whether a delegated session has lapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}

// Bootstrapper runs the login flow. Fields left zero take the
// defaults noted on each.
type Bootstrapper struct {
	Environment config.Environment

	// Host is the replica URL for the environment.
	Host      string
	Canisters canister.IDs

	Store keystore.Store

	// Provider issues delegations in Production. It may be nil in
	// Development and Sandbox.
	Provider       delegation.Provider
	ProviderConfig delegation.Config

	// Attempts and Backoff bound provider initialisation and
	// delegation separately. Defaults: 3 attempts, 1s apart.
	Attempts int
	Backoff  time.Duration

	// DelegationTTL is the longest delegation requested. Default 8h.
	DelegationTTL time.Duration

	CallTimeout time.Duration
	HTTPClient  *http.Client
	Clock       clock.Clock
	Logger      *slog.Logger
}

// FromConfig builds a Bootstrapper from a resolved configuration.
func FromConfig(cfg *config.Config, store keystore.Store, provider delegation.Provider, logger *slog.Logger) (*Bootstrapper, error) {
	ids, err := canister.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return &Bootstrapper{
		Environment: cfg.Environment,
		Host:        cfg.Host(),
		Canisters:   ids,
		Store:       store,
		Provider:    provider,
		ProviderConfig: delegation.Config{
			ApplicationName: cfg.IdentityProvider.ApplicationName,
			LogoURL:         cfg.IdentityProvider.LogoURL,
		},
		Attempts:      cfg.Bootstrap.MaxAttempts,
		Backoff:       cfg.Bootstrap.Backoff.Std(),
		DelegationTTL: cfg.Bootstrap.DelegationTTL.Std(),
		CallTimeout:   cfg.Network.CallTimeout.Std(),
		Logger:        logger,
	}, nil
}

func (b *Bootstrapper) clock() clock.Clock {
	if b.Clock == nil {
		return clock.Real()
	}
	return b.Clock
}

func (b *Bootstrapper) logger() *slog.Logger {
	return logging.Component(b.Logger, "session")
}

// Login acquires an identity for the configured environment and
// returns a session whose agent is ready for actor calls. Every
// failure is an *AuthError.
func (b *Bootstrapper) Login(ctx context.Context) (*Session, error) {
	logger := b.logger()
	logging.AuthEvent(ctx, logger, "login started", "environment", b.Environment, "host", b.Host)

	var (
		session *Session
		err     error
	)
	if b.Environment.Deterministic() {
		session, err = b.loginSeeded(ctx)
	} else {
		session, err = b.loginDelegated(ctx)
	}
	if err != nil {
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			authErr = &AuthError{Kind: Unknown, Host: b.Host, Err: err}
		}
		logging.AuthEvent(ctx, logger, "login failed", "kind", authErr.Kind, "error", authErr.Err)
		return nil, authErr
	}

	logging.AuthEvent(ctx, logger, "login succeeded", "principal", session.Principal.String())
	return session, nil
}

func (b *Bootstrapper) loginSeeded(ctx context.Context) (*Session, error) {
	key, err := b.sessionKey(ctx)
	if err != nil {
		return nil, err
	}
	seed, err := identity.DeriveSeed(key)
	secret.Zero(key)
	if err != nil {
		return nil, err
	}
	signer, err := identity.NewEd25519FromSeed(seed)
	secret.Zero(seed)
	if err != nil {
		return nil, err
	}

	channel, err := b.newAgent(signer)
	if err != nil {
		return nil, err
	}
	if err := channel.FetchRootKey(ctx); err != nil {
		return nil, &AuthError{Kind: LocalBackendUnreachable, Host: b.Host, Err: err}
	}
	if _, err := channel.Status(ctx); err != nil {
		return nil, &AuthError{Kind: LocalBackendUnreachable, Host: b.Host, Err: fmt.Errorf("connection test: %w", err)}
	}

	return &Session{
		Principal:   signer.Principal(),
		Identity:    signer,
		Agent:       channel,
		Environment: b.Environment,
		Canisters:   b.Canisters,
	}, nil
}

// sessionKey returns the persisted key material, creating it on first
// use. The stored form is hex; anything else stored under the key is
// used as raw key material.
func (b *Bootstrapper) sessionKey(ctx context.Context) ([]byte, error) {
	if b.Store == nil {
		return nil, fmt.Errorf("no key/value store configured")
	}
	stored, err := b.Store.Get(ctx, SessionKeyName)
	switch {
	case err == nil && len(stored) > 0:
		if decoded, decodeErr := hex.DecodeString(string(stored)); decodeErr == nil && len(decoded) > 0 {
			secret.Zero(stored)
			return decoded, nil
		}
		return stored, nil
	case err != nil && !errors.Is(err, keystore.ErrNotFound):
		return nil, fmt.Errorf("reading session key: %w", err)
	}

	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	encoded := []byte(hex.EncodeToString(key))
	defer secret.Zero(encoded)
	if err := b.Store.Set(ctx, SessionKeyName, encoded); err != nil {
		return nil, fmt.Errorf("persisting session key: %w", err)
	}
	b.logger().Info("generated new session key")
	return key, nil
}

// cachedDelegation is the stored form of a production login.
type cachedDelegation struct {
	SessionSeed []byte                      `cbor:"session_seed"`
	RootKey     []byte                      `cbor:"root_key"`
	Delegations []identity.SignedDelegation `cbor:"delegations"`
}

func (b *Bootstrapper) loginDelegated(ctx context.Context) (*Session, error) {
	if delegated := b.loadCachedDelegation(ctx); delegated != nil {
		b.logger().Debug("reusing cached delegation", "expires", delegated.Expiry())
		return b.delegatedSession(delegated)
	}
	if b.Provider == nil {
		return nil, &AuthError{Kind: DelegationUnavailable, Err: errors.New("no identity provider configured")}
	}

	policy := retry.Policy{
		Attempts: b.Attempts,
		Backoff:  b.Backoff,
		Clock:    b.clock(),
		Logger:   b.logger(),
	}
	if policy.Attempts <= 0 {
		policy.Attempts = 3
	}
	if policy.Backoff <= 0 {
		policy.Backoff = time.Second
	}

	handle, err := retry.Do(ctx, policy, "identity provider initialization",
		func(ctx context.Context, attempt int) (delegation.Handle, error) {
			return b.Provider.Init(ctx, b.ProviderConfig)
		})
	if err != nil {
		return nil, classifyProviderError(InitializationExhausted, err)
	}

	sessionKey, err := identity.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	ttl := b.DelegationTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	request := delegation.Request{Session: sessionKey, MaxTimeToLive: ttl}

	delegated, err := retry.Do(ctx, policy, "delegation",
		func(ctx context.Context, attempt int) (*identity.DelegatedIdentity, error) {
			return handle.GetDelegation(ctx, request)
		})
	if err != nil {
		return nil, classifyProviderError(DelegationUnavailable, err)
	}

	b.storeDelegation(ctx, delegated)
	return b.delegatedSession(delegated)
}

// classifyProviderError maps retry exhaustion to kind. Cancellation
// is reported as Unknown so that callers see the context error.
func classifyProviderError(kind AuthErrorKind, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AuthError{Kind: Unknown, Err: err}
	}
	return &AuthError{Kind: kind, Err: err}
}

func (b *Bootstrapper) delegatedSession(delegated *identity.DelegatedIdentity) (*Session, error) {
	channel, err := b.newAgent(delegated)
	if err != nil {
		return nil, err
	}
	return &Session{
		Principal:   delegated.Principal(),
		Identity:    delegated,
		Agent:       channel,
		Environment: b.Environment,
		Canisters:   b.Canisters,
		Expiry:      delegated.Expiry(),
	}, nil
}

func (b *Bootstrapper) loadCachedDelegation(ctx context.Context) *identity.DelegatedIdentity {
	if b.Store == nil {
		return nil
	}
	data, err := b.Store.Get(ctx, DelegationKeyName)
	if err != nil {
		if !errors.Is(err, keystore.ErrNotFound) {
			b.logger().Warn("reading cached delegation", "error", err)
		}
		return nil
	}

	var cached cachedDelegation
	if err := codec.Unmarshal(data, &cached); err != nil {
		b.logger().Warn("discarding unreadable cached delegation", "error", err)
		return nil
	}
	defer secret.Zero(cached.SessionSeed)

	sessionKey, err := identity.NewEd25519FromSeed(cached.SessionSeed)
	if err != nil {
		return nil
	}
	delegated, err := identity.NewDelegated(cached.RootKey, cached.Delegations, sessionKey)
	if err != nil {
		return nil
	}

	now := b.clock().Now()
	if _, err := identity.VerifyChain(cached.RootKey, cached.Delegations, now.Add(delegationRenewMargin), b.Canisters.Backend); err != nil {
		b.logger().Debug("cached delegation unusable", "error", err)
		return nil
	}
	return delegated
}

func (b *Bootstrapper) storeDelegation(ctx context.Context, delegated *identity.DelegatedIdentity) {
	if b.Store == nil {
		return
	}
	seed := delegated.Session().Seed()
	defer secret.Zero(seed)
	data, err := codec.Marshal(cachedDelegation{
		SessionSeed: seed,
		RootKey:     delegated.PublicKey(),
		Delegations: delegated.Delegations(),
	})
	if err != nil {
		b.logger().Warn("encoding delegation for cache", "error", err)
		return
	}
	if err := b.Store.Set(ctx, DelegationKeyName, data); err != nil {
		b.logger().Warn("caching delegation", "error", err)
	}
}

func (b *Bootstrapper) newAgent(signer identity.Identity) (*agent.Agent, error) {
	return agent.New(agent.Config{
		Host:        b.Host,
		Identity:    signer,
		CallTimeout: b.CallTimeout,
		HTTPClient:  b.HTTPClient,
		Clock:       b.clock(),
		Logger:      b.Logger,
	})
}

// Forget removes the persisted session key and any cached delegation.
// The next Login generates a new identity.
func Forget(ctx context.Context, store keystore.Store) error {
	if store == nil {
		return nil
	}
	return errors.Join(
		store.Delete(ctx, SessionKeyName),
		store.Delete(ctx, DelegationKeyName),
	)
}
