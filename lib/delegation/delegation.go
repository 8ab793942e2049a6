// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package delegation obtains delegated identities from an identity
// provider. The provider holds the user's root key; the client holds
// only a short-lived session key that the provider signs a
// delegation for.
//
// The HTTP provider speaks CBOR over two endpoints:
//
//	GET  /api/v1/info        provider metadata, checked once by Init
//	POST /api/v1/delegation  DelegationRequest -> DelegationResponse
//
// Requests carry the user's bearer token.
package delegation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/lib/secret"
)

// Provider initialises a session with an identity provider.
type Provider interface {
	Init(ctx context.Context, cfg Config) (Handle, error)
}

// Handle requests delegations from an initialised provider.
type Handle interface {
	GetDelegation(ctx context.Context, request Request) (*identity.DelegatedIdentity, error)
}

// Config identifies the application to the provider.
type Config struct {
	ApplicationName string
	LogoURL         string
}

// Request asks for a delegation to Session valid for at most
// MaxTimeToLive. Targets, when set, restricts it to those canisters.
type Request struct {
	Session       *identity.Ed25519Identity
	MaxTimeToLive time.Duration
	Targets       []string
}

// InfoResponse is the body of GET /api/v1/info.
type InfoResponse struct {
	Name           string `cbor:"name"`
	MaxTimeToLive  uint64 `cbor:"max_time_to_live"`
	AcceptsTargets bool   `cbor:"accepts_targets"`
}

// DelegationRequest is the body of POST /api/v1/delegation.
type DelegationRequest struct {
	SessionKey      []byte   `cbor:"session_key"`
	MaxTimeToLive   uint64   `cbor:"max_time_to_live"`
	Targets         []string `cbor:"targets,omitempty"`
	ApplicationName string   `cbor:"application_name,omitempty"`
}

// DelegationResponse carries the user's root key and the chain ending
// at the session key.
type DelegationResponse struct {
	PublicKey   []byte                      `cbor:"public_key"`
	Delegations []identity.SignedDelegation `cbor:"delegations"`
}

// ProviderError is a failure reported by, or in reaching, the
// provider.
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("identity provider %s: %v", e.Operation, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("identity provider %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("identity provider %s: %s", e.Operation, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPProvider talks to a provider at BaseURL. Init is idempotent: the
// first successful handle is cached and returned to later callers.
type HTTPProvider struct {
	baseURL *url.URL
	token   *secret.Buffer
	client  *http.Client
	logger  *slog.Logger

	mu     sync.Mutex
	handle *httpHandle
}

// NewHTTPProvider returns a provider client. token may be nil for
// providers that need no bearer token. The caller keeps ownership of
// token and must not close it while the provider is in use.
func NewHTTPProvider(baseURL string, token *secret.Buffer, client *http.Client, logger *slog.Logger) (*HTTPProvider, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid identity provider URL %q", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{
		baseURL: parsed,
		token:   token,
		client:  client,
		logger:  logging.Component(logger, "identity-provider"),
	}, nil
}

func (p *HTTPProvider) Init(ctx context.Context, cfg Config) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle != nil {
		return p.handle, nil
	}

	var info InfoResponse
	if err := p.exchange(ctx, "init", http.MethodGet, "info", nil, &info); err != nil {
		return nil, err
	}
	p.logger.Debug("identity provider ready", "provider", info.Name, "application", cfg.ApplicationName)

	p.handle = &httpHandle{provider: p, config: cfg, info: info}
	return p.handle, nil
}

type httpHandle struct {
	provider *HTTPProvider
	config   Config
	info     InfoResponse
}

func (h *httpHandle) GetDelegation(ctx context.Context, request Request) (*identity.DelegatedIdentity, error) {
	if request.Session == nil {
		return nil, fmt.Errorf("delegation request has no session key")
	}
	ttl := uint64(request.MaxTimeToLive)
	if h.info.MaxTimeToLive != 0 && ttl > h.info.MaxTimeToLive {
		ttl = h.info.MaxTimeToLive
	}
	body := DelegationRequest{
		SessionKey:      request.Session.PublicKey(),
		MaxTimeToLive:   ttl,
		Targets:         request.Targets,
		ApplicationName: h.config.ApplicationName,
	}

	var response DelegationResponse
	if err := h.provider.exchange(ctx, "delegation", http.MethodPost, "delegation", body, &response); err != nil {
		return nil, err
	}
	delegated, err := identity.NewDelegated(response.PublicKey, response.Delegations, request.Session)
	if err != nil {
		return nil, &ProviderError{Operation: "delegation", Err: err}
	}
	return delegated, nil
}

func (p *HTTPProvider) exchange(ctx context.Context, operation, method, path string, body, reply any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := codec.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, p.baseURL.JoinPath("api", "v1", path).String(), reader)
	if err != nil {
		return &ProviderError{Operation: operation, Err: err}
	}
	request.Header.Set("Accept", "application/cbor")
	if body != nil {
		request.Header.Set("Content-Type", "application/cbor")
	}
	if p.token != nil {
		request.Header.Set("Authorization", "Bearer "+p.token.String())
	}

	response, err := p.client.Do(request)
	if err != nil {
		return &ProviderError{Operation: operation, Err: err}
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return &ProviderError{Operation: operation, Err: err}
	}
	if response.StatusCode/100 != 2 {
		return &ProviderError{Operation: operation, StatusCode: response.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err := codec.Unmarshal(data, reply); err != nil {
		return &ProviderError{Operation: operation, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
