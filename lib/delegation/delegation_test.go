// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/secret"
)

type fakeProvider struct {
	root      *identity.Ed25519Identity
	infoCalls atomic.Int32
	lastTTL   atomic.Uint64
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer open-sesame" {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/api/v1/info":
		f.infoCalls.Add(1)
		body, _ := codec.Marshal(InfoResponse{Name: "fake", MaxTimeToLive: uint64(8 * time.Hour)})
		w.Write(body)
	case "/api/v1/delegation":
		data, _ := io.ReadAll(r.Body)
		var request DelegationRequest
		if err := codec.Unmarshal(data, &request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastTTL.Store(request.MaxTimeToLive)
		link, err := identity.Delegate(f.root, request.SessionKey, time.Now().Add(time.Duration(request.MaxTimeToLive)), request.Targets)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		body, _ := codec.Marshal(DelegationResponse{PublicKey: f.root.PublicKey(), Delegations: []identity.SignedDelegation{link}})
		w.Write(body)
	default:
		http.NotFound(w, r)
	}
}

func newProvider(t *testing.T, url, token string) *HTTPProvider {
	t.Helper()
	buffer, err := secret.FromBytes([]byte(token))
	if err != nil {
		t.Fatalf("secret.FromBytes() error: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	provider, err := NewHTTPProvider(url, buffer, nil, nil)
	if err != nil {
		t.Fatalf("NewHTTPProvider() error: %v", err)
	}
	return provider
}

func TestDelegationForSessionKey(t *testing.T) {
	root, _ := identity.GenerateEd25519()
	fake := &fakeProvider{root: root}
	server := httptest.NewServer(fake)
	defer server.Close()

	provider := newProvider(t, server.URL, "open-sesame")
	handle, err := provider.Init(context.Background(), Config{ApplicationName: "Chained Social"})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	session, _ := identity.GenerateEd25519()
	delegated, err := handle.GetDelegation(context.Background(), Request{Session: session, MaxTimeToLive: 24 * time.Hour})
	if err != nil {
		t.Fatalf("GetDelegation() error: %v", err)
	}
	if delegated.Principal() != root.Principal() {
		t.Error("delegated principal is not the provider's root principal")
	}
	if fake.lastTTL.Load() != uint64(8*time.Hour) {
		t.Errorf("requested ttl %v, want it capped at the provider's 8h", time.Duration(fake.lastTTL.Load()))
	}

	signingKey, err := identity.VerifyChain(delegated.PublicKey(), delegated.Delegations(), time.Now(), "backend")
	if err != nil {
		t.Fatalf("VerifyChain() error: %v", err)
	}
	if !bytes.Equal(signingKey, session.PublicKey()) {
		t.Error("chain does not end at the session key")
	}
}

func TestInitIsCached(t *testing.T) {
	fake := &fakeProvider{}
	fake.root, _ = identity.GenerateEd25519()
	server := httptest.NewServer(fake)
	defer server.Close()

	provider := newProvider(t, server.URL, "open-sesame")
	first, err := provider.Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	second, _ := provider.Init(context.Background(), Config{})
	if first != second {
		t.Error("second Init returned a different handle")
	}
	if calls := fake.infoCalls.Load(); calls != 1 {
		t.Errorf("info fetched %d times, want 1", calls)
	}
}

func TestRejectedTokenIsProviderError(t *testing.T) {
	fake := &fakeProvider{}
	server := httptest.NewServer(fake)
	defer server.Close()

	provider := newProvider(t, server.URL, "wrong")
	_, err := provider.Init(context.Background(), Config{})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Init() error = %v, want *ProviderError", err)
	}
	if providerErr.StatusCode != http.StatusUnauthorized || providerErr.Operation != "init" {
		t.Errorf("ProviderError = %+v", providerErr)
	}
}
