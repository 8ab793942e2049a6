// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package agent_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/agent"
	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// echoReplica answers "whoami" with the verified sender and "fail" with
// a canister rejection.
func echoReplica(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", agent.ContentType)
		if r.URL.Path == "/api/v2/status" {
			body, _ := codec.Marshal(agent.Status{RootKey: []byte("root-key"), Health: "healthy"})
			w.Write(body)
			return
		}

		raw, _ := io.ReadAll(r.Body)
		var envelope agent.Envelope
		if err := codec.Unmarshal(raw, &envelope); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sender, err := agent.VerifyEnvelope(&envelope, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/"+envelope.Content.RequestType) {
			http.Error(w, "request type does not match endpoint", http.StatusBadRequest)
			return
		}

		var response agent.Response
		switch envelope.Content.MethodName {
		case "whoami":
			value, _ := codec.Marshal(sender.String())
			response = agent.Response{Status: agent.StatusReplied, Reply: &agent.Reply{Arg: value}}
		case "echo":
			response = agent.Response{Status: agent.StatusReplied, Reply: &agent.Reply{Arg: envelope.Content.Arg}}
		default:
			response = agent.Response{
				Status:        agent.StatusRejected,
				RejectCode:    uint64(agent.RejectCanisterError),
				RejectMessage: "no such method",
			}
		}
		body, _ := codec.Marshal(response)
		w.Write(body)
	}))
}

func newAgent(t *testing.T, host string, signer identity.Identity) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{Host: host, Identity: signer})
	if err != nil {
		t.Fatalf("agent.New() error: %v", err)
	}
	return a
}

func TestQuerySignedBySender(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()

	signer, _ := identity.GenerateEd25519()
	a := newAgent(t, server.URL, signer)

	var seen string
	if err := a.Query(context.Background(), "backend", "whoami", &seen); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if seen != signer.Principal().String() {
		t.Errorf("replica saw %s, want %s", seen, signer.Principal())
	}
}

func TestCallWithDelegatedIdentity(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()

	root, _ := identity.GenerateEd25519()
	session, _ := identity.GenerateEd25519()
	link, err := identity.Delegate(root, session.PublicKey(), time.Now().Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("Delegate() error: %v", err)
	}
	delegated, err := identity.NewDelegated(root.PublicKey(), []identity.SignedDelegation{link}, session)
	if err != nil {
		t.Fatalf("NewDelegated() error: %v", err)
	}
	a := newAgent(t, server.URL, delegated)

	var seen string
	if err := a.Call(context.Background(), "messaging", "whoami", &seen); err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if seen != root.Principal().String() {
		t.Errorf("replica saw %s, want the root principal %s", seen, root.Principal())
	}
}

func TestAnonymousAgent(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()
	a := newAgent(t, server.URL, nil)

	var seen string
	if err := a.Query(context.Background(), "backend", "whoami", &seen); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if seen != "2vxsx-fae" {
		t.Errorf("replica saw %s, want the anonymous principal", seen)
	}
}

func TestArgumentsTravelAsArray(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()
	a := newAgent(t, server.URL, nil)

	var args []any
	if err := a.Query(context.Background(), "backend", "echo", &args, "alice", uint64(10)); err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(args) != 2 || args[0] != "alice" || args[1] != uint64(10) {
		t.Errorf("echoed args = %#v", args)
	}
}

func TestRejectBecomesRejectError(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()
	a := newAgent(t, server.URL, nil)

	err := a.Call(context.Background(), "backend", "missing", nil)
	var reject *agent.RejectError
	if !errors.As(err, &reject) {
		t.Fatalf("Call() error = %v, want *RejectError", err)
	}
	if reject.Code != agent.RejectCanisterError || reject.Method != "missing" {
		t.Errorf("reject = %+v", reject)
	}
	if agent.IsUnreachable(err) {
		t.Error("a rejection was classified as unreachable")
	}
}

func TestFetchRootKey(t *testing.T) {
	server := echoReplica(t)
	defer server.Close()
	a := newAgent(t, server.URL, nil)

	if a.RootKey() != nil {
		t.Fatal("RootKey() set before FetchRootKey")
	}
	if err := a.FetchRootKey(context.Background()); err != nil {
		t.Fatalf("FetchRootKey() error: %v", err)
	}
	if !bytes.Equal(a.RootKey(), []byte("root-key")) {
		t.Errorf("RootKey() = %q", a.RootKey())
	}
}

func TestHTTPErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "replica overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	a := newAgent(t, server.URL, nil)

	_, err := a.Status(context.Background())
	var httpErr *agent.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Status() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable || httpErr.Body != "replica overloaded" {
		t.Errorf("HTTPError = %+v", httpErr)
	}
}

func TestUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	a := newAgent(t, host, nil)
	err := a.FetchRootKey(context.Background())
	if !agent.IsUnreachable(err) {
		t.Fatalf("FetchRootKey() error = %v, want an unreachable error", err)
	}
}

func TestNewRejectsBadHost(t *testing.T) {
	for _, host := range []string{"", "localhost:4943", "://nope"} {
		if _, err := agent.New(agent.Config{Host: host}); err == nil {
			t.Errorf("New(%q) succeeded", host)
		}
	}
}
