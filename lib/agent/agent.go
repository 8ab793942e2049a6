// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent is the authenticated channel to the backend replica.
//
// Every request is a CBOR envelope whose content is signed by the
// session identity. Queries and calls both answer synchronously with a
// Response; a rejected Response becomes a *RejectError. Arguments are
// encoded as a CBOR array and the reply as a single CBOR value.
//
// Endpoints:
//
//	GET  /api/v2/status
//	POST /api/v2/canister/{id}/query
//	POST /api/v2/canister/{id}/call
package agent

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// ContentType is the media type of every request and response body.
const ContentType = "application/cbor"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// Config holds the parameters for New.
type Config struct {
	// Host is the replica base URL, e.g. http://localhost:4943.
	Host string

	// Identity signs requests. Nil sends anonymous requests.
	Identity identity.Identity

	// CallTimeout bounds each request. Defaults to 60s.
	CallTimeout time.Duration

	// IngressExpiry is how far past now a request stays valid.
	// Defaults to 5 minutes.
	IngressExpiry time.Duration

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Agent sends signed requests to one replica. It is safe for
// concurrent use.
type Agent struct {
	host          *url.URL
	identity      identity.Identity
	callTimeout   time.Duration
	ingressExpiry time.Duration
	client        *http.Client
	clock         clock.Clock
	logger        *slog.Logger

	mu      sync.RWMutex
	rootKey []byte
}

// New validates cfg and returns an Agent. It makes no network calls.
func New(cfg Config) (*Agent, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("agent: Host is required")
	}
	host, err := url.Parse(strings.TrimRight(cfg.Host, "/"))
	if err != nil || host.Scheme == "" || host.Host == "" {
		return nil, fmt.Errorf("agent: invalid host %q", cfg.Host)
	}

	agent := &Agent{
		host:          host,
		identity:      cfg.Identity,
		callTimeout:   cfg.CallTimeout,
		ingressExpiry: cfg.IngressExpiry,
		client:        cfg.HTTPClient,
		clock:         cfg.Clock,
		logger:        logging.Component(cfg.Logger, "agent"),
	}
	if agent.callTimeout <= 0 {
		agent.callTimeout = 60 * time.Second
	}
	if agent.ingressExpiry <= 0 {
		agent.ingressExpiry = 5 * time.Minute
	}
	if agent.client == nil {
		agent.client = http.DefaultClient
	}
	if agent.clock == nil {
		agent.clock = clock.Real()
	}
	return agent, nil
}

// Host returns the replica base URL.
func (a *Agent) Host() string { return a.host.String() }

// Principal returns the caller the replica will see.
func (a *Agent) Principal() identity.Principal {
	if a.identity == nil {
		return identity.Anonymous()
	}
	return a.identity.Principal()
}

// Identity returns the signing identity, nil when anonymous.
func (a *Agent) Identity() identity.Identity { return a.identity }

// RootKey returns the key fetched by FetchRootKey, or nil.
func (a *Agent) RootKey() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return bytes.Clone(a.rootKey)
}

// FetchRootKey reads the replica's root key from its status
// document. Only development replicas are asked for their key; a
// production client trusts a pinned key instead.
func (a *Agent) FetchRootKey(ctx context.Context) error {
	status, err := a.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetching root key: %w", err)
	}
	if len(status.RootKey) == 0 {
		return fmt.Errorf("fetching root key: status from %s carried no root key", a.host)
	}
	a.mu.Lock()
	a.rootKey = status.RootKey
	a.mu.Unlock()
	return nil
}

// Status reads /api/v2/status.
func (a *Agent) Status(ctx context.Context) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	endpoint := a.host.JoinPath("api", "v2", "status").String()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("agent: building status request: %w", err)
	}
	request.Header.Set("Accept", ContentType)

	body, err := a.do(request)
	if err != nil {
		return nil, err
	}
	var status Status
	if err := codec.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("agent: decoding status: %w", err)
	}
	return &status, nil
}

// Query runs a read-only method and decodes its result into reply.
func (a *Agent) Query(ctx context.Context, canisterID, method string, reply any, args ...any) error {
	return a.invoke(ctx, RequestQuery, canisterID, method, reply, args)
}

// Call runs an update method and decodes its result into reply.
func (a *Agent) Call(ctx context.Context, canisterID, method string, reply any, args ...any) error {
	return a.invoke(ctx, RequestCall, canisterID, method, reply, args)
}

func (a *Agent) invoke(ctx context.Context, requestType, canisterID, method string, reply any, args []any) error {
	if args == nil {
		args = []any{}
	}
	arg, err := codec.Marshal(args)
	if err != nil {
		return fmt.Errorf("agent: encoding %s arguments: %w", method, err)
	}

	nonce := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("agent: generating nonce: %w", err)
	}

	content := RequestContent{
		RequestType:   requestType,
		CanisterID:    canisterID,
		MethodName:    method,
		Arg:           arg,
		Sender:        a.Principal(),
		IngressExpiry: uint64(a.clock.Now().Add(a.ingressExpiry).UnixNano()),
		Nonce:         nonce,
	}
	envelope, err := Sign(a.identity, content)
	if err != nil {
		return err
	}
	encoded, err := codec.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("agent: encoding envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	endpoint := a.host.JoinPath("api", "v2", "canister", canisterID, requestType).String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("agent: building %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", ContentType)

	started := a.clock.Now()
	body, err := a.do(request)
	if err != nil {
		logging.Call(ctx, a.logger, canisterID, method, a.clock.Now().Sub(started), err)
		return err
	}

	var response Response
	if err := codec.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("agent: decoding %s response: %w", method, err)
	}
	switch response.Status {
	case StatusReplied:
	case StatusRejected:
		err := &RejectError{
			Canister: canisterID,
			Method:   method,
			Code:     RejectCode(response.RejectCode),
			Message:  response.RejectMessage,
		}
		logging.Call(ctx, a.logger, canisterID, method, a.clock.Now().Sub(started), err)
		return err
	default:
		return fmt.Errorf("agent: %s returned unknown status %q", method, response.Status)
	}
	logging.Call(ctx, a.logger, canisterID, method, a.clock.Now().Sub(started), nil)

	if reply == nil {
		return nil
	}
	if response.Reply == nil {
		return fmt.Errorf("agent: %s replied without a value", method)
	}
	if err := codec.Unmarshal(response.Reply.Arg, reply); err != nil {
		return fmt.Errorf("agent: decoding %s reply: %w", method, err)
	}
	return nil
}

// do sends request and returns the body of a 2xx answer. A non-2xx
// answer with a CBOR rejection body becomes a *RejectError.
func (a *Agent) do(request *http.Request) ([]byte, error) {
	response, err := a.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("agent: %s %s: %w", request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("agent: reading %s: %w", request.URL.Path, err)
	}
	if response.StatusCode/100 == 2 {
		return body, nil
	}

	if strings.HasPrefix(response.Header.Get("Content-Type"), ContentType) {
		var rejected Response
		if codec.Unmarshal(body, &rejected) == nil && rejected.Status == StatusRejected {
			return nil, &RejectError{
				Canister: canisterFromPath(request.URL.Path),
				Code:     RejectCode(rejected.RejectCode),
				Message:  rejected.RejectMessage,
			}
		}
	}
	return nil, &HTTPError{URL: request.URL.String(), StatusCode: response.StatusCode, Body: strings.TrimSpace(string(body))}
}

func canisterFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for index, part := range parts {
		if part == "canister" && index+1 < len(parts) {
			return parts[index+1]
		}
	}
	return ""
}

// IsUnreachable reports whether err means the replica could not be
// reached at all, as opposed to answering with an error.
func IsUnreachable(err error) bool {
	var httpErr *HTTPError
	var reject *RejectError
	return err != nil && !errors.As(err, &httpErr) && !errors.As(err, &reject)
}
