// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/chainedsocial/chainedsocial/lib/agent"
	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/delegation"
	"github.com/chainedsocial/chainedsocial/lib/identity"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// maxRequestSize bounds a request body. Attachments travel inline, so
// this is generous.
const maxRequestSize = 16 << 20

// DefaultMaxDelegationTTL caps delegations issued by the development
// identity provider.
const DefaultMaxDelegationTTL = 8 * time.Hour

// ServerOptions configures NewServer.
type ServerOptions struct {
	// RootKey is reported by /api/v2/status. Defaults to a fresh key.
	RootKey identity.Identity

	// MaxDelegationTTL caps the identity provider's delegations.
	MaxDelegationTTL time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Server exposes a Replica over HTTP:
//
//	GET  /api/v2/status
//	POST /api/v2/canister/{id}/query
//	POST /api/v2/canister/{id}/call
//	GET  /api/v1/info
//	POST /api/v1/delegation
//
// The /api/v1 endpoints are a development identity provider: each
// bearer token deterministically names one user key, so the same
// token always logs in as the same principal.
type Server struct {
	replica *Replica
	rootKey identity.Identity
	maxTTL  time.Duration
	clock   clock.Clock
	logger  *slog.Logger
	router  *mux.Router
}

// NewServer routes requests to replica.
func NewServer(replica *Replica, options ServerOptions) (*Server, error) {
	s := &Server{
		replica: replica,
		rootKey: options.RootKey,
		maxTTL:  options.MaxDelegationTTL,
		clock:   options.Clock,
		logger:  logging.Component(options.Logger, "replica-http"),
		router:  mux.NewRouter(),
	}
	if s.rootKey == nil {
		root, err := identity.GenerateEd25519()
		if err != nil {
			return nil, err
		}
		s.rootKey = root
	}
	if s.maxTTL <= 0 {
		s.maxTTL = DefaultMaxDelegationTTL
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}

	s.router.HandleFunc("/api/v2/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v2/canister/{canister}/{type:query|call}", s.handleCanister).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/delegation", s.handleDelegation).Methods(http.MethodPost)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) write(w http.ResponseWriter, status int, value any) {
	body, err := codec.Marshal(value)
	if err != nil {
		s.logger.Error("encoding response", "error", err)
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", agent.ContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("writing response", "error", err)
	}
}

func (s *Server) reject(w http.ResponseWriter, code agent.RejectCode, message string) {
	s.write(w, http.StatusOK, agent.Response{
		Status:        agent.StatusRejected,
		RejectCode:    uint64(code),
		RejectMessage: message,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, agent.Status{
		RootKey:     s.rootKey.PublicKey(),
		ImplVersion: "chained-replica",
		Health:      "healthy",
	})
}

func (s *Server) handleCanister(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	canisterID, requestType := vars["canister"], vars["type"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, "reading request: "+err.Error(), http.StatusBadRequest)
		return
	}
	var envelope agent.Envelope
	if err := codec.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "decoding envelope: "+err.Error(), http.StatusBadRequest)
		return
	}
	content := envelope.Content
	if content.CanisterID != canisterID || content.RequestType != requestType {
		http.Error(w, "envelope does not match endpoint", http.StatusBadRequest)
		return
	}

	caller, err := agent.VerifyEnvelope(&envelope, s.clock.Now())
	if err != nil {
		s.logger.Warn("rejected unauthenticated request", "canister", canisterID, "method", content.MethodName, "error", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	methods, ok := s.replica.methods(canisterID)
	if !ok {
		s.reject(w, agent.RejectDestinationInvalid, "canister "+canisterID+" not found")
		return
	}
	method, ok := methods[content.MethodName]
	if !ok {
		s.reject(w, agent.RejectDestinationInvalid, "canister has no method '"+content.MethodName+"'")
		return
	}
	if method.update && requestType == agent.RequestQuery {
		s.reject(w, agent.RejectCanisterReject, content.MethodName+" is an update method and cannot be queried")
		return
	}

	args, err := decodeArguments(content.Arg)
	if err == nil {
		var reply any
		reply, err = method.handler(s.replica, caller, args)
		if err == nil {
			var encoded []byte
			if encoded, err = codec.Marshal(reply); err == nil {
				s.logger.Debug("served", "canister", canisterID, "method", content.MethodName, "caller", caller.String())
				s.write(w, http.StatusOK, agent.Response{Status: agent.StatusReplied, Reply: &agent.Reply{Arg: encoded}})
				return
			}
		}
	}
	s.reject(w, agent.RejectCanisterError, content.MethodName+": "+err.Error())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, delegation.InfoResponse{
		Name:           "chained-replica",
		MaxTimeToLive:  uint64(s.maxTTL),
		AcceptsTargets: true,
	})
}

// userKey derives the identity a bearer token logs in as.
func userKey(token string) (*identity.Ed25519Identity, error) {
	seed, err := identity.DeriveSeed([]byte("chained-replica-user:" + token))
	if err != nil {
		return nil, err
	}
	defer clear(seed)
	return identity.NewEd25519FromSeed(seed)
}

func (s *Server) handleDelegation(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		http.Error(w, "a bearer token is required", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "reading request: "+err.Error(), http.StatusBadRequest)
		return
	}
	var request delegation.DelegationRequest
	if err := codec.Unmarshal(body, &request); err != nil {
		http.Error(w, "decoding request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := identity.DecodeEd25519PublicKey(request.SessionKey); err != nil {
		http.Error(w, "session key: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := userKey(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ttl := time.Duration(request.MaxTimeToLive)
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	link, err := identity.Delegate(user, request.SessionKey, s.clock.Now().Add(ttl), request.Targets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logging.AuthEvent(r.Context(), s.logger, "delegation issued",
		"principal", user.Principal().String(), "application", request.ApplicationName, "ttl", ttl)
	s.write(w, http.StatusOK, delegation.DelegationResponse{
		PublicKey:   user.PublicKey(),
		Delegations: []identity.SignedDelegation{link},
	})
}
