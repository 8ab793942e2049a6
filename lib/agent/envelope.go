// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/chainedsocial/chainedsocial/lib/codec"
	"github.com/chainedsocial/chainedsocial/lib/identity"
)

// requestDomain prefixes the request id before signing.
var requestDomain = []byte("\x0Aic-request")

// Request types.
const (
	RequestQuery = "query"
	RequestCall  = "call"
)

// RequestContent is the signed part of a request.
type RequestContent struct {
	RequestType   string             `cbor:"request_type"`
	CanisterID    string             `cbor:"canister_id"`
	MethodName    string             `cbor:"method_name"`
	Arg           []byte             `cbor:"arg"`
	Sender        identity.Principal `cbor:"sender"`
	IngressExpiry uint64             `cbor:"ingress_expiry"`
	Nonce         []byte             `cbor:"nonce,omitempty"`
}

// Envelope is what goes over the wire: content plus the proof that the
// sender produced it.
type Envelope struct {
	Content          RequestContent              `cbor:"content"`
	SenderPubkey     []byte                      `cbor:"sender_pubkey,omitempty"`
	SenderSig        []byte                      `cbor:"sender_sig,omitempty"`
	SenderDelegation []identity.SignedDelegation `cbor:"sender_delegation,omitempty"`
}

// Response answers a query or call.
type Response struct {
	Status        string `cbor:"status"`
	Reply         *Reply `cbor:"reply,omitempty"`
	RejectCode    uint64 `cbor:"reject_code,omitempty"`
	RejectMessage string `cbor:"reject_message,omitempty"`
}

// Reply carries the method's encoded return value.
type Reply struct {
	Arg []byte `cbor:"arg"`
}

// Response statuses.
const (
	StatusReplied  = "replied"
	StatusRejected = "rejected"
)

// Status is the replica's /api/v2/status document.
type Status struct {
	RootKey     []byte `cbor:"root_key"`
	ImplVersion string `cbor:"impl_version,omitempty"`
	Health      string `cbor:"replica_health_status,omitempty"`
}

// RequestID is the BLAKE3 hash of the deterministic CBOR encoding of
// content.
func RequestID(content RequestContent) ([32]byte, error) {
	encoded, err := codec.Marshal(content)
	if err != nil {
		return [32]byte{}, fmt.Errorf("agent: encoding request content: %w", err)
	}
	return blake3.Sum256(encoded), nil
}

func signingMessage(requestID [32]byte) []byte {
	return append(bytes.Clone(requestDomain), requestID[:]...)
}

// Sign builds the envelope for content as signer.
func Sign(signer identity.Identity, content RequestContent) (*Envelope, error) {
	envelope := &Envelope{Content: content}
	if signer == nil {
		return envelope, nil
	}
	requestID, err := RequestID(content)
	if err != nil {
		return nil, err
	}
	signature, err := signer.Sign(signingMessage(requestID))
	if err != nil {
		return nil, fmt.Errorf("agent: signing request: %w", err)
	}
	envelope.SenderPubkey = signer.PublicKey()
	envelope.SenderSig = signature
	envelope.SenderDelegation = signer.Delegations()
	return envelope, nil
}

// VerifyEnvelope authenticates an envelope and returns its sender. An
// envelope without a public key must name the anonymous principal.
func VerifyEnvelope(envelope *Envelope, now time.Time) (identity.Principal, error) {
	content := envelope.Content
	if expiry := time.Unix(0, int64(content.IngressExpiry)); now.After(expiry) {
		return identity.Principal{}, fmt.Errorf("request expired at %s", expiry.UTC().Format(time.RFC3339))
	}

	if len(envelope.SenderPubkey) == 0 {
		if !content.Sender.IsAnonymous() {
			return identity.Principal{}, fmt.Errorf("unsigned request from non-anonymous sender %s", content.Sender)
		}
		return content.Sender, nil
	}

	sender := identity.SelfAuthenticating(envelope.SenderPubkey)
	if sender != content.Sender {
		return identity.Principal{}, fmt.Errorf("sender %s does not match public key principal %s", content.Sender, sender)
	}
	signingKey, err := identity.VerifyChain(envelope.SenderPubkey, envelope.SenderDelegation, now, content.CanisterID)
	if err != nil {
		return identity.Principal{}, err
	}
	requestID, err := RequestID(content)
	if err != nil {
		return identity.Principal{}, err
	}
	if err := identity.Verify(signingKey, signingMessage(requestID), envelope.SenderSig); err != nil {
		return identity.Principal{}, fmt.Errorf("request signature: %w", err)
	}
	return sender, nil
}
