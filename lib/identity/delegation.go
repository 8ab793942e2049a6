// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/zeebo/blake3"

	"github.com/chainedsocial/chainedsocial/lib/codec"
)

// delegationDomain prefixes every delegation signature.
var delegationDomain = []byte("\x1Aic-request-auth-delegation")

// MaxDelegationDepth bounds the chain length a verifier accepts.
const MaxDelegationDepth = 20

// Delegation authorises PublicKey to sign for the delegator until
// Expiration. Targets, when non-empty, restricts it to those canister
// ids.
type Delegation struct {
	PublicKey  []byte   `cbor:"pubkey"`
	Expiration uint64   `cbor:"expiration"`
	Targets    []string `cbor:"targets,omitempty"`
}

// ExpiresAt returns Expiration as a time.
func (d Delegation) ExpiresAt() time.Time {
	return time.Unix(0, int64(d.Expiration))
}

// SignedDelegation is a Delegation with the delegator's signature.
type SignedDelegation struct {
	Delegation Delegation `cbor:"delegation"`
	Signature  []byte     `cbor:"signature"`
}

// signingMessage is the domain-separated hash a delegator signs.
func (d Delegation) signingMessage() ([]byte, error) {
	encoded, err := codec.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("identity: encoding delegation: %w", err)
	}
	digest := blake3.Sum256(encoded)
	return append(bytes.Clone(delegationDomain), digest[:]...), nil
}

// Delegate has signer authorise sessionKey (DER) until expiration.
func Delegate(signer Identity, sessionKey []byte, expiration time.Time, targets []string) (SignedDelegation, error) {
	delegation := Delegation{
		PublicKey:  bytes.Clone(sessionKey),
		Expiration: uint64(expiration.UnixNano()),
		Targets:    targets,
	}
	message, err := delegation.signingMessage()
	if err != nil {
		return SignedDelegation{}, err
	}
	signature, err := signer.Sign(message)
	if err != nil {
		return SignedDelegation{}, fmt.Errorf("identity: signing delegation: %w", err)
	}
	return SignedDelegation{Delegation: delegation, Signature: signature}, nil
}

// VerifyChain walks chain from root and returns the DER key that may
// sign requests. Every link must verify, be unexpired at now and, if
// targeted, include canisterID.
func VerifyChain(root []byte, chain []SignedDelegation, now time.Time, canisterID string) ([]byte, error) {
	if len(chain) > MaxDelegationDepth {
		return nil, fmt.Errorf("identity: delegation chain of %d exceeds %d", len(chain), MaxDelegationDepth)
	}
	current := root
	for index, link := range chain {
		message, err := link.Delegation.signingMessage()
		if err != nil {
			return nil, err
		}
		if err := Verify(current, message, link.Signature); err != nil {
			return nil, fmt.Errorf("identity: delegation %d: %w", index, err)
		}
		if !now.Before(link.Delegation.ExpiresAt()) {
			return nil, fmt.Errorf("identity: delegation %d expired at %s", index, link.Delegation.ExpiresAt().UTC().Format(time.RFC3339))
		}
		if len(link.Delegation.Targets) > 0 && !slices.Contains(link.Delegation.Targets, canisterID) {
			return nil, fmt.Errorf("identity: delegation %d does not cover canister %s", index, canisterID)
		}
		current = link.Delegation.PublicKey
	}
	return current, nil
}

// DelegatedIdentity signs with a session key acting for the root key
// of a delegation chain.
type DelegatedIdentity struct {
	root    []byte
	chain   []SignedDelegation
	session *Ed25519Identity
}

// NewDelegated binds a chain to the session key it ends in.
func NewDelegated(root []byte, chain []SignedDelegation, session *Ed25519Identity) (*DelegatedIdentity, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("identity: empty delegation chain")
	}
	if !bytes.Equal(chain[len(chain)-1].Delegation.PublicKey, session.der) {
		return nil, fmt.Errorf("identity: delegation chain does not end at the session key")
	}
	return &DelegatedIdentity{root: bytes.Clone(root), chain: slices.Clone(chain), session: session}, nil
}

func (d *DelegatedIdentity) Principal() Principal            { return SelfAuthenticating(d.root) }
func (d *DelegatedIdentity) PublicKey() []byte               { return bytes.Clone(d.root) }
func (d *DelegatedIdentity) Delegations() []SignedDelegation { return slices.Clone(d.chain) }

func (d *DelegatedIdentity) Sign(message []byte) ([]byte, error) {
	return d.session.Sign(message)
}

// Session returns the session key pair.
func (d *DelegatedIdentity) Session() *Ed25519Identity { return d.session }

// Expiry is the earliest expiration in the chain.
func (d *DelegatedIdentity) Expiry() time.Time {
	earliest := d.chain[0].Delegation.ExpiresAt()
	for _, link := range d.chain[1:] {
		if expires := link.Delegation.ExpiresAt(); expires.Before(earliest) {
			earliest = expires
		}
	}
	return earliest
}
