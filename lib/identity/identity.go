// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity holds the signing identities a session can carry:
// a locally seeded Ed25519 key, or a session key acting under a
// delegation chain issued by the identity provider.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SeedSize is the size of an Ed25519 seed and of the persisted session
// key it is expanded from.
const SeedSize = ed25519.SeedSize

// seedInfo separates seed expansion from any other use of the session
// key.
var seedInfo = []byte("chainedsocial/identity/ed25519-seed/v1")

// ed25519DERPrefix is the SubjectPublicKeyInfo header for a raw
// 32-byte Ed25519 key.
var ed25519DERPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}

// Identity signs requests on behalf of a principal.
type Identity interface {
	// Principal is the caller the backend sees.
	Principal() Principal

	// PublicKey is the DER key the backend authenticates the
	// principal with. For a delegated identity this is the root of
	// the chain, not the session key.
	PublicKey() []byte

	// Sign signs message with the key at the end of the chain.
	Sign(message []byte) ([]byte, error)

	// Delegations is the chain from PublicKey to the signing key.
	// Empty for a plain key.
	Delegations() []SignedDelegation
}

// Ed25519Identity is a plain Ed25519 key pair.
type Ed25519Identity struct {
	private ed25519.PrivateKey
	der     []byte
}

// NewEd25519FromSeed builds the key pair for a 32-byte seed.
func NewEd25519FromSeed(seed []byte) (*Ed25519Identity, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("identity: seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Identity{
		private: private,
		der:     EncodeEd25519PublicKey(private.Public().(ed25519.PublicKey)),
	}, nil
}

// GenerateEd25519 creates a fresh random key pair.
func GenerateEd25519() (*Ed25519Identity, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, fmt.Errorf("identity: generating seed: %w", err)
	}
	defer clear(seed)
	return NewEd25519FromSeed(seed)
}

// DeriveSeed expands a persisted session key into an Ed25519 seed
// with HKDF-SHA256. The same key always yields the same seed.
func DeriveSeed(sessionKey []byte) ([]byte, error) {
	if len(sessionKey) == 0 {
		return nil, fmt.Errorf("identity: empty session key")
	}
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sessionKey, nil, seedInfo), seed); err != nil {
		return nil, fmt.Errorf("identity: expanding session key: %w", err)
	}
	return seed, nil
}

func (i *Ed25519Identity) Principal() Principal            { return SelfAuthenticating(i.der) }
func (i *Ed25519Identity) PublicKey() []byte               { return bytes.Clone(i.der) }
func (i *Ed25519Identity) Delegations() []SignedDelegation { return nil }

func (i *Ed25519Identity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(i.private, message), nil
}

// Seed returns the private seed, for persisting a session key pair
// alongside its delegation.
func (i *Ed25519Identity) Seed() []byte {
	return i.private.Seed()
}

// EncodeEd25519PublicKey wraps a raw Ed25519 key in DER.
func EncodeEd25519PublicKey(key ed25519.PublicKey) []byte {
	return append(bytes.Clone(ed25519DERPrefix), key...)
}

// DecodeEd25519PublicKey unwraps a DER Ed25519 key.
func DecodeEd25519PublicKey(der []byte) (ed25519.PublicKey, error) {
	if len(der) != len(ed25519DERPrefix)+ed25519.PublicKeySize || !bytes.HasPrefix(der, ed25519DERPrefix) {
		return nil, fmt.Errorf("identity: not a DER Ed25519 public key")
	}
	return ed25519.PublicKey(der[len(ed25519DERPrefix):]), nil
}

// Verify checks an Ed25519 signature made by the DER key.
func Verify(der, message, signature []byte) error {
	key, err := DecodeEd25519PublicKey(der)
	if err != nil {
		return err
	}
	if !ed25519.Verify(key, message, signature) {
		return fmt.Errorf("identity: signature does not verify")
	}
	return nil
}
