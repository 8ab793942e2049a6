// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts keystore values at rest with an age
// passphrase (scrypt recipient). Wrap any keystore.Store with it; keys
// stay in the clear, values do not.
package sealed

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/secret"
)

// Store seals values before handing them to an inner store.
type Store struct {
	inner      keystore.Store
	passphrase *secret.Buffer
	workFactor int
}

var _ keystore.Store = (*Store)(nil)

// Option configures Wrap.
type Option func(*Store)

// WithWorkFactor sets the scrypt log2 work factor used when sealing.
// age's default (18) is used when unset. Tests lower it.
func WithWorkFactor(logN int) Option {
	return func(s *Store) { s.workFactor = logN }
}

// Wrap returns a Store sealing values with passphrase. The passphrase
// buffer is borrowed and must outlive the Store.
func Wrap(inner keystore.Store, passphrase *secret.Buffer, options ...Option) *Store {
	store := &Store{inner: inner, passphrase: passphrase}
	for _, option := range options {
		option(store)
	}
	return store
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ciphertext, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	identity, err := age.NewScryptIdentity(s.passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: opening %q: %w", key, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading %q: %w", key, err)
	}
	return plaintext, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	recipient, err := age.NewScryptRecipient(s.passphrase.String())
	if err != nil {
		return fmt.Errorf("sealed: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return fmt.Errorf("sealed: %w", err)
	}
	if _, err := writer.Write(value); err != nil {
		return fmt.Errorf("sealed: sealing %q: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("sealed: sealing %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, ciphertext.Bytes())
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
