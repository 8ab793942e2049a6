// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/secret"
)

func passphrase(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.FromBytes([]byte(value))
	if err != nil {
		t.Fatalf("secret.FromBytes() error: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestSealedValuesAreOpaqueAtRest(t *testing.T) {
	ctx := context.Background()
	inner := keystore.NewMemory()
	store := Wrap(inner, passphrase(t, "open sesame"), WithWorkFactor(10))

	plaintext := []byte("0123456789abcdef0123456789abcdef")
	if err := store.Set(ctx, "chainedsocial_session_key", plaintext); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	raw, err := inner.Get(ctx, "chainedsocial_session_key")
	if err != nil {
		t.Fatalf("inner Get() error: %v", err)
	}
	if bytes.Contains(raw, plaintext) {
		t.Fatal("inner store holds the plaintext")
	}

	opened, err := store.Get(ctx, "chainedsocial_session_key")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Get() = %q, want %q", opened, plaintext)
	}
}

func TestWrongPassphraseFails(t *testing.T) {
	ctx := context.Background()
	inner := keystore.NewMemory()
	if err := Wrap(inner, passphrase(t, "right"), WithWorkFactor(10)).Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, err := Wrap(inner, passphrase(t, "wrong")).Get(ctx, "k"); err == nil {
		t.Fatal("Get() with the wrong passphrase succeeded")
	}
}

func TestMissingKeyPassesThrough(t *testing.T) {
	store := Wrap(keystore.NewMemory(), passphrase(t, "p"))
	if _, err := store.Get(context.Background(), "absent"); !errors.Is(err, keystore.ErrNotFound) {
		t.Fatalf("Get() = %v, want keystore.ErrNotFound", err)
	}
}
