// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/codec"
)

func TestDeriveSeedIsStable(t *testing.T) {
	key := bytes.Repeat([]byte{7}, SeedSize)
	first, err := DeriveSeed(key)
	if err != nil {
		t.Fatalf("DeriveSeed() error: %v", err)
	}
	second, _ := DeriveSeed(key)
	if !bytes.Equal(first, second) {
		t.Fatal("same session key produced different seeds")
	}
	other, _ := DeriveSeed(bytes.Repeat([]byte{8}, SeedSize))
	if bytes.Equal(first, other) {
		t.Fatal("different session keys produced the same seed")
	}
}

func TestPrincipalTextRoundTrip(t *testing.T) {
	signer, err := GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519() error: %v", err)
	}
	principal := signer.Principal()
	text := principal.String()

	if strings.ToLower(text) != text || !strings.Contains(text, "-") {
		t.Errorf("String() = %q, want lower-case dash-grouped text", text)
	}
	for _, group := range strings.Split(text, "-")[:3] {
		if len(group) != 5 {
			t.Errorf("group %q is not five characters", group)
		}
	}

	parsed, err := ParsePrincipal(text)
	if err != nil {
		t.Fatalf("ParsePrincipal(%q) error: %v", text, err)
	}
	if parsed != principal {
		t.Errorf("ParsePrincipal() = %s, want %s", parsed, principal)
	}
}

func TestParsePrincipalRejectsBadChecksum(t *testing.T) {
	text := Anonymous().String()
	if text != "2vxsx-fae" {
		t.Fatalf("Anonymous() = %q, want 2vxsx-fae", text)
	}
	if _, err := ParsePrincipal("2vxsx-faf"); err == nil {
		t.Fatal("ParsePrincipal accepted a corrupted principal")
	}
}

func TestPrincipalTravelsAsCBORText(t *testing.T) {
	type record struct {
		Sender Principal `cbor:"sender"`
	}
	encoded, err := codec.Marshal(record{Sender: Anonymous()})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var decoded record
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !decoded.Sender.IsAnonymous() {
		t.Errorf("decoded %s, want the anonymous principal", decoded.Sender)
	}
}

func TestDelegationChain(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	root, _ := GenerateEd25519()
	session, _ := GenerateEd25519()

	link, err := Delegate(root, session.PublicKey(), now.Add(8*time.Hour), nil)
	if err != nil {
		t.Fatalf("Delegate() error: %v", err)
	}
	delegated, err := NewDelegated(root.PublicKey(), []SignedDelegation{link}, session)
	if err != nil {
		t.Fatalf("NewDelegated() error: %v", err)
	}
	if delegated.Principal() != root.Principal() {
		t.Error("delegated principal differs from the root key's principal")
	}
	if !delegated.Expiry().Equal(now.Add(8 * time.Hour)) {
		t.Errorf("Expiry() = %v", delegated.Expiry())
	}

	signingKey, err := VerifyChain(delegated.PublicKey(), delegated.Delegations(), now, "backend")
	if err != nil {
		t.Fatalf("VerifyChain() error: %v", err)
	}
	if !bytes.Equal(signingKey, session.PublicKey()) {
		t.Error("VerifyChain() did not end at the session key")
	}

	if _, err := VerifyChain(delegated.PublicKey(), delegated.Delegations(), now.Add(9*time.Hour), "backend"); err == nil {
		t.Error("VerifyChain() accepted an expired delegation")
	}

	stranger, _ := GenerateEd25519()
	if _, err := VerifyChain(stranger.PublicKey(), delegated.Delegations(), now, "backend"); err == nil {
		t.Error("VerifyChain() accepted a chain signed by a different root")
	}
}

func TestDelegationTargets(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	root, _ := GenerateEd25519()
	session, _ := GenerateEd25519()
	link, _ := Delegate(root, session.PublicKey(), now.Add(time.Hour), []string{"messaging"})

	if _, err := VerifyChain(root.PublicKey(), []SignedDelegation{link}, now, "backend"); err == nil {
		t.Error("targeted delegation accepted for another canister")
	}
	if _, err := VerifyChain(root.PublicKey(), []SignedDelegation{link}, now, "messaging"); err != nil {
		t.Errorf("targeted delegation rejected for its own canister: %v", err)
	}
}
