// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type handle struct{ value string }

func (h handle) MarshalText() ([]byte, error) { return []byte("@" + h.value), nil }

func (h *handle) UnmarshalText(text []byte) error {
	h.value = strings.TrimPrefix(string(text), "@")
	return nil
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(map[string]any{"zeta": 1, "alpha": 2, "mid": []string{"x"}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(map[string]any{"mid": []string{"x"}, "alpha": 2, "zeta": 1})
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding %d differs:\n%x\n%x", i, first, again)
		}
	}
}

func TestTextMarshalerTravelsAsText(t *testing.T) {
	type envelope struct {
		Sender handle `cbor:"sender"`
	}
	data, err := Marshal(envelope{Sender: handle{value: "alice"}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose() error: %v", err)
	}
	if !strings.Contains(diagnostic, `"@alice"`) {
		t.Errorf("diagnostic %s does not carry the text form", diagnostic)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.Sender.value != "alice" {
		t.Errorf("decoded sender = %q, want alice", decoded.Sender.value)
	}
}

func TestUntypedMapsUseStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"ok": map[string]any{"name": "alice"}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := outer["ok"].(map[string]any); !ok {
		t.Errorf("nested value is %T, want map[string]any", outer["ok"])
	}
}
