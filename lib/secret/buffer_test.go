// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromBytesZeroesSource(t *testing.T) {
	source := []byte("correct horse battery staple")
	buffer, err := FromBytes(source)
	if err != nil {
		t.Fatalf("FromBytes() error: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "correct horse battery staple" {
		t.Errorf("String() = %q", buffer.String())
	}
	for index, b := range source {
		if b != 0 {
			t.Fatalf("source[%d] = %d, want zeroed", index, b)
		}
	}
}

func TestCloseIsIdempotentAndBlocksReads(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	defer func() {
		if recover() != ErrClosed {
			t.Error("Bytes() after Close did not panic with ErrClosed")
		}
	}()
	buffer.Bytes()
}

func TestReadFileTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passphrase")
	if err := os.WriteFile(path, []byte("  hunter2 \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	buffer, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	defer buffer.Close()
	if buffer.String() != "hunter2" {
		t.Errorf("ReadFile() = %q, want hunter2", buffer.String())
	}
}

func TestReadLineRejectsBlank(t *testing.T) {
	if _, err := ReadLine(strings.NewReader("   \n")); err == nil {
		t.Fatal("ReadLine() accepted a blank secret")
	}
}
