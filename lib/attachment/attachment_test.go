// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package attachment

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/actor"
)

func TestTextUsesZstd(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 200))
	a, err := New("notes.txt", "text/plain; charset=utf-8", data)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Compression != string(Zstd) {
		t.Errorf("compression = %s, want zstd", a.Compression)
	}
	if len(a.Data) >= len(data) {
		t.Errorf("compressed %d bytes into %d", len(data), len(a.Data))
	}
	assertOpens(t, a, data)
}

func TestBinaryUsesLZ4(t *testing.T) {
	data := bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 1024)
	a, err := New("table.bin", "application/octet-stream", data)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Compression != string(LZ4) {
		t.Errorf("compression = %s, want lz4", a.Compression)
	}
	assertOpens(t, a, data)
}

func TestIncompressibleStoredAsIs(t *testing.T) {
	data := make([]byte, 4096)
	rand.Read(data)
	a, err := New("noise.bin", "application/octet-stream", data)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Compression != string(None) || !bytes.Equal(a.Data, data) {
		t.Errorf("random data was not stored uncompressed (compression %s)", a.Compression)
	}
	assertOpens(t, a, data)
}

func TestReadFileTypesByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nnot really"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if a.Name != "avatar.png" || a.MimeType != "image/png" {
		t.Errorf("attachment = %s %s", a.Name, a.MimeType)
	}
	if MessageType(a.MimeType) != actor.MessageImage {
		t.Error("png not sent as an image message")
	}
}

func TestOversizeRejected(t *testing.T) {
	if _, err := New("big", "text/plain", make([]byte, MaxSize+1)); err == nil {
		t.Fatal("New() accepted an oversize attachment")
	}
}

func TestOpenRejectsSizeMismatch(t *testing.T) {
	a := actor.Attachment{Name: "x", Size: 10, Compression: "none", Data: []byte("short")}
	if _, err := Open(a); err == nil {
		t.Fatal("Open() accepted a size mismatch")
	}
}

func assertOpens(t *testing.T, a actor.Attachment, want []byte) {
	t.Helper()
	got, err := Open(a)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("Open() did not return the original bytes")
	}
}
