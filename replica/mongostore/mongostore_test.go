// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package mongostore

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// openTestStore connects to CHAINED_TEST_MONGO_URI with a throwaway
// database, skipping when no server is configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("CHAINED_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CHAINED_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, uri, "chained_test_"+uuid.NewString()[:8], nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() {
		store.collection.Database().Drop(ctx)
		store.Close(ctx)
	})
	return store
}

func TestLoadEmpty(t *testing.T) {
	store := openTestStore(t)
	data, err := store.Load(context.Background())
	if err != nil || data != nil {
		t.Fatalf("Load() on an empty database = %v, %v", data, err)
	}
}

func TestSaveReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, data := range [][]byte{[]byte("first"), []byte("second")} {
		if err := store.Save(ctx, data); err != nil {
			t.Fatalf("Save(%s) error: %v", data, err)
		}
	}
	data, err := store.Load(ctx)
	if err != nil || !bytes.Equal(data, []byte("second")) {
		t.Fatalf("Load() = %q, %v; want the latest save", data, err)
	}
	count, _ := store.collection.CountDocuments(ctx, map[string]any{})
	if count != 1 {
		t.Errorf("collection holds %d documents, want 1", count)
	}
}

func TestOpenRequiresDatabase(t *testing.T) {
	if _, err := Open(context.Background(), "mongodb://localhost:1", "", nil); err == nil {
		t.Fatal("Open() without a database succeeded")
	}
}
