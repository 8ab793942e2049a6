// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package canister

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainedsocial/chainedsocial/lib/config"
)

const idsFile = `{
  // written by the deploy step
  "backend":     {"local": "backend-local", "ic": "backend-ic"},
  "socialgraph": {"local": "social-local", "ic": "social-ic"},
  "messaging":   {"local": "messaging-local", "ic": "messaging-ic", "playground": "messaging-play"},
}`

func writeIDs(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canister_ids.json")
	if err := os.WriteFile(path, []byte(idsFile), 0o644); err != nil {
		t.Fatalf("writing ids file: %v", err)
	}
	return path
}

func TestResolveFromFile(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = config.Production
	cfg.Canisters.IDsFile = writeIDs(t)

	ids, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := IDs{Backend: "backend-ic", Social: "social-ic", Messaging: "messaging-ic"}
	if ids != want {
		t.Errorf("Resolve() = %+v, want %+v", ids, want)
	}
}

func TestConfiguredIDsWin(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = config.Development
	cfg.Canisters.IDsFile = writeIDs(t)
	cfg.Canisters.Backend = "pinned"

	ids, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ids.Backend != "pinned" || ids.Social != "social-local" {
		t.Errorf("Resolve() = %+v", ids)
	}
}

func TestSandboxFallsBackToLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Environment = config.Sandbox
	cfg.Canisters.IDsFile = writeIDs(t)

	ids, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ids.Messaging != "messaging-play" || ids.Backend != "backend-local" {
		t.Errorf("Resolve() = %+v", ids)
	}
}

func TestMissingIDsReported(t *testing.T) {
	cfg := config.Default()
	cfg.Canisters.IDsFile = filepath.Join(t.TempDir(), "absent.json")
	cfg.Canisters.Backend = "only-backend"

	_, err := Resolve(cfg)
	if err == nil {
		t.Fatal("Resolve() succeeded without social and messaging ids")
	}
	if !strings.Contains(err.Error(), "canisters.social") || !strings.Contains(err.Error(), "canisters.messaging") {
		t.Errorf("error does not name both missing ids: %v", err)
	}
}
