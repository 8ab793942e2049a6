// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package canister resolves the ids of the three backend canisters
// from configuration and, for anything left unset, from a
// canister_ids.json file written by the deployment tooling.
//
// The file maps canister names to per-network ids:
//
//	{
//	  "backend":     {"local": "bkyz2-fmaaa-aaaaa-qaaaq-cai", "ic": "..."},
//	  "socialgraph": {"local": "bd3sg-teaaa-aaaaa-qaaba-cai"},
//	  "messaging":   {"local": "be2us-64aaa-aaaaa-qaabq-cai"},
//	}
//
// Comments and trailing commas are accepted.
package canister

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/chainedsocial/chainedsocial/lib/config"
)

// IDs names the canister behind each actor.
type IDs struct {
	Backend   string
	Social    string
	Messaging string
}

// File is a parsed canister_ids.json: canister name to network to id.
type File map[string]map[string]string

// ParseFile parses canister_ids.json content.
func ParseFile(data []byte) (File, error) {
	var file File
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing canister ids: %w", err)
	}
	return file, nil
}

// ReadFile reads and parses path.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Lookup returns the id of the first of names deployed on network.
func (f File) Lookup(network string, names ...string) string {
	for _, name := range names {
		if id := f[name][network]; id != "" {
			return id
		}
	}
	return ""
}

// Network returns the canister_ids.json network key for environment.
func Network(environment config.Environment) string {
	switch environment {
	case config.Production:
		return "ic"
	case config.Sandbox:
		return "playground"
	}
	return "local"
}

// Resolve combines explicit ids from cfg with the ids file. A missing
// ids file is not an error when every id is configured. Sandbox
// deployments fall back to local ids when the file has no playground
// entry.
func Resolve(cfg *config.Config) (IDs, error) {
	ids := IDs{
		Backend:   cfg.Canisters.Backend,
		Social:    cfg.Canisters.Social,
		Messaging: cfg.Canisters.Messaging,
	}
	if ids.complete() {
		return ids, nil
	}

	if cfg.Canisters.IDsFile != "" {
		file, err := ReadFile(cfg.Canisters.IDsFile)
		switch {
		case err == nil:
			ids.fillFrom(file, Network(cfg.Environment))
			if cfg.Environment == config.Sandbox {
				ids.fillFrom(file, "local")
			}
		case !errors.Is(err, os.ErrNotExist):
			return IDs{}, err
		}
	}

	var missing []error
	if ids.Backend == "" {
		missing = append(missing, errors.New("canisters.backend is not configured"))
	}
	if ids.Social == "" {
		missing = append(missing, errors.New("canisters.social is not configured"))
	}
	if ids.Messaging == "" {
		missing = append(missing, errors.New("canisters.messaging is not configured"))
	}
	if len(missing) > 0 {
		return IDs{}, fmt.Errorf("resolving canister ids for %s (ids file %q): %w",
			cfg.Environment, cfg.Canisters.IDsFile, errors.Join(missing...))
	}
	return ids, nil
}

func (ids *IDs) fillFrom(file File, network string) {
	if ids.Backend == "" {
		ids.Backend = file.Lookup(network, "backend")
	}
	if ids.Social == "" {
		ids.Social = file.Lookup(network, "socialgraph", "social")
	}
	if ids.Messaging == "" {
		ids.Messaging = file.Lookup(network, "messaging")
	}
}

func (ids IDs) complete() bool {
	return ids.Backend != "" && ids.Social != "" && ids.Messaging != ""
}
