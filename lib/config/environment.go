// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Environment selects the identity strategy and backend host.
type Environment string

const (
	// Development is a local replica on the same machine. Identity is
	// a deterministic key held in local storage.
	Development Environment = "development"

	// Sandbox is a hosted development workspace. Identity is
	// deterministic like Development.
	Sandbox Environment = "sandbox"

	// Production uses a delegated identity from the identity provider.
	Production Environment = "production"
)

// Deterministic reports whether the environment uses a locally seeded
// identity rather than a delegation.
func (e Environment) Deterministic() bool {
	return e == Development || e == Sandbox
}

// ParseEnvironment accepts the three environment names plus the
// aliases "local" and "codespaces".
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "development", "local":
		return Development, nil
	case "sandbox", "codespaces":
		return Sandbox, nil
	case "production":
		return Production, nil
	}
	return "", fmt.Errorf("unknown environment %q", name)
}

// ClassifyHost maps a client origin to an environment. Hosts naming
// localhost or 127.0.0.1 are Development, github.dev hosts are
// Sandbox, and everything else is Production. origin may be a bare
// hostname or a URL.
func ClassifyHost(origin string) Environment {
	host := strings.ToLower(strings.TrimSpace(origin))
	if strings.Contains(host, "://") {
		if parsed, err := url.Parse(host); err == nil {
			host = parsed.Hostname()
		}
	}
	switch {
	case strings.Contains(host, "localhost"), strings.Contains(host, "127.0.0.1"):
		return Development
	case strings.Contains(host, "github.dev"):
		return Sandbox
	default:
		return Production
	}
}
