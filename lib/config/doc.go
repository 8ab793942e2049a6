// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the client configuration.
//
// Configuration comes from one YAML file named by the --config flag or
// the CHAINED_CONFIG environment variable. With neither set, Default()
// is used unchanged, which targets a local replica on
// localhost:4943.
//
// The file may carry development, sandbox and production sections.
// After the base file is read the section matching the resolved
// environment is applied on top. The environment is either named
// explicitly with "environment:" or classified from network.origin,
// the host a web client would be served from.
package config
