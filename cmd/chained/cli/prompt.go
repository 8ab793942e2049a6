// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/chainedsocial/chainedsocial/lib/secret"
)

// ReadPassphrase reads the keystore passphrase from path, or prompts
// on the terminal with echo off when path is empty.
func ReadPassphrase(path string) (*secret.Buffer, error) {
	if path != "" {
		buffer, err := secret.ReadFile(path)
		if err != nil {
			return nil, Validation("reading passphrase: %w", err)
		}
		return buffer, nil
	}

	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return nil, Validation("no terminal available for the passphrase prompt (set storage.passphrase_file)")
	}
	fmt.Fprint(os.Stderr, "Keystore passphrase: ")
	passphrase, err := term.ReadPassword(stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, Internal("reading passphrase: %w", err)
	}
	defer secret.Zero(passphrase)
	if len(passphrase) == 0 {
		return nil, Validation("passphrase is empty")
	}
	return secret.FromBytes(passphrase)
}
