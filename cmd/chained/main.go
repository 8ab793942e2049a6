// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Chained is the command-line and terminal client for Chained Social.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/cmd/chained/commands"
)

func main() {
	err := commands.Root().Execute(os.Args[1:])
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
