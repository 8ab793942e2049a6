// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands holds the chained command tree.
package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/version"
)

// Root returns the chained command tree writing to the process
// streams.
func Root() *cli.Command {
	return root(&globals{})
}

func root(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "chained",
		Summary: "Chained Social client",
		Description: `Chained Social is a social network on a decentralized backend.
Post to the shared feed, follow people and message them directly or in
groups.

Configuration is read from --config or $CHAINED_CONFIG. Without one the
client talks to a local replica at http://localhost:4943.`,
		Output: g.out(),
		Subcommands: []*cli.Command{
			loginCommand(g),
			logoutCommand(g),
			whoamiCommand(g),
			profileCommand(g),
			feedCommand(g),
			userCommand(g),
			messagesCommand(g),
			privacyCommand(g),
			tuiCommand(g),
			versionCommand(g),
		},
	}
}

func versionCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if done, err := g.emit(&output, map[string]string{"version": version.Version, "build": version.Info()}); done {
				return err
			}
			fmt.Fprintln(g.out(), version.Full())
			return nil
		},
	}
}
