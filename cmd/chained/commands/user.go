// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
)

func userCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "user",
		Summary: "View and follow other users",
		Subcommands: []*cli.Command{
			userShowCommand(g),
			followCommand(g, "follow", true),
			followCommand(g, "unfollow", false),
		},
	}
}

func userShowCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "show",
		Summary: "Show a user's profile page and posts",
		Usage:   "chained user show <username>",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("show")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained user show <username>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			return showPage(ctx, g, c, args[0], &output)
		},
	}
}

func followCommand(g *globals, name string, follow bool) *cli.Command {
	summary := "Follow a user"
	if !follow {
		summary = "Stop following a user"
	}
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "chained user " + name + " <username>",
		Flags:   func() *pflag.FlagSet { return g.flagSet(name) },
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained user %s <username>", name)
			}
			username := strings.TrimPrefix(args[0], "@")
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			profiles := c.profiles()
			if follow {
				err = profiles.Follow(ctx, username)
			} else {
				err = profiles.Unfollow(ctx, username)
			}
			if err != nil {
				return cli.Classify(err)
			}
			if follow {
				fmt.Fprintf(g.out(), "Following @%s\n", username)
			} else {
				fmt.Fprintf(g.out(), "Unfollowed @%s\n", username)
			}
			return nil
		},
	}
}
