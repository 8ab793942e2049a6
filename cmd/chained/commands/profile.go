// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/present"
	"github.com/chainedsocial/chainedsocial/store/auth"
	"github.com/chainedsocial/chainedsocial/store/profile"
)

func profileCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Summary: "Show, create or update your profile",
		Subcommands: []*cli.Command{
			profileShowCommand(g),
			profileSetCommand(g),
			profileCheckCommand(g),
		},
	}
}

func profileShowCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "show",
		Summary: "Show your profile page",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("show")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.requireProfile(); err != nil {
				return err
			}
			return showPage(ctx, g, c, c.auth.Profile().Name, &output)
		},
	}
}

func profileSetCommand(g *globals) *cli.Command {
	var (
		username string
		bio      string
		output   cli.JSONOutput
	)
	return &cli.Command{
		Name:    "set",
		Summary: "Create or update your profile",
		Usage:   "chained profile set --username <name> [--bio <text>]",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("set")
			flagSet.StringVar(&username, "username", "", "unique username (defaults to the current one)")
			flagSet.StringVar(&bio, "bio", "", "short bio")
			output.AddFlag(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Create a profile", Command: `chained profile set --username alice --bio "Hello!"`},
		},
		Run: func(args []string) error {
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if current := c.auth.Profile(); current != nil && username == "" {
				username = current.Name
			}
			saved, err := c.auth.SetProfile(ctx, username, bio)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := g.emit(&output, saved); done {
				return err
			}
			fmt.Fprintf(g.out(), "Saved profile @%s\n", saved.Name)
			return nil
		},
	}
}

func profileCheckCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "check",
		Summary: "Check whether a username is available",
		Usage:   "chained profile check <username>",
		Description: `Print "available", "taken", "current" (it is already yours) or
"unknown". Exits 1 when the name is taken.`,
		Flags: func() *pflag.FlagSet { return g.flagSet("check") },
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: chained profile check <username>")
			}
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			availability := c.auth.CheckUsernameAvailable(ctx, args[0])
			fmt.Fprintln(g.out(), availability)
			if availability == auth.Taken {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// pageJSON is the --json form of a profile page.
type pageJSON struct {
	Username    string       `json:"username"`
	Bio         string       `json:"bio"`
	Principal   string       `json:"principal,omitempty"`
	Own         bool         `json:"own"`
	Following   bool         `json:"following"`
	Placeholder bool         `json:"placeholder,omitempty"`
	Posts       []actor.Post `json:"posts"`
}

func showPage(ctx context.Context, g *globals, c *client, username string, output *cli.JSONOutput) error {
	page, err := c.profiles().Load(ctx, strings.TrimPrefix(username, "@"))
	if err != nil {
		return cli.Classify(err)
	}
	if done, err := g.emit(output, pageJSON{
		Username:    page.Profile.Name,
		Bio:         page.Profile.Bio,
		Principal:   page.Profile.ID,
		Own:         page.Own,
		Following:   page.Following,
		Placeholder: page.Placeholder,
		Posts:       page.Posts,
	}); done {
		return err
	}
	writePage(g.out(), page, time.Now())
	return nil
}

func writePage(w io.Writer, page profile.Page, now time.Time) {
	header := fmt.Sprintf("[%s] @%s", present.Initials(page.Profile.Name), page.Profile.Name)
	switch {
	case page.Own:
		header += " (you)"
	case page.Following:
		header += " · following"
	}
	fmt.Fprintln(w, header)
	if page.Profile.Bio != "" {
		fmt.Fprintf(w, "  %s\n", page.Profile.Bio)
	}
	if page.Placeholder {
		fmt.Fprintln(w, "  This user has not set up a profile.")
	}
	fmt.Fprintf(w, "\n%d posts\n", len(page.Posts))
	for _, post := range page.Posts {
		writePost(w, post, now)
	}
}
