// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/canister"
)

// whoami is the --json form of whoami and login.
type whoami struct {
	Principal   string            `json:"principal"`
	Environment string            `json:"environment"`
	Host        string            `json:"host"`
	Username    string            `json:"username,omitempty"`
	Bio         string            `json:"bio,omitempty"`
	Expires     *time.Time        `json:"expires,omitempty"`
	Canisters   map[string]string `json:"canisters"`
}

func describeSession(c *client) whoami {
	result := whoami{
		Principal:   c.session.Principal.String(),
		Environment: string(c.session.Environment),
		Host:        c.session.Agent.Host(),
		Canisters: map[string]string{
			"backend":   c.session.Canisters.Backend,
			"social":    c.session.Canisters.Social,
			"messaging": c.session.Canisters.Messaging,
		},
	}
	if profile := c.auth.Profile(); profile != nil {
		result.Username = profile.Name
		result.Bio = profile.Bio
	}
	if !c.session.Expiry.IsZero() {
		expiry := c.session.Expiry
		result.Expires = &expiry
	}
	return result
}

func loginCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "login",
		Summary: "Acquire an identity and connect to the backend",
		Description: `Log in for the configured environment.

Development and sandbox environments derive a stable key from the
session key in the local store. Production asks the identity provider
for a delegation and caches it until it expires, so later commands
reuse it.`,
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("login")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("login takes no arguments")
			}
			g.announce = true
			c, err := g.login(context.Background())
			if err != nil {
				return err
			}
			defer c.Close()

			result := describeSession(c)
			if done, err := g.emit(&output, result); done {
				return err
			}
			fmt.Fprintf(g.out(), "Logged in as %s\n", result.Principal)
			if result.Username == "" {
				fmt.Fprintln(g.out(), "No profile yet. Create one with: chained profile set --username <name>")
			}
			return nil
		},
	}
}

func logoutCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "logout",
		Summary: "Forget the stored session key and delegation",
		Description: `Remove the persisted session key and any cached delegation.
The next login yields a new identity.`,
		Flags: func() *pflag.FlagSet { return g.flagSet("logout") },
		Run: func(args []string) error {
			g.announce = true
			c, err := g.open()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.auth.Logout(context.Background()); err != nil {
				return cli.Internal("clearing session: %w", err)
			}
			return nil
		},
	}
}

func whoamiCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the current principal, environment and profile",
		Flags: func() *pflag.FlagSet {
			flagSet := g.flagSet("whoami")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			c, err := g.login(context.Background())
			if err != nil {
				return err
			}
			defer c.Close()

			result := describeSession(c)
			if done, err := g.emit(&output, result); done {
				return err
			}
			w := g.out()
			fmt.Fprintf(w, "Principal:   %s\n", result.Principal)
			fmt.Fprintf(w, "Environment: %s (%s network)\n", result.Environment, canister.Network(c.session.Environment))
			fmt.Fprintf(w, "Host:        %s\n", result.Host)
			if result.Username != "" {
				fmt.Fprintf(w, "Username:    @%s\n", result.Username)
			} else {
				fmt.Fprintln(w, "Username:    (no profile)")
			}
			if result.Expires != nil {
				fmt.Fprintf(w, "Expires:     %s\n", result.Expires.Format(time.RFC3339))
			}
			return nil
		},
	}
}
