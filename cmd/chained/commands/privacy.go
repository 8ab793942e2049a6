// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/actor"
	"github.com/chainedsocial/chainedsocial/lib/present"
)

func privacyCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "privacy",
		Summary: "Messaging privacy settings",
		Subcommands: []*cli.Command{
			privacyShowCommand(g),
			privacySetCommand(g),
		},
	}
}

func privacyShowCommand(g *globals) *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "show",
		Summary: "Show who may message you",
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

			inbox := c.messaging(0)
			if err := inbox.LoadPrivacySettings(ctx); err != nil {
				return cli.Classify(err)
			}
			settings := actor.DefaultPrivacySettings()
			if loaded := inbox.View().Privacy; loaded != nil {
				settings = *loaded
			}
			if done, err := g.emit(&output, settings); done {
				return err
			}
			w := g.out()
			fmt.Fprintf(w, "Messages from: %s (%s)\n", present.PrivacyLabel(settings.AllowMessagesFrom), present.PrivacyDescription(settings.AllowMessagesFrom))
			fmt.Fprintf(w, "Group invites: %s\n", onOff(settings.AllowGroupInvites))
			fmt.Fprintf(w, "Online status: %s\n", onOff(settings.ShowOnlineStatus))
			fmt.Fprintf(w, "Read receipts: %s\n", onOff(settings.ShowReadReceipts))
			return nil
		},
	}
}

func privacySetCommand(g *globals) *cli.Command {
	var (
		allowFrom    string
		groupInvites bool
		onlineStatus bool
		readReceipts bool
		flagSet      *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "set",
		Summary: "Change privacy settings",
		Description: `Change one or more settings. Settings not named on the command
line keep their current value.`,
		Flags: func() *pflag.FlagSet {
			flagSet = g.flagSet("set")
			flagSet.StringVar(&allowFrom, "allow-from", "", "everyone, followersOnly, connectionsOnly or nobody")
			flagSet.BoolVar(&groupInvites, "group-invites", true, "allow being added to groups")
			flagSet.BoolVar(&onlineStatus, "online-status", true, "show when you are online")
			flagSet.BoolVar(&readReceipts, "read-receipts", true, "show when you have read a message")
			return flagSet
		},
		Examples: []cli.Example{
			{Command: "chained privacy set --allow-from everyone --read-receipts=false"},
		},
		Run: func(args []string) error {
			ctx := context.Background()
			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inbox := c.messaging(0)
			if err := inbox.LoadPrivacySettings(ctx); err != nil {
				return cli.Classify(err)
			}
			settings := actor.DefaultPrivacySettings()
			if loaded := inbox.View().Privacy; loaded != nil {
				settings = *loaded
			}
			if flagSet.Changed("allow-from") {
				policy, err := actor.ParseMessagePolicy(allowFrom)
				if err != nil {
					return cli.Validation("%w", err)
				}
				settings.AllowMessagesFrom = policy
			}
			if flagSet.Changed("group-invites") {
				settings.AllowGroupInvites = groupInvites
			}
			if flagSet.Changed("online-status") {
				settings.ShowOnlineStatus = onlineStatus
			}
			if flagSet.Changed("read-receipts") {
				settings.ShowReadReceipts = readReceipts
			}

			if err := inbox.UpdatePrivacySettings(ctx, settings); err != nil {
				return cli.Classify(err)
			}
			fmt.Fprintln(g.out(), "Privacy settings saved.")
			return nil
		},
	}
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
