// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/chatui"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

func tuiCommand(g *globals) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Summary: "Open the interactive terminal client",
		Description: `Open the full-screen client with the feed, profiles and messages.
Press ? inside for key bindings.`,
		Flags: func() *pflag.FlagSet { return g.flagSet("tui") },
		Run: func(args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return cli.Validation("%w", err)
			}

			relay := &chatui.Relay{}
			logHandler := chatui.NewLogHandler(level)
			g.notifier = relay
			g.logHandler = logHandler

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := g.login(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inbox := c.messaging(0)
			if err := inbox.Start(ctx); err != nil {
				return cli.Internal("starting message poll: %w", err)
			}
			defer inbox.Stop()
			c.auth.OnLogout(inbox.Stop)

			err = chatui.Run(ctx, chatui.Options{
				Auth:             c.auth,
				Feed:             c.feed(),
				Profile:          c.profiles(),
				Messaging:        inbox,
				Search:           c.session.Backend(),
				Relay:            relay,
				LogHandler:       logHandler,
				UsernameDebounce: cfg.Input.UsernameDebounce.Std(),
				SearchDebounce:   cfg.Input.SearchDebounce.Std(),
				SearchMinLength:  cfg.Input.SearchMinLength,
			})
			if err != nil {
				return cli.Internal("terminal client: %w", err)
			}
			return nil
		},
	}
}
