// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/cmd/chained/cli"
	"github.com/chainedsocial/chainedsocial/lib/config"
	"github.com/chainedsocial/chainedsocial/lib/delegation"
	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/keystore/sealed"
	"github.com/chainedsocial/chainedsocial/lib/keystore/sqlite"
	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/lib/notify"
	"github.com/chainedsocial/chainedsocial/lib/secret"
	"github.com/chainedsocial/chainedsocial/session"
	"github.com/chainedsocial/chainedsocial/store/auth"
	"github.com/chainedsocial/chainedsocial/store/feed"
	"github.com/chainedsocial/chainedsocial/store/messaging"
	"github.com/chainedsocial/chainedsocial/store/profile"
)

// promptPassphrase is the storage.passphrase_file value that asks on
// the terminal instead of reading a file.
const promptPassphrase = "prompt"

// globals are the flags every command accepts.
type globals struct {
	configPath string
	logLevel   string

	// announce shows success notices as well as errors. Only login
	// and logout set it.
	announce bool

	// notifier and logHandler, when set, replace the stderr notice
	// writer and the configured log handler. The terminal UI sets them.
	notifier   notify.Dispatcher
	logHandler slog.Handler

	// stdout and stderr default to the process streams.
	stdout io.Writer
	stderr io.Writer
}

func (g *globals) flagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&g.configPath, "config", "", "config file (default $CHAINED_CONFIG)")
	flagSet.StringVar(&g.logLevel, "log-level", "", "override logging.level")
	return flagSet
}

func (g *globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *globals) errOut() io.Writer {
	if g.stderr == nil {
		return os.Stderr
	}
	return g.stderr
}

// emit writes v to stdout when --json was given.
func (g *globals) emit(output *cli.JSONOutput, v any) (bool, error) {
	output.Writer = g.out()
	return output.EmitJSON(v)
}

// client is one logged-in invocation: configuration, the open key
// store and the stores bound to the session.
type client struct {
	cfg     *config.Config
	logger  *slog.Logger
	keys    keystore.Store
	closers []io.Closer

	auth    *auth.Store
	session *session.Session
}

// loadConfig reads and validates the configuration.
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the root logger from cfg.
func newLogger(cfg *config.Config, output io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      logging.Format(cfg.Logging.Format),
		Output:      output,
		Environment: string(cfg.Environment),
	}), nil
}

// open loads configuration and the key store without logging in.
func (g *globals) open() (*client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, g.errOut())
	if err != nil {
		return nil, err
	}
	if g.logHandler != nil {
		logger = slog.New(g.logHandler).With("environment", string(cfg.Environment))
	}
	c := &client{cfg: cfg, logger: logger}

	db, err := sqlite.Open(sqlite.Config{Path: cfg.Storage.Path, Logger: logger})
	if err != nil {
		return nil, cli.Internal("opening key store: %w", err)
	}
	c.closers = append(c.closers, db)
	c.keys = db

	if path := cfg.Storage.PassphraseFile; path != "" {
		if path == promptPassphrase {
			path = ""
		}
		passphrase, err := cli.ReadPassphrase(path)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, passphrase)
		c.keys = sealed.Wrap(db, passphrase)
	}

	var notifier notify.Dispatcher = notify.NewWriter(g.errOut())
	switch {
	case g.notifier != nil:
		notifier = notify.Logged(g.notifier, logger)
	case !g.announce:
		notifier = errorsOnly(notifier)
	}
	c.auth = auth.New(auth.Options{
		Notifier: notifier,
		Keys:     c.keys,
		Logger:   logger,
	})
	return c, nil
}

func errorsOnly(next notify.Dispatcher) notify.Dispatcher {
	return notify.Func(func(ctx context.Context, notification notify.Notification) {
		if notification.Kind == notify.Error {
			next.Notify(ctx, notification)
		}
	})
}

// login opens the client and runs the session bootstrap.
func (g *globals) login(ctx context.Context) (*client, error) {
	c, err := g.open()
	if err != nil {
		return nil, err
	}
	provider, err := c.provider()
	if err != nil {
		c.Close()
		return nil, err
	}
	bootstrapper, err := session.FromConfig(c.cfg, c.keys, provider, c.logger)
	if err != nil {
		c.Close()
		return nil, cli.Validation("%w", err)
	}
	sess, err := c.auth.Login(ctx, bootstrapper)
	if err != nil {
		c.Close()
		return nil, cli.Classify(err)
	}
	c.session = sess
	return c, nil
}

// provider returns the identity provider for delegated logins, or nil
// when the environment derives its identity locally.
func (c *client) provider() (delegation.Provider, error) {
	if c.cfg.Environment.Deterministic() {
		return nil, nil
	}
	var token *secret.Buffer
	if path := c.cfg.IdentityProvider.TokenFile; path != "" {
		var err error
		token, err = secret.ReadFile(path)
		if err != nil {
			return nil, cli.Validation("reading identity provider token: %w", err)
		}
		c.closers = append(c.closers, token)
	}
	provider, err := delegation.NewHTTPProvider(c.cfg.IdentityProvider.URL, token, nil, c.logger)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return provider, nil
}

func (c *client) feed() *feed.Store {
	s := feed.New(c.session.Backend(), c.logger)
	s.SetProfile(c.auth.Profile())
	return s
}

func (c *client) profiles() *profile.Store {
	s := profile.New(profile.Options{
		Backend: c.session.Backend(),
		Social:  c.session.Social(),
		Logger:  c.logger,
	})
	s.SetViewer(c.session.Principal, c.auth.Profile())
	return s
}

// messaging returns a messaging store. A positive pageSize overrides
// messaging.page_size.
func (c *client) messaging(pageSize int) *messaging.Store {
	if pageSize <= 0 {
		pageSize = c.cfg.Messaging.PageSize
	}
	return messaging.New(messaging.Options{
		Actor:        c.session.Messaging(),
		PollInterval: c.cfg.Messaging.PollInterval.Std(),
		PageSize:     pageSize,
		ErrorDisplay: c.cfg.Messaging.ErrorDisplay.Std(),
		Logger:       c.logger,
	})
}

// requireProfile fails commands that act under the caller's name.
func (c *client) requireProfile() error {
	if c.auth.Profile() == nil {
		return cli.Validation("set up your profile first: chained profile set --username <name>")
	}
	return nil
}

// Close releases the key store and any secrets, newest first.
func (c *client) Close() error {
	var errs []error
	for index := len(c.closers) - 1; index >= 0; index-- {
		if err := c.closers[index].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing client: %w", err)
	}
	return nil
}
