// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Chained-replica is a development backend for Chained Social. It
// serves the backend, social graph and messaging canisters from memory
// and doubles as the identity provider, so the client runs end to end
// on one machine.
//
// With --mongo-uri the state is checkpointed to MongoDB and restored
// at startup.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/chainedsocial/chainedsocial/lib/logging"
	"github.com/chainedsocial/chainedsocial/lib/service"
	"github.com/chainedsocial/chainedsocial/lib/version"
	"github.com/chainedsocial/chainedsocial/replica"
	"github.com/chainedsocial/chainedsocial/replica/mongostore"
)

type options struct {
	listen           string
	mongoURI         string
	mongoDatabase    string
	snapshotInterval time.Duration
	canisterIDsFile  string
	maxDelegationTTL time.Duration
	logLevel         string
	logFormat        string
	showVersion      bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flags := pflag.NewFlagSet("chained-replica", pflag.ContinueOnError)
	flags.StringVar(&opts.listen, "listen", "localhost:4943", "address to serve the replica API on")
	flags.StringVar(&opts.mongoURI, "mongo-uri", os.Getenv("CHAINED_MONGO_URI"), "MongoDB URI for state checkpoints (empty keeps state in memory only)")
	flags.StringVar(&opts.mongoDatabase, "mongo-database", "chained_replica", "MongoDB database holding the checkpoint")
	flags.DurationVar(&opts.snapshotInterval, "snapshot-interval", 30*time.Second, "how often to checkpoint state")
	flags.StringVar(&opts.canisterIDsFile, "canister-ids", "canister_ids.json", "write the canister ids here for clients (empty to skip)")
	flags.DurationVar(&opts.maxDelegationTTL, "max-delegation-ttl", replica.DefaultMaxDelegationTTL, "longest delegation the identity provider issues")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "auto", "auto, text or json")
	flags.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Printf("chained-replica %s\n", version.Info())
		return nil
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{Level: level, Format: logging.Format(opts.logFormat)})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := replica.New(replica.Options{Logger: logger})
	logger.Info("starting chained-replica", "version", version.Info())

	var checkpointer *replica.Checkpointer
	if opts.mongoURI != "" {
		store, err := mongostore.Open(ctx, opts.mongoURI, opts.mongoDatabase, logger)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())

		saved, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if saved != nil {
			if err := state.Restore(saved); err != nil {
				return err
			}
		}
		checkpointer = replica.NewCheckpointer(state, store, opts.snapshotInterval, nil, logger)
	}

	handler, err := replica.NewServer(state, replica.ServerOptions{
		MaxDelegationTTL: opts.maxDelegationTTL,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	server, err := service.NewHTTPServer(service.HTTPServerConfig{
		Address: opts.listen,
		Handler: handler,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Go(func() { errs <- server.Serve(ctx) })
	if checkpointer != nil {
		wg.Go(func() { errs <- checkpointer.Run(ctx) })
	}

	select {
	case <-server.Ready():
		if opts.canisterIDsFile != "" {
			if err := writeCanisterIDs(opts.canisterIDsFile, state.Canisters()); err != nil {
				logger.Warn("could not write canister ids", "path", opts.canisterIDsFile, "error", err)
			} else {
				logger.Info("wrote canister ids", "path", opts.canisterIDsFile)
			}
		}
		logger.Info("replica ready", "url", server.URL())
	case <-ctx.Done():
	}

	wg.Wait()
	close(errs)
	var joined []error
	for err := range errs {
		if err != nil {
			joined = append(joined, err)
		}
	}
	return errors.Join(joined...)
}

// writeCanisterIDs records ids under the "local" network in the layout
// lib/canister reads.
func writeCanisterIDs(path string, ids replica.Canisters) error {
	file := map[string]map[string]string{
		"backend":     {"local": ids.Backend},
		"socialgraph": {"local": ids.Social},
		"messaging":   {"local": ids.Messaging},
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
