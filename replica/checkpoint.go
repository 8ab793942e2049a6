// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package replica

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// Saver persists snapshot bytes. *mongostore.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, data []byte) error
}

// Checkpointer saves the replica's snapshot on an interval, skipping
// saves when nothing changed since the last one.
type Checkpointer struct {
	replica  *Replica
	saver    Saver
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	last []byte
}

// NewCheckpointer returns a Checkpointer. A nil clock uses real time.
func NewCheckpointer(replica *Replica, saver Saver, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Checkpointer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Checkpointer{
		replica:  replica,
		saver:    saver,
		interval: interval,
		clock:    clk,
		logger:   logging.Component(logger, "checkpoint"),
	}
}

// Run saves every interval until ctx is done, then makes one final
// save with a fresh context so shutdown does not lose recent writes.
func (c *Checkpointer) Run(ctx context.Context) error {
	if c.interval <= 0 {
		return fmt.Errorf("checkpoint interval must be positive, got %s", c.interval)
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return c.Save(final)
		case <-ticker.C:
			if err := c.Save(ctx); err != nil {
				c.logger.Warn("checkpoint failed", "error", err)
			}
		}
	}
}

// Save writes the current snapshot if it differs from the last one
// saved.
func (c *Checkpointer) Save(ctx context.Context) error {
	data, err := c.replica.Snapshot()
	if err != nil {
		return err
	}
	if c.last != nil && bytes.Equal(data, c.last) {
		return nil
	}
	if err := c.saver.Save(ctx, data); err != nil {
		return err
	}
	c.last = data
	c.logger.Debug("checkpoint saved", "size", len(data))
	return nil
}
