// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite persists keystore values in a SQLite database through
// a small zombiezen connection pool.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/chainedsocial/chainedsocial/lib/clock"
	"github.com/chainedsocial/chainedsocial/lib/keystore"
	"github.com/chainedsocial/chainedsocial/lib/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_state (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Config holds the parameters for Open.
type Config struct {
	// Path is the database file. Its directory is created if missing.
	// ":memory:" opens a private in-memory database.
	Path string

	// PoolSize defaults to 2. An in-memory database always uses 1.
	PoolSize int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Store is a keystore.Store backed by SQLite. It is safe for
// concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	path   string
}

var _ keystore.Store = (*Store)(nil)

// Open creates or opens the database at cfg.Path. The caller must
// Close the store.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("keystore/sqlite: Path is required")
	}
	logger := logging.OrDiscard(cfg.Logger)
	wallClock := cfg.Clock
	if wallClock == nil {
		wallClock = clock.Real()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}
	if cfg.Path == ":memory:" {
		poolSize = 1
	} else if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("keystore/sqlite: creating state directory: %w", err)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("keystore/sqlite: opening %s: %w", cfg.Path, err)
	}
	logger.Debug("keystore opened", "path", cfg.Path, "pool_size", poolSize)

	return &Store{pool: pool, clock: wallClock, logger: logger, path: cfg.Path}, nil
}

// prepareConnection applies pragmas and the schema on each new
// connection.
func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("keystore/sqlite: %w", err)
	}
	defer s.pool.Put(conn)

	var value []byte
	found := false
	err = sqlitex.Execute(conn, "SELECT value FROM client_state WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, value)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("keystore/sqlite: reading %q: %w", key, err)
	}
	if !found {
		return nil, keystore.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("keystore/sqlite: %w", err)
	}
	defer s.pool.Put(conn)

	if value == nil {
		value = []byte{}
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{Args: []any{key, value, s.clock.Now().UnixNano()}})
	if err != nil {
		return fmt.Errorf("keystore/sqlite: writing %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("keystore/sqlite: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM client_state WHERE key = ?", &sqlitex.ExecOptions{Args: []any{key}})
	if err != nil {
		return fmt.Errorf("keystore/sqlite: deleting %q: %w", key, err)
	}
	return nil
}

// UpdatedAt reports when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("keystore/sqlite: %w", err)
	}
	defer s.pool.Put(conn)

	var updated int64
	found := false
	err = sqlitex.Execute(conn, "SELECT updated_at FROM client_state WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			updated = stmt.ColumnInt64(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("keystore/sqlite: reading %q: %w", key, err)
	}
	if !found {
		return time.Time{}, keystore.ErrNotFound
	}
	return time.Unix(0, updated), nil
}

// Close releases every connection.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("keystore close failed", "path", s.path, "error", err)
		return fmt.Errorf("keystore/sqlite: closing %s: %w", s.path, err)
	}
	return nil
}

// IsNotFound is a convenience for callers holding a concrete *Store.
func IsNotFound(err error) bool { return errors.Is(err, keystore.ErrNotFound) }
