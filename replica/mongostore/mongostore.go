// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package mongostore keeps replica snapshots in MongoDB.
//
// The whole replica state is one document in the "snapshots"
// collection, replaced on every save:
//
//	{_id: "replica", state: <CBOR bytes>, saved_at: <date>, size: <int>}
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chainedsocial/chainedsocial/lib/logging"
)

const (
	collectionName = "snapshots"
	documentID     = "replica"
	connectTimeout = 10 * time.Second
)

type document struct {
	ID      string    `bson:"_id"`
	State   []byte    `bson:"state"`
	SavedAt time.Time `bson:"saved_at"`
	Size    int       `bson:"size"`
}

// Store reads and writes the snapshot document.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// Open connects to uri and pings the server before returning.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if database == "" {
		return nil, fmt.Errorf("mongostore: database name is required")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
		logger:     logging.Component(logger, "mongostore"),
	}, nil
}

// Load returns the saved snapshot, or nil when none has been saved.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var saved document
	err := s.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&saved)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: loading snapshot: %w", err)
	}
	s.logger.Info("loaded snapshot", "size", saved.Size, "saved_at", saved.SavedAt)
	return saved.State, nil
}

// Save replaces the snapshot with data.
func (s *Store) Save(ctx context.Context, data []byte) error {
	saved := document{
		ID:      documentID,
		State:   data,
		SavedAt: time.Now().UTC(),
		Size:    len(data),
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": documentID}, saved, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: saving snapshot: %w", err)
	}
	s.logger.Debug("saved snapshot", "size", len(data))
	return nil
}

// Close disconnects from the server.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
