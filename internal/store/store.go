// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package store persists the latest good aggregation snapshot in BadgerDB
// so a restart serves cameras immediately instead of waiting out a full
// refresh cycle.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/models"
)

const snapshotKey = "snapshot:latest"

// SnapshotStore is a BadgerDB-backed snapshot persister.
type SnapshotStore struct {
	db     *badger.DB
	maxAge time.Duration
}

// Open opens (or creates) the store at the configured path.
func Open(cfg config.StoreConfig) (*SnapshotStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store at %s: %w", cfg.Path, err)
	}
	return &SnapshotStore{db: db, maxAge: cfg.MaxAge}, nil
}

// OpenInMemory builds a store with no disk footprint, for tests.
func OpenInMemory(maxAge time.Duration) (*SnapshotStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening in-memory snapshot store: %w", err)
	}
	return &SnapshotStore{db: db, maxAge: maxAge}, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the persisted snapshot.
func (s *SnapshotStore) SaveSnapshot(snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), data)
	})
}

// LoadSnapshot returns the persisted snapshot, or nil when none exists or
// the stored one is older than the configured maximum age. Stale data is
// worse than an empty map here; the caller falls back to a live refresh.
func (s *SnapshotStore) LoadSnapshot() (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	if snap.Taken.IsZero() {
		return nil, nil
	}
	if s.maxAge > 0 && time.Since(snap.Taken) > s.maxAge {
		return nil, nil
	}
	return &snap, nil
}
