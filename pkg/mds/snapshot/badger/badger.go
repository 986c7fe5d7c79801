// Package badger provides a BadgerDB-backed snapshot store.
//
// This implementation is suitable for production deployments where ledger
// state must survive server restarts. It can open its own database or
// share the server's existing BadgerDB instance, the same way the other
// driftfs metadata stores do.
package badger

import (
	"context"
	"encoding/binary"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/mds/sessions"
	"github.com/driftfs/driftfs/pkg/mds/snapshot"
)

// Key layout: mds:sessions:snap:{shard} -> record
//
// Record layout: [format:1 byte][version:8 bytes BE][payload]
// One value per shard keeps the version and payload atomic under a single
// badger transaction.
const (
	prefixSnapshot = "mds:sessions:snap:"

	// formatVersion is bumped when the record layout changes. A mismatch
	// on load surfaces as ErrFormatMismatch so the caller can refuse the
	// shard or rebuild from the journal.
	formatVersion byte = 1

	recordHeaderLen = 1 + 8
)

// BadgerStore implements snapshot.Store using BadgerDB.
type BadgerStore struct {
	db     *badgerdb.DB
	ownsDB bool
}

// New opens a BadgerDB database at path and returns a store that owns it.
func New(path string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database at %s: %w", path, err)
	}

	logger.Debug("snapshot store opened", "path", path)
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewWithDB wraps an existing BadgerDB instance. The caller retains
// ownership of the database; Close on the returned store is a no-op.
func NewWithDB(db *badgerdb.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func keySnapshot(shard string) []byte {
	return []byte(prefixSnapshot + shard)
}

// Save makes the encoded snapshot durable for the shard.
func (s *BadgerStore) Save(ctx context.Context, shard string, version sessions.VersionID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return snapshot.ErrStoreClosed
	}

	record := make([]byte, recordHeaderLen+len(data))
	record[0] = formatVersion
	binary.BigEndian.PutUint64(record[1:recordHeaderLen], uint64(version))
	copy(record[recordHeaderLen:], data)

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keySnapshot(shard), record)
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot for shard %s: %w", shard, err)
	}

	// Badger's default SyncWrites makes the commit durable before Update
	// returns, which is what lets the tracker confirm the version.
	return nil
}

// Load returns the most recent snapshot for the shard.
func (s *BadgerStore) Load(ctx context.Context, shard string) (sessions.VersionID, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if s.db.IsClosed() {
		return 0, nil, snapshot.ErrStoreClosed
	}

	var version sessions.VersionID
	var data []byte

	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keySnapshot(shard))
		if err == badgerdb.ErrKeyNotFound {
			return snapshot.ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) < recordHeaderLen {
				return fmt.Errorf("%w: record too short (%d bytes)", snapshot.ErrCorrupted, len(val))
			}
			if val[0] != formatVersion {
				return fmt.Errorf("%w: have %d, want %d", snapshot.ErrFormatMismatch, val[0], formatVersion)
			}
			version = sessions.VersionID(binary.BigEndian.Uint64(val[1:recordHeaderLen]))
			data = make([]byte, len(val)-recordHeaderLen)
			copy(data, val[recordHeaderLen:])
			return nil
		})
	})
	if err != nil {
		return 0, nil, err
	}

	return version, data, nil
}

// Close closes the database if this store owns it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot database: %w", err)
	}
	return nil
}

// IsEnabled returns true.
func (s *BadgerStore) IsEnabled() bool {
	return true
}

// Ensure BadgerStore implements Store.
var _ snapshot.Store = (*BadgerStore)(nil)
