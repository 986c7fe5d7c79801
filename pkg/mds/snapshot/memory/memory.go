// Package memory provides an in-memory snapshot store.
//
// Suitable for tests and cache-only deployments where ledger state does
// not need to survive a process restart.
package memory

import (
	"context"
	"sync"

	"github.com/driftfs/driftfs/pkg/mds/sessions"
	"github.com/driftfs/driftfs/pkg/mds/snapshot"
)

type record struct {
	version sessions.VersionID
	data    []byte
}

// MemoryStore keeps the latest snapshot per shard in a map. All methods
// are safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]record),
	}
}

// Save stores a copy of the snapshot, superseding any previous one for the
// shard.
func (s *MemoryStore) Save(ctx context.Context, shard string, version sessions.VersionID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return snapshot.ErrStoreClosed
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.records[shard] = record{version: version, data: buf}
	return nil
}

// Load returns a copy of the most recent snapshot for the shard.
func (s *MemoryStore) Load(ctx context.Context, shard string) (sessions.VersionID, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, nil, snapshot.ErrStoreClosed
	}

	rec, ok := s.records[shard]
	if !ok {
		return 0, nil, snapshot.ErrNotFound
	}

	buf := make([]byte, len(rec.data))
	copy(buf, rec.data)
	return rec.version, buf, nil
}

// Close marks the store closed; further operations fail with
// ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

// IsEnabled returns true.
func (s *MemoryStore) IsEnabled() bool {
	return true
}

// Ensure MemoryStore implements Store.
var _ snapshot.Store = (*MemoryStore)(nil)
