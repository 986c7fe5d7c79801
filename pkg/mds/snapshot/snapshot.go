// Package snapshot defines the persistence seam between the client-session
// ledger and the journal subsystem.
//
// The ledger encodes its persistent fields to a byte slice; a Store accepts
// that snapshot together with the version it represents and makes it
// durable. The ledger never decides when to flush — that policy belongs to
// the owning tracker — and a Store never interprets the payload.
package snapshot

import (
	"context"
	"errors"

	"github.com/driftfs/driftfs/pkg/mds/sessions"
)

// Store errors
var (
	// ErrStoreClosed is returned when operations are attempted on a
	// closed store.
	ErrStoreClosed = errors.New("snapshot store is closed")

	// ErrNotFound is returned by Load when no snapshot exists for the
	// shard. Callers start the shard with an empty ledger.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupted is returned when a stored snapshot record cannot be
	// parsed.
	ErrCorrupted = errors.New("snapshot record corrupted")

	// ErrFormatMismatch is returned when a stored snapshot was written
	// by an incompatible format version.
	ErrFormatMismatch = errors.New("snapshot format version mismatch")
)

// Store persists encoded session-ledger snapshots keyed by shard.
//
// Save returning nil means the snapshot for that version is durable; the
// tracker translates that into confirming the commit and releasing the
// version's waiters. A later Save for the same shard supersedes the
// previous snapshot.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save makes the encoded snapshot durable for the shard.
	Save(ctx context.Context, shard string, version sessions.VersionID, data []byte) error

	// Load returns the most recent snapshot for the shard, or ErrNotFound
	// if none was ever saved.
	Load(ctx context.Context, shard string) (sessions.VersionID, []byte, error)

	// Close releases resources held by the store.
	Close() error

	// IsEnabled returns true if persistence is enabled.
	IsEnabled() bool
}

// NullStore is a no-op implementation for when persistence is disabled.
// Saves succeed immediately and loads find nothing.
type NullStore struct{}

// NewNullStore creates a new no-op store.
func NewNullStore() *NullStore {
	return &NullStore{}
}

// Save is a no-op.
func (s *NullStore) Save(ctx context.Context, shard string, version sessions.VersionID, data []byte) error {
	return nil
}

// Load always reports that no snapshot exists.
func (s *NullStore) Load(ctx context.Context, shard string) (sessions.VersionID, []byte, error) {
	return 0, nil, ErrNotFound
}

// Close is a no-op.
func (s *NullStore) Close() error {
	return nil
}

// IsEnabled returns false (persistence disabled).
func (s *NullStore) IsEnabled() bool {
	return false
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
