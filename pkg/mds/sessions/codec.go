package sessions

import (
	"errors"
	"fmt"
	"io"
	"slices"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/driftfs/driftfs/internal/protocol/xdr"
)

// Snapshot format:
//
//	[current version : 8 bytes BE]
//	[identity table  : count:uint32, then count XDR-encoded Identity records]
//	[mount set       : count:uint32, then count client ids, ascending]
//	[refcount table  : count:uint32, then count (client id, count) pairs, ascending]
//
// Containers are written in ascending ClientID order so two encodings of
// the same state are byte-identical, which lets snapshots be compared and
// exchanged between server instances of the same protocol version.
//
// Only the persistent fields appear. The pipeline counters beyond current,
// commit waiters, the completed-request ledger and trim waiters are
// runtime-only state and are reset by Decode.

// ErrSnapshotCorrupted is wrapped by every Decode failure. Callers treat
// it as "unreadable snapshot" and fall back to journal recovery or refuse
// to bring up the shard.
var ErrSnapshotCorrupted = errors.New("sessions: snapshot corrupted")

// maxSnapshotClients bounds decoded container lengths so a corrupted count
// prefix cannot drive allocation.
const maxSnapshotClients = 1 << 20

// Encode writes the ledger's persistent fields to w in snapshot format.
func (r *Registry) Encode(w io.Writer) error {
	if err := xdr.WriteUint64(w, uint64(r.current)); err != nil {
		return fmt.Errorf("encode version: %w", err)
	}

	ids := make([]ClientID, 0, len(r.identities))
	for id := range r.identities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if err := xdr.WriteUint32(w, uint32(len(ids))); err != nil {
		return fmt.Errorf("encode identity table: %w", err)
	}
	for _, id := range ids {
		ident := r.identities[id]
		if _, err := xdr2.Marshal(w, &ident); err != nil {
			return fmt.Errorf("encode identity for client %d: %w", id, err)
		}
	}

	mounted := r.MountSet()
	if err := xdr.WriteUint32(w, uint32(len(mounted))); err != nil {
		return fmt.Errorf("encode mount set: %w", err)
	}
	for _, id := range mounted {
		if err := xdr.WriteUint32(w, uint32(id)); err != nil {
			return fmt.Errorf("encode mount set: %w", err)
		}
	}

	refIDs := make([]ClientID, 0, len(r.refs))
	for id := range r.refs {
		refIDs = append(refIDs, id)
	}
	slices.Sort(refIDs)

	if err := xdr.WriteUint32(w, uint32(len(refIDs))); err != nil {
		return fmt.Errorf("encode refcount table: %w", err)
	}
	for _, id := range refIDs {
		if err := xdr.WriteUint32(w, uint32(id)); err != nil {
			return fmt.Errorf("encode refcount table: %w", err)
		}
		if err := xdr.WriteUint32(w, r.refs[id]); err != nil {
			return fmt.Errorf("encode refcount table: %w", err)
		}
	}

	return nil
}

// Decode populates the ledger from a snapshot and re-synchronizes the
// version pipeline to its rest state: projected, committing and committed
// are all set to the decoded current version.
//
// The receiver must be freshly created; decoding over live state is a
// caller bug. Truncated or malformed input returns an error wrapping
// ErrSnapshotCorrupted and leaves no partial state visible to a caller
// that discards the registry on error.
func (r *Registry) Decode(rd io.Reader) error {
	if !r.Empty() || r.current != 0 {
		panic("sessions: decode into non-empty registry")
	}

	version, err := xdr.ReadUint64(rd)
	if err != nil {
		return fmt.Errorf("%w: decode version: %w", ErrSnapshotCorrupted, err)
	}

	identCount, err := readContainerLen(rd, "identity table")
	if err != nil {
		return err
	}
	for i := uint32(0); i < identCount; i++ {
		var ident Identity
		if _, err := xdr2.Unmarshal(rd, &ident); err != nil {
			return fmt.Errorf("%w: decode identity %d of %d: %w",
				ErrSnapshotCorrupted, i+1, identCount, err)
		}
		r.identities[ident.Client] = ident
	}

	mountCount, err := readContainerLen(rd, "mount set")
	if err != nil {
		return err
	}
	for i := uint32(0); i < mountCount; i++ {
		id, err := xdr.ReadUint32(rd)
		if err != nil {
			return fmt.Errorf("%w: decode mount set: %w", ErrSnapshotCorrupted, err)
		}
		r.mounts[ClientID(id)] = struct{}{}
	}

	refCount, err := readContainerLen(rd, "refcount table")
	if err != nil {
		return err
	}
	for i := uint32(0); i < refCount; i++ {
		id, err := xdr.ReadUint32(rd)
		if err != nil {
			return fmt.Errorf("%w: decode refcount table: %w", ErrSnapshotCorrupted, err)
		}
		count, err := xdr.ReadUint32(rd)
		if err != nil {
			return fmt.Errorf("%w: decode refcount table: %w", ErrSnapshotCorrupted, err)
		}
		r.refs[ClientID(id)] = count
	}

	r.current = VersionID(version)
	r.projected = r.current
	r.committing = r.current
	r.committed = r.current
	return nil
}

// readContainerLen reads and bounds-checks a container count prefix.
func readContainerLen(rd io.Reader, field string) (uint32, error) {
	n, err := xdr.ReadUint32(rd)
	if err != nil {
		return 0, fmt.Errorf("%w: decode %s length: %w", ErrSnapshotCorrupted, field, err)
	}
	if n > maxSnapshotClients {
		return 0, fmt.Errorf("%w: %s length %d exceeds maximum %d",
			ErrSnapshotCorrupted, field, n, maxSnapshotClients)
	}
	return n, nil
}
