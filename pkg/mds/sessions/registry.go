package sessions

import (
	"fmt"
	"slices"
)

// Registry is the client-session ledger. It combines four tightly coupled
// pieces of state that must stay consistent with each other:
//
//   - the version pipeline (current/projected/committing/committed counters
//     plus per-version commit waiters, see version.go)
//   - the reference-counted client identity map and the mount set
//   - the per-client completed-request sets and trim waiters (requests.go)
//
// Only the identity map, mount set, reference counts and the current
// version are persistent; everything else is runtime-only and reset on
// decode. See codec.go for the snapshot format.
//
// A Registry is not safe for concurrent use; see the package comment.
type Registry struct {
	// Version pipeline. Invariant: committed <= committing <= projected,
	// and projected >= current.
	current    VersionID
	projected  VersionID
	committing VersionID
	committed  VersionID

	// commitWaiters maps a target version to the callbacks released when
	// that version is confirmed durable, in registration order.
	commitWaiters map[VersionID][]Completion

	// Client registry. An identities entry exists iff the refs entry
	// exists and is positive. mounts is independent of refs except that a
	// mounted client always holds at least one reference.
	identities map[ClientID]Identity
	mounts     map[ClientID]struct{}
	refs       map[ClientID]uint32

	// Request ledger.
	completed   map[ClientID]map[SeqID]struct{}
	trimWaiters map[ClientID]map[SeqID]Completion
}

// NewRegistry returns an empty ledger with all version counters at zero.
func NewRegistry() *Registry {
	return &Registry{
		commitWaiters: make(map[VersionID][]Completion),
		identities:    make(map[ClientID]Identity),
		mounts:        make(map[ClientID]struct{}),
		refs:          make(map[ClientID]uint32),
		completed:     make(map[ClientID]map[SeqID]struct{}),
		trimWaiters:   make(map[ClientID]map[SeqID]Completion),
	}
}

// incRef takes one reference on a client, creating its identity entry on
// first registration. Re-registering with a different identity means the
// session layer delivered corrupt state; that is fatal.
func (r *Registry) incRef(id ClientID, ident Identity) {
	if stored, ok := r.identities[id]; ok {
		if stored != ident {
			panic(fmt.Sprintf("sessions: client %d re-registered with different identity (have %+v, got %+v)",
				id, stored, ident))
		}
		if _, ok := r.refs[id]; !ok {
			panic(fmt.Sprintf("sessions: client %d has identity but no reference count", id))
		}
	} else {
		r.identities[id] = ident
	}
	r.refs[id]++
}

// decRef drops one reference on a client. The last release removes both
// the count and the identity entry; the ledger never holds a zero count.
func (r *Registry) decRef(id ClientID) {
	count, ok := r.refs[id]
	if !ok || count == 0 {
		panic(fmt.Sprintf("sessions: release of client %d with no references", id))
	}
	count--
	if count == 0 {
		delete(r.refs, id)
		delete(r.identities, id)
	} else {
		r.refs[id] = count
	}
}

// AddMount records that the client named by ident has mounted via this
// server. It takes a reference, inserts the client into the mount set and
// advances the current version; the caller is expected to journal the
// change promptly.
func (r *Registry) AddMount(ident Identity) {
	r.incRef(ident.Client, ident)
	r.mounts[ident.Client] = struct{}{}
	r.current++
}

// RemoveMount records that a client has unmounted. The client must
// currently hold a positive reference count.
func (r *Registry) RemoveMount(id ClientID) {
	r.decRef(id)
	delete(r.mounts, id)
	r.current++
}

// AddOpen takes a reference for an open handle. Unlike mounts, open-handle
// churn does not advance the version: handles are opened and closed far too
// often to journal per event, and the surrounding server reconstructs open
// state from its own records on recovery.
func (r *Registry) AddOpen(id ClientID, ident Identity) {
	r.incRef(id, ident)
}

// RemoveOpen drops the reference taken by AddOpen.
func (r *Registry) RemoveOpen(id ClientID) {
	r.decRef(id)
}

// Identity returns the remembered identity of a client. The client must
// hold a positive reference count.
func (r *Registry) Identity(id ClientID) Identity {
	ident, ok := r.identities[id]
	if !ok {
		panic(fmt.Sprintf("sessions: identity lookup for untracked client %d", id))
	}
	return ident
}

// Mounted reports whether the client is currently in the mount set.
func (r *Registry) Mounted(id ClientID) bool {
	_, ok := r.mounts[id]
	return ok
}

// MountSet returns the ids of all currently mounted clients in ascending
// order. The returned slice is a snapshot owned by the caller.
func (r *Registry) MountSet() []ClientID {
	ids := make([]ClientID, 0, len(r.mounts))
	for id := range r.mounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ClientCount returns the number of clients holding at least one reference.
func (r *Registry) ClientCount() int {
	return len(r.refs)
}

// MountCount returns the number of currently mounted clients.
func (r *Registry) MountCount() int {
	return len(r.mounts)
}

// Empty reports whether the ledger tracks no identities, no mounts and no
// references. The server uses this to decide whether the ledger can be
// discarded when tearing down a shard.
func (r *Registry) Empty() bool {
	return len(r.identities) == 0 && len(r.mounts) == 0 && len(r.refs) == 0
}
