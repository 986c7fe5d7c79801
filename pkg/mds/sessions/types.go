// Package sessions implements the client-session ledger of the driftfs
// metadata server.
//
// The ledger tracks which clients currently hold a mount or an open handle,
// remembers each client's network identity while requests are in flight,
// records completed request ids so retried requests can be detected, and
// runs a versioned commit pipeline so the ledger's persistent fields can be
// journaled and recovered consistently with the rest of the MDS state.
//
// # Concurrency
//
// The Registry performs no internal locking. It is designed for a single
// serializing owner (see pkg/mds.ClientTracker) that holds one lock across
// every mutating call. Completion callbacks are never invoked by the
// Registry itself; operations that release waiters hand them back to the
// caller, which runs them after the corresponding commit or trim has
// actually progressed.
//
// # Failure model
//
// Precondition violations (releasing a client with no references,
// re-registering a client with a different identity, confirming a version
// that was never submitted) indicate a defect in the calling server, not
// recoverable conditions. The Registry panics on them rather than return a
// falsified result, since continuing would risk silent corruption of the
// journaled state. The only recoverable error surface is Decode, which
// rejects truncated or malformed snapshots.
package sessions

// ClientID identifies a client session endpoint. It is assigned by the
// session layer and stable for the lifetime of the client's connection to
// the cluster.
//
// ClientID is a distinct type so client numbers cannot be accidentally
// mixed with version numbers or request sequence numbers.
type ClientID uint32

// VersionID is a monotonically non-decreasing version of the ledger's
// persistent fields. Version 0 is reserved: no change is ever journaled
// under it, so commit waiters bound to version 0 never fire.
type VersionID uint64

// SeqID is a per-client request sequence number. Sequence 0 is reserved as
// the "trim everything" sentinel and is never issued for a real request.
type SeqID uint64

// ReqID names a single client request: the issuing client plus its
// per-client sequence number.
type ReqID struct {
	Client ClientID
	Seq    SeqID
}

// Identity is the remembered network identity of a client: the stable
// client id, the address the session layer last saw for it, and the session
// epoch that distinguishes successive incarnations of the same client.
//
// While a client holds any reference (mount or open handle) its identity is
// immutable; the session layer must present an identical Identity on every
// further registration.
type Identity struct {
	Client ClientID
	Addr   string
	Epoch  uint32
}

// Completion is an opaque callback registered with the ledger and handed
// back when the awaited event (commit confirmation, trim progress) has
// occurred. The ledger takes ownership on registration and returns
// ownership on release; it never invokes a Completion itself.
type Completion interface {
	// Complete is invoked by the releasing caller exactly once.
	Complete(err error)
}

// CompletionFunc adapts a plain function to the Completion interface.
type CompletionFunc func(error)

// Complete calls f(err).
func (f CompletionFunc) Complete(err error) { f(err) }
