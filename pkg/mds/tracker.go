// Package mds hosts the server-side owners of driftfs metadata-server
// state. ClientTracker is the serializing owner of the client-session
// ledger: it provides the single-writer discipline the ledger requires,
// drives the flush/commit/confirm cycle against a snapshot store, and is
// the only component that actually invokes completions the ledger hands
// back.
package mds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/mds/sessions"
	"github.com/driftfs/driftfs/pkg/mds/snapshot"
)

// ClientTracker owns a sessions.Registry behind one mutex.
//
// Mutating calls are serialized by mu. Snapshot writes happen outside mu
// so mounts and requests proceed while a write is in flight; flush cycles
// themselves are serialized by flushMu so at most one version is
// committing at a time.
type ClientTracker struct {
	cfg     TrackerConfig
	store   snapshot.Store
	metrics *sessions.Metrics

	// instance distinguishes tracker incarnations in logs.
	instance string

	// flushMu serializes flush cycles.
	flushMu sync.Mutex

	// mu protects ledger and pending.
	mu     sync.Mutex
	ledger *sessions.Registry

	// pending holds durability waiters registered while the ledger was
	// dirty but no write was in flight. The next flush binds them to the
	// version it submits.
	pending []sessions.Completion
}

// NewClientTracker creates a tracker with an empty ledger. A nil store
// disables persistence (snapshot.NullStore); a nil metrics is a no-op.
func NewClientTracker(cfg TrackerConfig, store snapshot.Store, m *sessions.Metrics) (*ClientTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = snapshot.NewNullStore()
	}
	return &ClientTracker{
		cfg:      cfg,
		store:    store,
		metrics:  m,
		instance: uuid.NewString(),
		ledger:   sessions.NewRegistry(),
	}, nil
}

// Mount records a client mount. The change advances the ledger version and
// reserves the matching projected version for the next flush.
func (t *ClientTracker) Mount(ident sessions.Identity) {
	t.mu.Lock()
	t.ledger.AddMount(ident)
	v := t.ledger.IncProjected()
	t.updateGauges()
	t.mu.Unlock()

	logger.Debug("client mounted",
		"shard", t.cfg.Shard, "client", ident.Client, "addr", ident.Addr, "version", v)
}

// Unmount records a client unmount.
func (t *ClientTracker) Unmount(id sessions.ClientID) {
	t.mu.Lock()
	t.ledger.RemoveMount(id)
	v := t.ledger.IncProjected()
	t.updateGauges()
	t.mu.Unlock()

	logger.Debug("client unmounted", "shard", t.cfg.Shard, "client", id, "version", v)
}

// OpenHandle records an open handle for a client. Does not advance the
// ledger version.
func (t *ClientTracker) OpenHandle(id sessions.ClientID, ident sessions.Identity) {
	t.mu.Lock()
	t.ledger.AddOpen(id, ident)
	t.updateGauges()
	t.mu.Unlock()
}

// CloseHandle drops the reference taken by OpenHandle.
func (t *ClientTracker) CloseHandle(id sessions.ClientID) {
	t.mu.Lock()
	t.ledger.RemoveOpen(id)
	t.updateGauges()
	t.mu.Unlock()
}

// Identity returns the remembered identity of a tracked client.
func (t *ClientTracker) Identity(id sessions.ClientID) sessions.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Identity(id)
}

// MountSet returns a snapshot of the currently mounted client ids.
func (t *ClientTracker) MountSet() []sessions.ClientID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.MountSet()
}

// Empty reports whether the ledger tracks no clients at all.
func (t *ClientTracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Empty()
}

// BeginRequest reports whether the request is a retry of an already
// completed request. The caller replays the stored result instead of
// re-executing when this returns true.
func (t *ClientTracker) BeginRequest(req sessions.ReqID) bool {
	t.mu.Lock()
	dup := t.ledger.HasCompleted(req)
	t.mu.Unlock()

	if dup {
		t.metrics.RecordDedupHit()
		logger.Debug("duplicate request detected",
			"shard", t.cfg.Shard, "client", req.Client, "seq", req.Seq)
	}
	return dup
}

// CompleteRequest records a newly processed request id.
func (t *ClientTracker) CompleteRequest(req sessions.ReqID) {
	t.mu.Lock()
	t.ledger.RecordCompleted(req)
	t.mu.Unlock()
}

// WaitTrimmed registers c to run once trimming advances past req.Seq for
// req.Client. A second registration for the same request replaces the
// first.
func (t *ClientTracker) WaitTrimmed(req sessions.ReqID, c sessions.Completion) {
	t.mu.Lock()
	t.ledger.AddTrimWaiter(req, c)
	t.mu.Unlock()
}

// TrimClient removes the client's completed-request ids below min and runs
// the trim waiters that released, outside the ledger lock, in ascending
// sequence order. min == 0 removes all recorded ids but releases no
// waiters.
func (t *ClientTracker) TrimClient(id sessions.ClientID, min sessions.SeqID) {
	t.mu.Lock()
	released := t.ledger.TrimCompleted(id, min)
	t.mu.Unlock()

	for _, c := range released {
		c.Complete(nil)
	}
	if len(released) > 0 {
		t.metrics.RecordTrim(len(released))
		logger.Debug("trim released waiters",
			"shard", t.cfg.Shard, "client", id, "min", min, "released", len(released))
	}
}

// WaitCommitted arranges for c to run once the ledger state visible to the
// caller right now is durable. If it already is, c runs immediately on the
// calling goroutine.
func (t *ClientTracker) WaitCommitted(c sessions.Completion) {
	t.mu.Lock()
	current := t.ledger.Current()
	committing := t.ledger.Committing()
	committed := t.ledger.Committed()

	switch {
	case current == committed:
		// Everything visible is already durable.
		t.mu.Unlock()
		c.Complete(nil)
		return
	case committing > committed && current <= committing:
		// The in-flight write covers the caller's state.
		t.ledger.AddCommitWaiter(c)
		t.mu.Unlock()
		return
	default:
		// Dirty state not yet submitted; the next flush picks this up.
		t.pending = append(t.pending, c)
		t.mu.Unlock()
		return
	}
}

// Flush encodes the ledger's persistent fields, writes them to the
// snapshot store and, once the write is durable, confirms the version and
// runs its commit waiters in registration order.
//
// A failed write leaves the waiters registered under the submitted
// version; a later flush that confirms that version or any higher one
// releases them.
func (t *ClientTracker) Flush(ctx context.Context) (sessions.VersionID, error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	start := time.Now()

	t.mu.Lock()
	if t.ledger.Current() == t.ledger.Committed() {
		// Nothing dirty. Release anything parked as pending: the state
		// those callers saw is already durable.
		v := t.ledger.Committed()
		pending := t.pending
		t.pending = nil
		t.mu.Unlock()

		for _, c := range pending {
			c.Complete(nil)
		}
		return v, nil
	}

	v := t.ledger.Projected()
	var buf bytes.Buffer
	if t.store.IsEnabled() {
		if err := t.ledger.Encode(&buf); err != nil {
			t.mu.Unlock()
			return 0, fmt.Errorf("failed to encode session ledger: %w", err)
		}
	}
	t.ledger.SetCommitting(v)
	for _, c := range t.pending {
		t.ledger.AddCommitWaiter(c)
	}
	t.pending = nil
	t.mu.Unlock()

	if t.store.IsEnabled() {
		saveCtx := ctx
		if t.cfg.SaveTimeout > 0 {
			var cancel context.CancelFunc
			saveCtx, cancel = context.WithTimeout(ctx, t.cfg.SaveTimeout)
			defer cancel()
		}

		if err := t.store.Save(saveCtx, t.cfg.Shard, v, buf.Bytes()); err != nil {
			logger.Error("session ledger flush failed",
				"shard", t.cfg.Shard, "version", v, "error", err)
			return 0, fmt.Errorf("failed to save session snapshot for shard %s: %w", t.cfg.Shard, err)
		}
	}

	t.mu.Lock()
	prev := t.ledger.Committed()
	t.ledger.SetCommitted(v)
	// Confirming v also confirms every lower version, including ones a
	// failed earlier flush left waiters under. Versions are dense (each
	// mutation advances by one), so walking the range finds them all.
	var waiters []sessions.Completion
	for u := prev + 1; u <= v; u++ {
		waiters = append(waiters, t.ledger.TakeCommitWaiters(u)...)
	}
	t.mu.Unlock()

	for _, c := range waiters {
		c.Complete(nil)
	}

	t.metrics.RecordFlush(buf.Len(), time.Since(start).Seconds())
	logger.Debug("session ledger flushed",
		"shard", t.cfg.Shard, "version", v, "bytes", buf.Len(), "waiters", len(waiters))
	return v, nil
}

// Recover replaces the ledger with the most recent snapshot from the
// store. A missing snapshot is not an error; the shard starts with an
// empty ledger. Must be called before the tracker serves any mutations.
func (t *ClientTracker) Recover(ctx context.Context) error {
	if !t.store.IsEnabled() {
		logger.Info("session persistence disabled, starting empty",
			"shard", t.cfg.Shard, "instance", t.instance)
		return nil
	}

	version, data, err := t.store.Load(ctx, t.cfg.Shard)
	if errors.Is(err, snapshot.ErrNotFound) {
		logger.Info("no session snapshot found, starting empty",
			"shard", t.cfg.Shard, "instance", t.instance)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session snapshot for shard %s: %w", t.cfg.Shard, err)
	}

	reg := sessions.NewRegistry()
	if err := reg.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to decode session snapshot for shard %s: %w", t.cfg.Shard, err)
	}
	if reg.Current() != version {
		logger.Warn("session snapshot version disagrees with store record",
			"shard", t.cfg.Shard, "snapshot", reg.Current(), "store", version)
	}

	t.mu.Lock()
	if !t.ledger.Empty() {
		t.mu.Unlock()
		panic("mds: recover over a live session ledger")
	}
	t.ledger = reg
	t.updateGauges()
	t.mu.Unlock()

	logger.Info("session ledger recovered",
		"shard", t.cfg.Shard, "instance", t.instance,
		"version", reg.Current(), "clients", reg.ClientCount(), "mounts", reg.MountCount())
	return nil
}

// Close flushes once more if dirty and closes the snapshot store. The
// store is closed even when the final flush fails.
func (t *ClientTracker) Close(ctx context.Context) error {
	_, flushErr := t.Flush(ctx)
	if err := t.store.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("failed to close snapshot store: %w", err))
	}
	return flushErr
}

// updateGauges refreshes the client gauges. Caller holds mu.
func (t *ClientTracker) updateGauges() {
	t.metrics.SetClientGauges(t.ledger.ClientCount(), t.ledger.MountCount())
}
