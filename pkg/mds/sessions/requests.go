package sessions

import "slices"

// The request ledger gives the MDS exactly-once request semantics: every
// newly processed request id is recorded, and a retried request (client
// resent after a timeout or reconnect) is detected by membership before the
// server would execute it a second time. The recorded sets would grow
// without bound, so the server periodically trims ids below a floor once it
// knows duplicates below that floor can no longer arrive; components that
// must wait for that moment register trim waiters instead of polling.

// RecordCompleted inserts the request id into its client's completed set.
// Recording an already-present id is a no-op.
func (r *Registry) RecordCompleted(req ReqID) {
	set, ok := r.completed[req.Client]
	if !ok {
		set = make(map[SeqID]struct{})
		r.completed[req.Client] = set
	}
	set[req.Seq] = struct{}{}
}

// HasCompleted reports whether the request id is recorded as completed,
// i.e. whether a delivery of this id is a retry.
func (r *Registry) HasCompleted(req ReqID) bool {
	set, ok := r.completed[req.Client]
	if !ok {
		return false
	}
	_, ok = set[req.Seq]
	return ok
}

// AddTrimWaiter registers c to be released the next time TrimCompleted
// advances the floor past req.Seq for req.Client. A second registration
// for the same (client, seq) replaces the first; only the most recent
// completion is retained.
func (r *Registry) AddTrimWaiter(req ReqID, c Completion) {
	m, ok := r.trimWaiters[req.Client]
	if !ok {
		m = make(map[SeqID]Completion)
		r.trimWaiters[req.Client] = m
	}
	m[req.Seq] = c
}

// TrimCompleted removes every recorded request id strictly below min for
// the client, then detaches and returns the trim waiters keyed below min in
// ascending sequence order. The caller owns the returned completions and
// must invoke each exactly once; trimming is irreversible.
//
// min == 0 is the "remove all" sentinel for the completed set. Note it
// releases no waiters, since no sequence number is below zero.
//
// Emptied per-client entries (both the completed set and the waiter map)
// are removed entirely.
func (r *Registry) TrimCompleted(id ClientID, min SeqID) []Completion {
	if set, ok := r.completed[id]; ok {
		for seq := range set {
			if min == 0 || seq < min {
				delete(set, seq)
			}
		}
		if len(set) == 0 {
			delete(r.completed, id)
		}
	}

	waiters, ok := r.trimWaiters[id]
	if !ok {
		return nil
	}

	var ripe []SeqID
	for seq := range waiters {
		if seq < min {
			ripe = append(ripe, seq)
		}
	}
	if len(ripe) == 0 {
		return nil
	}
	slices.Sort(ripe)

	released := make([]Completion, 0, len(ripe))
	for _, seq := range ripe {
		released = append(released, waiters[seq])
		delete(waiters, seq)
	}
	if len(waiters) == 0 {
		delete(r.trimWaiters, id)
	}
	return released
}

// CompletedCount returns the number of recorded request ids for a client.
// Used by the tracker for metrics and by trim policy decisions.
func (r *Registry) CompletedCount(id ClientID) int {
	return len(r.completed[id])
}
