package sessions

import "fmt"

// The version pipeline tracks a ledger change's path from reservation to
// durable state:
//
//	projected  — highest version reserved for a change being prepared
//	committing — version currently being written to the journal
//	committed  — highest version confirmed durable
//	current    — version the persistent fields reflect right now
//
// Separating projected from committing lets the server batch several
// logical changes into one journal write; separating committing from
// committed lets one write be in flight while the next batch is prepared.

// Current returns the version the ledger's persistent fields reflect.
func (r *Registry) Current() VersionID { return r.current }

// Projected returns the highest reserved version.
func (r *Registry) Projected() VersionID { return r.projected }

// Committing returns the version currently being written to the journal,
// or the last written one if no write is in flight.
func (r *Registry) Committing() VersionID { return r.committing }

// Committed returns the highest version confirmed durable.
func (r *Registry) Committed() VersionID { return r.committed }

// IncProjected reserves and returns the next projected version. Always
// succeeds; the reservation has no side effect beyond the counter.
func (r *Registry) IncProjected() VersionID {
	r.projected++
	return r.projected
}

// ResetProjected discards speculative reservations, setting projected back
// to current. The caller must guarantee no commit waiter was registered
// against a discarded value: such a waiter would never fire.
func (r *Registry) ResetProjected() {
	r.projected = r.current
}

// SetCommitting records that version v is now being written to the
// journal. v must have been reserved, i.e. v <= projected.
func (r *Registry) SetCommitting(v VersionID) {
	if v > r.projected {
		panic(fmt.Sprintf("sessions: committing version %d beyond projected %d", v, r.projected))
	}
	r.committing = v
}

// SetCommitted records that version v is confirmed durable. v must have
// been submitted, i.e. v <= committing.
func (r *Registry) SetCommitted(v VersionID) {
	if v > r.committing {
		panic(fmt.Sprintf("sessions: committed version %d beyond committing %d", v, r.committing))
	}
	r.committed = v
}

// AddCommitWaiter registers c to be released when the version currently
// being committed is confirmed durable. Registration binds to whatever
// Committing() equals right now: registering before any SetCommitting call
// binds to the reserved version 0 bucket and is a caller bug, deliberately
// not validated here.
func (r *Registry) AddCommitWaiter(c Completion) {
	r.commitWaiters[r.committing] = append(r.commitWaiters[r.committing], c)
}

// TakeCommitWaiters removes and returns all completions registered for
// exactly version v, in registration order. The map entry for v is
// released even when the returned slice is empty, so a second call for the
// same version returns nothing.
func (r *Registry) TakeCommitWaiters(v VersionID) []Completion {
	ls := r.commitWaiters[v]
	delete(r.commitWaiters, v)
	return ls
}
