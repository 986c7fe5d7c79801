package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndDetectRetry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	req := ReqID{Client: 1, Seq: 10}

	assert.False(t, r.HasCompleted(req))
	r.RecordCompleted(req)
	assert.True(t, r.HasCompleted(req))

	// Idempotent insert.
	r.RecordCompleted(req)
	assert.True(t, r.HasCompleted(req))
	assert.Equal(t, 1, r.CompletedCount(1))

	// Different client, same sequence number.
	assert.False(t, r.HasCompleted(ReqID{Client: 2, Seq: 10}))
}

func TestTrimRemovesBelowFloor(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, seq := range []SeqID{1, 2, 3, 4} {
		r.RecordCompleted(ReqID{Client: 1, Seq: seq})
	}

	r.TrimCompleted(1, 3)

	assert.False(t, r.HasCompleted(ReqID{Client: 1, Seq: 1}))
	assert.False(t, r.HasCompleted(ReqID{Client: 1, Seq: 2}))
	assert.True(t, r.HasCompleted(ReqID{Client: 1, Seq: 3}))
	assert.True(t, r.HasCompleted(ReqID{Client: 1, Seq: 4}))
}

func TestTrimZeroRemovesEverything(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, seq := range []SeqID{5, 6, 7} {
		r.RecordCompleted(ReqID{Client: 3, Seq: seq})
	}

	r.TrimCompleted(3, 0)

	assert.Equal(t, 0, r.CompletedCount(3))
	_, exists := r.completed[3]
	assert.False(t, exists, "emptied client entry is removed")
}

func TestTrimRemovesEmptiedClientEntry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordCompleted(ReqID{Client: 4, Seq: 1})
	r.TrimCompleted(4, 2)

	_, exists := r.completed[4]
	assert.False(t, exists)
}

func TestTrimUnknownClientIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	released := r.TrimCompleted(99, 100)
	assert.Empty(t, released)
}

// ============================================================================
// Trim waiters
// ============================================================================

func TestTrimWaiterScenario(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, seq := range []SeqID{1, 2, 3, 4} {
		r.RecordCompleted(ReqID{Client: 8, Seq: seq})
	}

	var log []string
	r.AddTrimWaiter(ReqID{Client: 8, Seq: 3}, named{"w3", &log})

	released := r.TrimCompleted(8, 4)
	require.Len(t, released, 1)
	released[0].Complete(nil)

	assert.Equal(t, []string{"w3"}, log)
	assert.False(t, r.HasCompleted(ReqID{Client: 8, Seq: 3}))
	assert.True(t, r.HasCompleted(ReqID{Client: 8, Seq: 4}))
	assert.Equal(t, 1, r.CompletedCount(8))
}

func TestTrimWaitersReleaseInAscendingOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var log []string
	r.AddTrimWaiter(ReqID{Client: 1, Seq: 30}, named{"s30", &log})
	r.AddTrimWaiter(ReqID{Client: 1, Seq: 10}, named{"s10", &log})
	r.AddTrimWaiter(ReqID{Client: 1, Seq: 20}, named{"s20", &log})
	r.AddTrimWaiter(ReqID{Client: 1, Seq: 40}, named{"s40", &log})

	released := r.TrimCompleted(1, 35)
	require.Len(t, released, 3)
	for _, c := range released {
		c.Complete(nil)
	}

	assert.Equal(t, []string{"s10", "s20", "s30"}, log)

	// s40 stays registered.
	released = r.TrimCompleted(1, 50)
	require.Len(t, released, 1)
	released[0].Complete(nil)
	assert.Equal(t, []string{"s10", "s20", "s30", "s40"}, log)

	_, exists := r.trimWaiters[1]
	assert.False(t, exists, "emptied waiter map is removed")
}

func TestTrimWaiterOverwrite(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var log []string
	r.AddTrimWaiter(ReqID{Client: 2, Seq: 5}, named{"first", &log})
	r.AddTrimWaiter(ReqID{Client: 2, Seq: 5}, named{"second", &log})

	released := r.TrimCompleted(2, 6)
	require.Len(t, released, 1, "only the most recent registration is retained")
	released[0].Complete(nil)
	assert.Equal(t, []string{"second"}, log)
}

func TestTrimBelowAllWaitersReleasesNothing(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var log []string
	r.AddTrimWaiter(ReqID{Client: 6, Seq: 100}, named{"w", &log})

	released := r.TrimCompleted(6, 50)
	assert.Empty(t, released)

	// The zero sentinel trims the completed set but releases no waiters.
	released = r.TrimCompleted(6, 0)
	assert.Empty(t, released)

	_, exists := r.trimWaiters[6]
	assert.True(t, exists, "unreleased waiters stay registered")
}
