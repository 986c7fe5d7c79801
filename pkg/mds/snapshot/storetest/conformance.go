// Package storetest provides a conformance suite run against every
// snapshot.Store implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/mds/sessions"
	"github.com/driftfs/driftfs/pkg/mds/snapshot"
)

// RunConformance exercises the Store contract. factory must return a
// fresh, empty store; cleanup runs after each subtest.
func RunConformance(t *testing.T, factory func(t *testing.T) snapshot.Store) {
	ctx := context.Background()

	t.Run("load missing shard returns ErrNotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, _, err := store.Load(ctx, "shard-a")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		payload := []byte("ledger snapshot bytes")
		require.NoError(t, store.Save(ctx, "shard-a", 7, payload))

		version, data, err := store.Load(ctx, "shard-a")
		require.NoError(t, err)
		assert.Equal(t, sessions.VersionID(7), version)
		assert.Equal(t, payload, data)
	})

	t.Run("later save supersedes earlier", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "shard-a", 1, []byte("old")))
		require.NoError(t, store.Save(ctx, "shard-a", 2, []byte("new")))

		version, data, err := store.Load(ctx, "shard-a")
		require.NoError(t, err)
		assert.Equal(t, sessions.VersionID(2), version)
		assert.Equal(t, []byte("new"), data)
	})

	t.Run("shards are independent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "shard-a", 3, []byte("a")))

		_, _, err := store.Load(ctx, "shard-b")
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("loaded data is a private copy", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "shard-a", 1, []byte("abc")))

		_, data, err := store.Load(ctx, "shard-a")
		require.NoError(t, err)
		data[0] = 'x'

		_, again, err := store.Load(ctx, "shard-a")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("cancelled context is honored", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		assert.Error(t, store.Save(cancelled, "shard-a", 1, []byte("x")))
		_, _, err := store.Load(cancelled, "shard-a")
		assert.Error(t, err)
	})

	t.Run("empty payload is preserved", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "shard-a", 5, nil))

		version, data, err := store.Load(ctx, "shard-a")
		require.NoError(t, err)
		assert.Equal(t, sessions.VersionID(5), version)
		assert.Empty(t, data)
	})
}
