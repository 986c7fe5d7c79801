package badger

import (
	"context"
	"encoding/binary"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/mds/snapshot"
	"github.com/driftfs/driftfs/pkg/mds/snapshot/storetest"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestBadgerStoreConformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) snapshot.Store {
		return newTestStore(t)
	})
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "shard-a", 9, []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	version, data, err := reopened.Load(ctx, "shard-a")
	require.NoError(t, err)
	assert.EqualValues(t, 9, version)
	assert.Equal(t, []byte("persisted"), data)
}

func TestSharedDBIsNotClosed(t *testing.T) {
	dir := t.TempDir()
	db, err := badgerdb.Open(badgerdb.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	defer db.Close()

	store := NewWithDB(db)
	require.NoError(t, store.Close())
	assert.False(t, db.IsClosed(), "Close on a shared-DB store must not close the database")
}

func TestLoadRejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	t.Run("format version mismatch", func(t *testing.T) {
		record := make([]byte, recordHeaderLen)
		record[0] = formatVersion + 1
		binary.BigEndian.PutUint64(record[1:recordHeaderLen], 3)

		err := store.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Set(keySnapshot("shard-bad-format"), record)
		})
		require.NoError(t, err)

		_, _, err = store.Load(ctx, "shard-bad-format")
		assert.ErrorIs(t, err, snapshot.ErrFormatMismatch)
	})

	t.Run("record shorter than header", func(t *testing.T) {
		err := store.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Set(keySnapshot("shard-short"), []byte{formatVersion, 1, 2})
		})
		require.NoError(t, err)

		_, _, err = store.Load(ctx, "shard-short")
		assert.ErrorIs(t, err, snapshot.ErrCorrupted)
	})
}
