package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewNullStore()

	assert.False(t, store.IsEnabled())
	require.NoError(t, store.Save(ctx, "shard-a", 1, []byte("discarded")))

	_, _, err := store.Load(ctx, "shard-a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Close())
}
