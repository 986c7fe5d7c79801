package mds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultTrackerConfig("shard-0")
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 30*time.Second, cfg.SaveTimeout)
	})

	t.Run("missing shard is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := TrackerConfig{SaveTimeout: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative timeout is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := TrackerConfig{Shard: "shard-0", SaveTimeout: -time.Second}
		assert.Error(t, cfg.Validate())
	})
}
