package mds

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator for MDS configuration.
var validate = validator.New(validator.WithRequiredStructEnabled())

// TrackerConfig configures a ClientTracker.
type TrackerConfig struct {
	// Shard names the metadata shard this tracker serves. It keys the
	// ledger's snapshots in the store, so it must be stable across
	// restarts of the same shard.
	Shard string `validate:"required"`

	// SaveTimeout bounds a single snapshot write. Zero means no bound
	// beyond the caller's context.
	SaveTimeout time.Duration `validate:"gte=0"`
}

// Validate checks the configuration.
func (c *TrackerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid tracker config: %w", err)
	}
	return nil
}

// DefaultTrackerConfig returns a TrackerConfig with production defaults
// for the given shard.
func DefaultTrackerConfig(shard string) TrackerConfig {
	return TrackerConfig{
		Shard:       shard,
		SaveTimeout: 30 * time.Second,
	}
}
