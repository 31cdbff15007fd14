package store

import (
	"fmt"

	"github.com/xtxerr/meterd/internal/errors"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Backend is the pluggable persistence strategy behind the Store. The cache
// semantics (dedup, ordering, retention) live entirely in the Store; a
// backend only snapshots and restores partitions. Implementations must
// tolerate being handed an empty slice, which means the partition vanished.
type Backend interface {
	// Restore returns all persisted partitions. Called once at startup.
	Restore() (map[types.PartitionKey][]types.Reading, error)

	// Persist replaces the snapshot for one partition with its current
	// full window. Called after every append under the store lock, so it
	// should be fast for 7-day windows (hundreds of rows).
	Persist(key types.PartitionKey, readings []types.Reading) error

	// Close releases backend resources.
	Close() error
}

// NullBackend is the memory-only strategy: nothing is persisted and
// restarts begin empty.
type NullBackend struct{}

func (NullBackend) Restore() (map[types.PartitionKey][]types.Reading, error) {
	return nil, nil
}

func (NullBackend) Persist(types.PartitionKey, []types.Reading) error { return nil }

func (NullBackend) Close() error { return nil }

func errUnknownUtility(s string) error {
	return fmt.Errorf("%w: %q", errors.ErrUnknownUtility, s)
}

func errUnknownKind(s string) error {
	return fmt.Errorf("%w: %q", errors.ErrUnknownKind, s)
}
