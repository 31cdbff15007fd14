package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xtxerr/meterd/internal/storage/types"
)

// Backend persists partition snapshots as Parquet files, one file per
// (category, kind, source). It satisfies the store's Backend interface.
type Backend struct {
	dir  string
	opts Options
}

// NewBackend creates a Parquet backend rooted at dir, creating it if needed.
func NewBackend(dir string, opts Options) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Backend{dir: dir, opts: opts}, nil
}

// Dir returns the snapshot directory.
func (b *Backend) Dir() string {
	return b.dir
}

// Restore loads every snapshot file and groups rows by partition. Partition
// membership comes from the row fields, never the filename.
func (b *Backend) Restore() (map[types.PartitionKey][]types.Reading, error) {
	paths, err := filepath.Glob(SnapshotGlob(b.dir))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := make(map[types.PartitionKey][]types.Reading)
	for _, path := range paths {
		readings, err := ReadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", filepath.Base(path), err)
		}
		for _, r := range readings {
			key := r.Partition()
			out[key] = append(out[key], r)
		}
	}
	return out, nil
}

// Persist replaces the partition's snapshot file. An empty window removes it.
func (b *Backend) Persist(key types.PartitionKey, readings []types.Reading) error {
	path := b.partitionPath(key)

	if len(readings) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove empty snapshot: %w", err)
		}
		return nil
	}

	return WriteSnapshot(path, readings, b.opts)
}

// Close is a no-op; snapshots hold no open handles between calls.
func (b *Backend) Close() error { return nil }

func (b *Backend) partitionPath(key types.PartitionKey) string {
	name := strings.ToLower(fmt.Sprintf("%s_%s_%s.parquet",
		key.Category, key.Kind, sanitize(key.SourceID)))
	return filepath.Join(b.dir, name)
}

// sanitize keeps meter identifiers filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
