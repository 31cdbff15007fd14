// Package retention prunes expired snapshot files from the data directory.
//
// In-memory eviction happens on every append, and each append rewrites its
// partition's snapshot, so live partitions never expire on disk. What does
// expire is the snapshot of a partition the vendor stopped reporting (a
// removed meter, a disabled utility type): nothing rewrites it, and without
// pruning its stale window would be restored forever on every restart.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xtxerr/meterd/internal/storage/parquet"
)

// Manager handles automatic cleanup of expired snapshot files.
type Manager struct {
	mu        sync.Mutex
	dir       string
	retention time.Duration
	stats     ManagerStats

	// now is swappable for tests.
	now func() time.Time
}

// ManagerStats holds cumulative cleanup statistics.
type ManagerStats struct {
	LastRunTime  time.Time
	FilesDeleted int64
	BytesFreed   int64
	FilesSkipped int64
	Errors       int64
}

// CleanupResult holds the result of one cleanup pass.
type CleanupResult struct {
	FilesDeleted int
	BytesFreed   int64
	FilesSkipped int
	Errors       []error
}

// New creates a retention manager over dir with the given horizon.
func New(dir string, retention time.Duration) *Manager {
	return &Manager{
		dir:       dir,
		retention: retention,
		now:       time.Now,
	}
}

// RunCleanup deletes snapshot files whose newest reading is beyond the
// retention horizon.
func (m *Manager) RunCleanup() CleanupResult {
	return m.run(false)
}

// DryRun simulates cleanup without deleting files.
func (m *Manager) DryRun() CleanupResult {
	return m.run(true)
}

func (m *Manager) run(dryRun bool) CleanupResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result CleanupResult
	if !dryRun {
		m.stats.LastRunTime = m.now()
	}

	cutoffMs := m.now().Add(-m.retention).UnixMilli()

	paths, err := filepath.Glob(parquet.SnapshotGlob(m.dir))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("list snapshots: %w", err))
		return result
	}

	for _, path := range paths {
		expired, size, err := m.isExpired(path, cutoffMs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("inspect %s: %w", filepath.Base(path), err))
			continue
		}
		if !expired {
			result.FilesSkipped++
			continue
		}

		if !dryRun {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", path, err))
				continue
			}
		}
		result.FilesDeleted++
		result.BytesFreed += size
	}

	if !dryRun {
		m.stats.FilesDeleted += int64(result.FilesDeleted)
		m.stats.BytesFreed += result.BytesFreed
		m.stats.FilesSkipped += int64(result.FilesSkipped)
		m.stats.Errors += int64(len(result.Errors))
	}

	return result
}

// isExpired reports whether every reading in the snapshot predates the
// cutoff. Snapshot files hold at most one retention window, so scanning
// them is cheap.
func (m *Manager) isExpired(path string, cutoffMs int64) (bool, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, err
	}

	readings, err := parquet.ReadSnapshot(path)
	if err != nil {
		return false, 0, err
	}
	if len(readings) == 0 {
		return true, info.Size(), nil
	}

	for i := range readings {
		if readings[i].TimestampMs >= cutoffMs {
			return false, 0, nil
		}
	}
	return true, info.Size(), nil
}

// Stats returns a copy of the cumulative statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
