// Package store implements the deduplicated, retention-bounded reading cache.
//
// Readings are partitioned by (category, kind, source) and kept sorted by
// raw vendor timestamp. A reading's identity is (timestamp_ms, source,
// category, kind): re-appending an identity overwrites its value (the vendor
// refreshes recent intervals on every poll), so appending the same batch
// twice is a no-op. Entries older than the retention horizon are evicted on
// every append; the cache is deliberately not a durable record. Durability,
// when wanted, comes from a pluggable Backend that snapshots partitions.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/xtxerr/meterd/internal/logging"
	"github.com/xtxerr/meterd/internal/storage/civiltime"
	"github.com/xtxerr/meterd/internal/storage/types"
)

var log = logging.Component("store")

// Store is the reading cache. Safe for concurrent use: one writer per
// partition is assumed (the fetch cycle is single-flight), concurrent
// readers get snapshot copies.
type Store struct {
	mu sync.RWMutex

	corrector  *civiltime.Corrector
	retention  time.Duration
	backend    Backend
	partitions map[types.PartitionKey][]types.Reading

	healthy bool
	stats   Stats

	// now is swappable for tests.
	now func() time.Time
}

// Stats holds cumulative store statistics.
type Stats struct {
	Appends      int64
	NewReadings  int64
	Overwrites   int64
	SkippedBad   int64
	Evicted      int64
	PersistFails int64
}

// Options configures a Store.
type Options struct {
	// Corrector reinterprets raw vendor timestamps. Required.
	Corrector *civiltime.Corrector

	// Retention is the eviction horizon. Zero means 7 days.
	Retention time.Duration

	// Backend persists partition snapshots. Nil means memory-only.
	Backend Backend

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// New creates a Store and restores any persisted partitions from the
// backend. A backend that fails to restore is logged and the store starts
// empty and unhealthy; the no-data contract holds either way.
func New(opts Options) *Store {
	s := &Store{
		corrector:  opts.Corrector,
		retention:  opts.Retention,
		backend:    opts.Backend,
		partitions: make(map[types.PartitionKey][]types.Reading),
		healthy:    true,
		now:        opts.Now,
	}
	if s.retention <= 0 {
		s.retention = 7 * 24 * time.Hour
	}
	if s.backend == nil {
		s.backend = NullBackend{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	restored, err := s.backend.Restore()
	if err != nil {
		log.Warn("backend restore failed, starting empty", "error", err)
		s.healthy = false
		return s
	}

	cutoff := s.now().Add(-s.retention).UnixMilli()
	total := 0
	for key, readings := range restored {
		kept := readings[:0:0]
		for _, r := range readings {
			if r.TimestampMs >= cutoff {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.Slice(kept, func(i, j int) bool {
			return kept[i].TimestampMs < kept[j].TimestampMs
		})
		s.partitions[key] = kept
		total += len(kept)
	}
	if total > 0 {
		log.Info("restored readings from backend",
			"partitions", len(s.partitions), "readings", total)
	}

	return s
}

// Append merges one batch of raw points into the batch's partition.
// Points missing a timestamp or value are skipped individually; a bad point
// never aborts the batch. Returns the number of genuinely new identities.
func (s *Store) Append(batch types.Batch) (int, error) {
	if !batch.Category.Valid() {
		return 0, errUnknownUtility(string(batch.Category))
	}
	if !batch.Kind.Valid() {
		return 0, errUnknownKind(string(batch.Kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Appends++

	key := types.PartitionKey{
		Category: batch.Category,
		Kind:     batch.Kind,
		SourceID: batch.SourceID,
	}
	existing := s.partitions[key]

	// Index existing identities by raw timestamp. Within a partition the
	// identity tuple reduces to the timestamp alone.
	byTs := make(map[int64]int, len(existing))
	for i, r := range existing {
		byTs[r.TimestampMs] = i
	}

	newCount := 0
	for _, p := range batch.Points {
		if p.EpochMs == nil || p.Value == nil {
			s.stats.SkippedBad++
			continue
		}

		r := types.Reading{
			TimestampMs:     *p.EpochMs,
			SourceID:        batch.SourceID,
			Category:        batch.Category,
			Kind:            batch.Kind,
			CorrectedUTC:    s.corrector.Correct(*p.EpochMs),
			Value:           *p.Value,
			Unit:            batch.Unit,
			ServiceLocation: batch.ServiceLocation,
			AccountNumber:   batch.AccountNumber,
		}

		if i, ok := byTs[r.TimestampMs]; ok {
			// Last write wins: later polls carry refreshed vendor data
			// for the same interval.
			existing[i] = r
			s.stats.Overwrites++
			continue
		}
		existing = append(existing, r)
		byTs[r.TimestampMs] = len(existing) - 1
		newCount++
	}

	sort.Slice(existing, func(i, j int) bool {
		return existing[i].TimestampMs < existing[j].TimestampMs
	})

	// Evict beyond the retention horizon. The slice is sorted, so the kept
	// suffix starts at the first fresh-enough entry.
	cutoff := s.now().Add(-s.retention).UnixMilli()
	firstKept := sort.Search(len(existing), func(i int) bool {
		return existing[i].TimestampMs >= cutoff
	})
	if firstKept > 0 {
		s.stats.Evicted += int64(firstKept)
		existing = append([]types.Reading(nil), existing[firstKept:]...)
	}

	if len(existing) == 0 {
		delete(s.partitions, key)
	} else {
		s.partitions[key] = existing
	}

	s.stats.NewReadings += int64(newCount)

	if err := s.backend.Persist(key, existing); err != nil {
		s.stats.PersistFails++
		s.healthy = false
		log.Warn("backend persist failed", "partition", key.String(), "error", err)
	}

	return newCount, nil
}

// Filter selects readings on Read. Zero-valued fields match everything.
type Filter struct {
	Category types.Category
	Kind     types.Kind
	SourceID string

	// StartDate / EndDate bound the reading's UTC civil date, inclusive
	// on both ends. Zero means unbounded.
	StartDate time.Time
	EndDate   time.Time
}

func (f *Filter) matches(key types.PartitionKey) bool {
	if f.Category != "" && key.Category != f.Category {
		return false
	}
	if f.Kind != "" && key.Kind != f.Kind {
		return false
	}
	if f.SourceID != "" && key.SourceID != f.SourceID {
		return false
	}
	return true
}

func (f *Filter) matchesDate(r *types.Reading) bool {
	if f.StartDate.IsZero() && f.EndDate.IsZero() {
		return true
	}
	d := r.CivilDate()
	if !f.StartDate.IsZero() && d.Before(truncateDate(f.StartDate)) {
		return false
	}
	if !f.EndDate.IsZero() && d.After(truncateDate(f.EndDate)) {
		return false
	}
	return true
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Read returns a copy of all readings matching the filter, sorted ascending
// by raw timestamp. Stored state is never exposed or mutated.
func (s *Store) Read(f Filter) []types.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Reading
	for key, readings := range s.partitions {
		if !f.matches(key) {
			continue
		}
		for i := range readings {
			if f.matchesDate(&readings[i]) {
				out = append(out, readings[i])
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out
}

// Partitions returns the keys of all non-empty partitions.
func (s *Store) Partitions() []types.PartitionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]types.PartitionKey, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the total number of cached readings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, readings := range s.partitions {
		n += len(readings)
	}
	return n
}

// Healthy reports whether the backend has behaved since startup. An
// unhealthy store still serves reads; the flag is an upstream signal.
func (s *Store) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// Stats returns a copy of the cumulative statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Retention returns the configured eviction horizon.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// Close releases the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}
