package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/meterd/internal/errors"
	"github.com/xtxerr/meterd/internal/logging"
	"github.com/xtxerr/meterd/internal/storage/aggregate"
	"github.com/xtxerr/meterd/internal/storage/civiltime"
	"github.com/xtxerr/meterd/internal/storage/config"
	"github.com/xtxerr/meterd/internal/storage/parquet"
	"github.com/xtxerr/meterd/internal/storage/query"
	"github.com/xtxerr/meterd/internal/storage/retention"
	"github.com/xtxerr/meterd/internal/storage/store"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Service orchestrates the storage components: the reading store, the
// aggregator, the snapshot backend, and the retention sweep worker.
type Service struct {
	config *config.Config

	store      *store.Store
	aggregator *aggregate.Aggregator
	retention  *retention.Manager
	query      *query.Service

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	startTime time.Time
}

// New creates a storage service from the given configuration and civil
// zone. A nil configuration uses the defaults.
func New(cfg *config.Config, civilZone string) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	corrector, err := civiltime.New(civilZone)
	if err != nil {
		return nil, fmt.Errorf("create corrector: %w", err)
	}

	var backend store.Backend = store.NullBackend{}
	var ret *retention.Manager
	var qry *query.Service
	if cfg.Snapshot {
		opts := parquet.DefaultOptions()
		opts.Compression = parquet.ParseCompressionType(cfg.Compression)
		pb, err := parquet.NewBackend(cfg.DataDir, opts)
		if err != nil {
			return nil, fmt.Errorf("create parquet backend: %w", err)
		}
		backend = pb
		ret = retention.New(cfg.DataDir, cfg.Retention)
		qry, err = query.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("create query service: %w", err)
		}
	}

	st := store.New(store.Options{
		Corrector: corrector,
		Retention: cfg.Retention,
		Backend:   backend,
	})

	agg := aggregate.New(st, aggregate.Options{
		SketchAccuracy: cfg.SketchAccuracy,
	})

	return &Service{
		config:     cfg,
		store:      st,
		aggregator: agg,
		retention:  ret,
		query:      qry,
	}, nil
}

// Start launches the background retention worker. Call Stop to shut it
// down. Start on a running service is an error.
func (s *Service) Start() error {
	if s.running.Swap(true) {
		return fmt.Errorf("storage service already running")
	}
	s.startTime = time.Now()
	s.done = make(chan struct{})

	if s.retention != nil {
		s.wg.Add(1)
		go s.retentionWorker()
	}

	logging.Component("storage").Info("storage service started",
		"snapshot", s.config.Snapshot,
		"retention", s.config.Retention.String(),
		"readings", s.store.Len())
	return nil
}

// Stop stops the background workers and closes the store. Stop on a
// stopped service is a no-op.
func (s *Service) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	close(s.done)
	s.wg.Wait()

	var errs []error
	if s.query != nil {
		if err := s.query.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close query: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("stop errors: %v", errs)
	}
	return nil
}

// Append corrects, dedupes, and caches one batch, returning the number
// of readings that were new.
func (s *Service) Append(batch types.Batch) (int, error) {
	return s.store.Append(batch)
}

// Read returns cached readings matching the filter, sorted by timestamp.
func (s *Service) Read(f store.Filter) []types.Reading {
	return s.store.Read(f)
}

// Rollup computes the windowed totals for one partition dimension pair.
func (s *Service) Rollup(category types.Category, kind types.Kind) types.RollupResult {
	return s.aggregator.Rollup(category, kind)
}

// HourlySeries computes the hour-bucketed series for one partition
// dimension pair.
func (s *Service) HourlySeries(category types.Category, kind types.Kind) []types.HourlyPoint {
	return s.aggregator.HourlySeries(category, kind)
}

// Distribution summarizes the value distribution for one partition
// dimension pair. The second return is false when the partition is empty.
func (s *Service) Distribution(category types.Category, kind types.Kind) (aggregate.Summary, bool) {
	return s.aggregator.Distribution(category, kind)
}

// HistoricalHourlyTotals queries the Parquet snapshots for hour totals
// over an arbitrary range, serving reads beyond the in-memory window.
// Memory-only deployments have no history to query and get nil data.
func (s *Service) HistoricalHourlyTotals(ctx context.Context, q query.RangeQuery) ([]query.HourlyTotal, error) {
	if s.query == nil {
		return nil, nil
	}
	return s.query.HourlyTotals(ctx, q)
}

// QuerySQL executes a raw SQL query over the snapshot files.
func (s *Service) QuerySQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	if s.query == nil {
		return nil, errors.ErrBackendClosed
	}
	return s.query.ExecuteSQL(ctx, sql)
}

// Partitions lists the partitions currently cached.
func (s *Service) Partitions() []types.PartitionKey {
	return s.store.Partitions()
}

// Healthy reports whether the snapshot backend is keeping up.
func (s *Service) Healthy() bool {
	return s.store.Healthy()
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// RunRetention manually triggers a snapshot pruning sweep. Returns a
// zero result when snapshots are disabled.
func (s *Service) RunRetention() retention.CleanupResult {
	if s.retention == nil {
		return retention.CleanupResult{}
	}
	return s.retention.RunCleanup()
}

// DryRunRetention simulates a pruning sweep without deleting anything.
func (s *Service) DryRunRetention() retention.CleanupResult {
	if s.retention == nil {
		return retention.CleanupResult{}
	}
	return s.retention.DryRun()
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// ServiceStats holds combined statistics across storage components.
type ServiceStats struct {
	Running   bool
	Uptime    time.Duration
	Readings  int
	Store     store.Stats
	Retention retention.ManagerStats
}

// Stats returns combined statistics.
func (s *Service) Stats() ServiceStats {
	var uptime time.Duration
	if s.running.Load() && !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
	}
	st := ServiceStats{
		Running:  s.running.Load(),
		Uptime:   uptime,
		Readings: s.store.Len(),
		Store:    s.store.Stats(),
	}
	if s.retention != nil {
		st.Retention = s.retention.Stats()
	}
	return st
}

// retentionWorker periodically prunes expired snapshot files. The live
// partitions rewrite themselves on every append, so the sweep only
// matters for partitions the vendor stopped reporting.
func (s *Service) retentionWorker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			result := s.retention.RunCleanup()
			for _, err := range result.Errors {
				logging.Component("storage").Warn("retention sweep error", "error", err)
			}
		}
	}
}
