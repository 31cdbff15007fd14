// Package coordinator drives the periodic fetch cycle for one utility
// account: authenticate, pull usage reports, feed the storage layer,
// export statistics, and publish fresh rollups.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	appconfig "github.com/xtxerr/meterd/config"
	"github.com/xtxerr/meterd/internal/errors"
	"github.com/xtxerr/meterd/internal/logging"
	"github.com/xtxerr/meterd/internal/smarthub"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Fetcher is the vendor API surface the coordinator needs. The smarthub
// client satisfies it.
type Fetcher interface {
	Authenticate(ctx context.Context) error
	GetUsageData(ctx context.Context, req smarthub.UsageRequest) (*smarthub.UsageResponse, error)
}

// Storage is the cache surface the coordinator needs. The storage
// service satisfies it.
type Storage interface {
	Append(batch types.Batch) (int, error)
	Rollup(category types.Category, kind types.Kind) types.RollupResult
}

// Exporter pushes aggregates downstream after each cycle. Optional.
type Exporter interface {
	ExportAll() (int, error)
}

// Config holds the per-account coordinator settings.
type Config struct {
	ServiceLocation string
	AccountNumber   string
	UpdateInterval  time.Duration
	FetchDays       int
	UtilityTypes    []types.Category
	CycleTimeout    time.Duration
}

func (c *Config) applyDefaults() {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = appconfig.DefaultUpdateInterval
	}
	if c.FetchDays <= 0 {
		c.FetchDays = appconfig.DefaultFetchDays
	}
	if len(c.UtilityTypes) == 0 {
		c.UtilityTypes = []types.Category{types.CategoryElectric, types.CategoryGas}
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = 5 * time.Minute
	}
}

// UtilityData is the published rollup pair for one utility type.
type UtilityData struct {
	Usage types.RollupResult
	Cost  types.RollupResult
}

// Coordinator owns the refresh loop for one account.
type Coordinator struct {
	cfg      Config
	client   Fetcher
	storage  Storage
	exporter Exporter

	mu   sync.RWMutex
	data map[types.Category]UtilityData

	running    atomic.Bool
	refreshing atomic.Bool
	shutdown   chan struct{}
	wg         sync.WaitGroup

	now func() time.Time
}

// New creates a coordinator. exporter may be nil.
func New(cfg Config, client Fetcher, storage Storage, exporter Exporter) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		cfg:      cfg,
		client:   client,
		storage:  storage,
		exporter: exporter,
		data:     make(map[types.Category]UtilityData),
		now:      time.Now,
	}
}

// Start runs one refresh immediately and then launches the periodic
// loop. The initial refresh error is returned but does not prevent the
// loop from starting; transient vendor failures self-heal on the next
// tick.
func (c *Coordinator) Start() error {
	if c.running.Swap(true) {
		return errors.ErrAlreadyRunning
	}
	c.shutdown = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CycleTimeout)
	err := c.Refresh(ctx)
	cancel()

	c.wg.Add(1)
	go c.refreshLoop()

	logging.Component("coordinator").Info("coordinator started",
		"account", c.cfg.AccountNumber,
		"interval", c.cfg.UpdateInterval.String())
	return err
}

// Stop stops the refresh loop. Stop on a stopped coordinator is a no-op.
func (c *Coordinator) Stop() {
	if !c.running.Swap(false) {
		return
	}
	close(c.shutdown)
	c.wg.Wait()
}

// IsRunning reports whether the refresh loop is active.
func (c *Coordinator) IsRunning() bool {
	return c.running.Load()
}

// Data returns a snapshot of the latest published rollups per utility
// type.
func (c *Coordinator) Data() map[types.Category]UtilityData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[types.Category]UtilityData, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Refresh runs one fetch-store-publish cycle. Concurrent calls are
// rejected with ErrAlreadyRunning so overlapping ticks cannot stack
// vendor requests.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.refreshing.Swap(true) {
		return errors.ErrAlreadyRunning
	}
	defer c.refreshing.Store(false)

	log := logging.Account(c.cfg.AccountNumber)

	if err := c.client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	end := c.now()
	start := end.Add(-time.Duration(c.cfg.FetchDays) * 24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	for _, utility := range c.cfg.UtilityTypes {
		g.Go(func() error {
			return c.fetchUtility(gctx, utility, start.UnixMilli(), end.UnixMilli())
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if c.exporter != nil {
		if n, err := c.exporter.ExportAll(); err != nil {
			log.Warn("statistics export failed", "error", err)
		} else if n > 0 {
			log.Debug("statistics exported", "records", n)
		}
	}

	c.publish()
	return nil
}

// fetchUtility pulls one utility type's report and appends every series
// to the cache. A report with no data for the type is not an error; the
// vendor omits industries with nothing to say.
func (c *Coordinator) fetchUtility(ctx context.Context, utility types.Category, startMs, endMs int64) error {
	log := logging.Account(c.cfg.AccountNumber).With("utility", utility)

	resp, err := c.client.GetUsageData(ctx, smarthub.UsageRequest{
		ServiceLocation: c.cfg.ServiceLocation,
		AccountNumber:   c.cfg.AccountNumber,
		StartMs:         startMs,
		EndMs:           endMs,
		TimeFrame:       "HOURLY",
		Industries:      []string{string(utility)},
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", utility, err)
	}

	batches := resp.Flatten(smarthub.FlattenOptions{
		ServiceLocation: c.cfg.ServiceLocation,
		AccountNumber:   c.cfg.AccountNumber,
		Granularity:     "HOURLY",
	})
	if len(batches) == 0 {
		log.Debug("no data in report")
		return nil
	}

	var appended int
	for _, batch := range batches {
		n, err := c.storage.Append(batch)
		if err != nil {
			return fmt.Errorf("append %s: %w", batch.Partition(), err)
		}
		appended += n
	}
	log.Debug("report stored", "batches", len(batches), "new_readings", appended)
	return nil
}

// publish rebuilds the rollup snapshot from the cache.
func (c *Coordinator) publish() {
	data := make(map[types.Category]UtilityData, len(c.cfg.UtilityTypes))
	for _, utility := range c.cfg.UtilityTypes {
		d := UtilityData{
			Usage: c.storage.Rollup(utility, types.KindUsage),
			Cost:  c.storage.Rollup(utility, types.KindCost),
		}
		if d.Usage.ClockSkew() {
			logging.Account(c.cfg.AccountNumber).Warn("clock skew in usage data",
				"utility", utility, "lag_hours", d.Usage.DataLagHours)
		}
		data[utility] = d
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}

func (c *Coordinator) refreshLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CycleTimeout)
			if err := c.Refresh(ctx); err != nil && !errors.Is(err, errors.ErrAlreadyRunning) {
				logging.Account(c.cfg.AccountNumber).Warn("refresh failed", "error", err)
			}
			cancel()
		case <-c.shutdown:
			return
		}
	}
}
