// Package statistics exports hour-bucketed usage totals as cumulative
// statistic records, the shape long-term energy dashboards ingest.
package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	appconfig "github.com/xtxerr/meterd/config"
	"github.com/xtxerr/meterd/internal/logging"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Record is one exported hour: the hour's own total plus the running
// cumulative sum across all exported hours.
type Record struct {
	StatisticID string
	HourStart   time.Time
	State       float64
	Sum         float64
}

// Metadata describes one statistic stream.
type Metadata struct {
	StatisticID string
	Name        string
	Source      string
	Unit        string
}

// Sink receives exported statistics. Baseline returns the cumulative
// sum and hour of the newest record already written for a statistic, so
// an exporter can resume the running sum instead of restarting at zero.
type Sink interface {
	Baseline(statisticID string) (sum float64, lastHour time.Time, ok bool)
	Write(meta Metadata, records []Record) error
}

// Source provides the aggregates to export. The storage service
// satisfies it.
type Source interface {
	HourlySeries(category types.Category, kind types.Kind) []types.HourlyPoint
	Rollup(category types.Category, kind types.Kind) types.RollupResult
	Partitions() []types.PartitionKey
}

// Exporter converts hourly series into cumulative statistic records.
type Exporter struct {
	source Source
	sink   Sink
}

// New creates an exporter from source to sink.
func New(source Source, sink Sink) *Exporter {
	return &Exporter{source: source, sink: sink}
}

// StatisticID returns the external statistic ID for a dimension pair,
// e.g. "meterd:electric_usage".
func StatisticID(category types.Category, kind types.Kind) string {
	return fmt.Sprintf("%s:%s_%s", appconfig.StatisticSource,
		strings.ToLower(string(category)), strings.ToLower(string(kind)))
}

// Export writes the cumulative records for one dimension pair. Hours at
// or before the sink's baseline are skipped; the running sum continues
// from the baseline. Returns the number of records written.
func (e *Exporter) Export(category types.Category, kind types.Kind) (int, error) {
	series := e.source.HourlySeries(category, kind)
	if len(series) == 0 {
		return 0, nil
	}

	id := StatisticID(category, kind)
	sum, lastHour, haveBaseline := e.sink.Baseline(id)
	if !haveBaseline {
		sum = 0
	}

	records := make([]Record, 0, len(series))
	for _, p := range series {
		if haveBaseline && !p.HourStart.After(lastHour) {
			continue
		}
		sum += p.Value
		records = append(records, Record{
			StatisticID: id,
			HourStart:   p.HourStart,
			State:       p.Value,
			Sum:         sum,
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	meta := Metadata{
		StatisticID: id,
		Name:        fmt.Sprintf("%s %s", title(string(category)), title(string(kind))),
		Source:      appconfig.StatisticSource,
		Unit:        e.unitFor(category, kind),
	}
	if err := e.sink.Write(meta, records); err != nil {
		return 0, fmt.Errorf("write statistics %s: %w", id, err)
	}

	logging.Component("statistics").Debug("exported statistics",
		"id", id, "records", len(records))
	return len(records), nil
}

// ExportAll exports every dimension pair currently cached. Partitions
// sharing a dimension pair export once.
func (e *Exporter) ExportAll() (int, error) {
	seen := make(map[string]bool)
	var total int
	for _, p := range e.source.Partitions() {
		id := StatisticID(p.Category, p.Kind)
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := e.Export(p.Category, p.Kind)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// unitFor resolves the statistic unit: cost is always USD, electric
// usage is always KWH, and other usage follows the cached readings with
// the category default as fallback.
func (e *Exporter) unitFor(category types.Category, kind types.Kind) string {
	if kind == types.KindCost {
		return "USD"
	}
	if category == types.CategoryElectric {
		return "KWH"
	}
	if unit := e.source.Rollup(category, kind).Unit; unit != "" {
		return unit
	}
	return category.DefaultUnit()
}

func title(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// MemorySink is an in-process Sink that keeps the newest records per
// statistic, keyed by hour. Later writes for the same hour replace the
// earlier record.
type MemorySink struct {
	mu      sync.RWMutex
	meta    map[string]Metadata
	records map[string]map[time.Time]Record
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		meta:    make(map[string]Metadata),
		records: make(map[string]map[time.Time]Record),
	}
}

// Baseline implements Sink.
func (m *MemorySink) Baseline(statisticID string) (float64, time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hours := m.records[statisticID]
	if len(hours) == 0 {
		return 0, time.Time{}, false
	}
	var last Record
	for _, r := range hours {
		if r.HourStart.After(last.HourStart) {
			last = r
		}
	}
	return last.Sum, last.HourStart, true
}

// Write implements Sink.
func (m *MemorySink) Write(meta Metadata, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.meta[meta.StatisticID] = meta
	hours := m.records[meta.StatisticID]
	if hours == nil {
		hours = make(map[time.Time]Record)
		m.records[meta.StatisticID] = hours
	}
	for _, r := range records {
		hours[r.HourStart] = r
	}
	return nil
}

// Records returns the stored records for a statistic in hour order.
func (m *MemorySink) Records(statisticID string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hours := m.records[statisticID]
	out := make([]Record, 0, len(hours))
	for _, r := range hours {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourStart.Before(out[j].HourStart) })
	return out
}

// Meta returns the stored metadata for a statistic.
func (m *MemorySink) Meta(statisticID string) (Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.meta[statisticID]
	return meta, ok
}
