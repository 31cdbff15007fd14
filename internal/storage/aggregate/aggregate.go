// Package aggregate computes the two read-side projections over the reading
// cache: point-in-time rollups for live display and hour-bucketed series for
// statistics export. Nothing here is cached; every call re-derives from the
// store so results always reflect current retention and overwrites.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/xtxerr/meterd/internal/storage/store"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Aggregator derives rollups and hourly series from a Store.
type Aggregator struct {
	store *store.Store

	// sketchAccuracy is the DDSketch relative accuracy for Distribution.
	sketchAccuracy float64

	// now is swappable for tests.
	now func() time.Time
}

// Options configures an Aggregator.
type Options struct {
	// SketchAccuracy is the DDSketch relative accuracy (0.01 = 1% error).
	// Zero means 0.01.
	SketchAccuracy float64

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// New creates an Aggregator over the given store.
func New(s *store.Store, opts Options) *Aggregator {
	a := &Aggregator{
		store:          s,
		sketchAccuracy: opts.SketchAccuracy,
		now:            opts.Now,
	}
	if a.sketchAccuracy <= 0 {
		a.sketchAccuracy = 0.01
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Rollup computes the live-display aggregate for one (category, kind).
// An empty partition yields a zero-valued result with the category's
// default unit and a zero LastUpdate; no data is never an error.
func (a *Aggregator) Rollup(category types.Category, kind types.Kind) types.RollupResult {
	readings := a.store.Read(store.Filter{Category: category, Kind: kind})

	if len(readings) == 0 {
		return types.RollupResult{Unit: defaultUnit(category, kind)}
	}

	now := a.now().UTC()
	today := truncateDate(now)
	yesterday := today.AddDate(0, 0, -1)

	// Readings arrive sorted by raw timestamp; the corrected instants are a
	// fixed offset away per DST regime, so the last element is the freshest.
	latest := readings[len(readings)-1]

	// The vendor reports with a multi-hour lag, so the trailing window is
	// anchored to the most recent sample, not to wall-clock now.
	windowStart := latest.CorrectedUTC.Add(-24 * time.Hour)

	var last24h, todayTotal, yesterdayTotal float64
	for i := range readings {
		r := &readings[i]
		if r.CorrectedUTC.After(windowStart) {
			last24h += r.Value
		}
		switch r.CivilDate() {
		case today:
			todayTotal += r.Value
		case yesterday:
			yesterdayTotal += r.Value
		}
	}

	unit := readings[0].Unit
	if kind == types.KindCost {
		unit = "USD"
	}

	return types.RollupResult{
		Last24h:      round2(last24h),
		Today:        round2(todayTotal),
		Yesterday:    round2(yesterdayTotal),
		Unit:         unit,
		LastUpdate:   latest.CorrectedUTC,
		DataLagHours: round1(now.Sub(latest.CorrectedUTC).Hours()),
	}
}

// HourlySeries buckets all cached readings for (category, kind) by the
// corrected instant floored to the hour, ascending. This is the feed for
// statistics export; the consumer derives its own cumulative sum.
func (a *Aggregator) HourlySeries(category types.Category, kind types.Kind) []types.HourlyPoint {
	readings := a.store.Read(store.Filter{Category: category, Kind: kind})
	if len(readings) == 0 {
		return nil
	}

	buckets := make(map[time.Time]float64)
	for i := range readings {
		buckets[readings[i].HourStart()] += readings[i].Value
	}

	series := make([]types.HourlyPoint, 0, len(buckets))
	for hour, value := range buckets {
		series = append(series, types.HourlyPoint{HourStart: hour, Value: value})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].HourStart.Before(series[j].HourStart)
	})
	return series
}

// Summary describes the distribution of cached reading values for one
// partition pair. Useful for spotting vendor anomalies (a meter suddenly
// reporting 100x values) without scanning raw readings.
type Summary struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	P50   float64
	P95   float64
	P99   float64
}

// Distribution computes a value-distribution summary for (category, kind).
// The second return is false when the partition is empty.
func (a *Aggregator) Distribution(category types.Category, kind types.Kind) (Summary, bool) {
	readings := a.store.Read(store.Filter{Category: category, Kind: kind})
	if len(readings) == 0 {
		return Summary{}, false
	}

	sketch, err := ddsketch.NewDefaultDDSketch(a.sketchAccuracy)
	if err != nil {
		return Summary{}, false
	}

	s := Summary{Min: math.MaxFloat64, Max: -math.MaxFloat64}
	for i := range readings {
		v := readings[i].Value
		s.Count++
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sketch.Add(v)
	}

	if p, err := sketch.GetValueAtQuantile(0.50); err == nil {
		s.P50 = p
	}
	if p, err := sketch.GetValueAtQuantile(0.95); err == nil {
		s.P95 = p
	}
	if p, err := sketch.GetValueAtQuantile(0.99); err == nil {
		s.P99 = p
	}

	return s, true
}

func defaultUnit(category types.Category, kind types.Kind) string {
	if kind == types.KindCost {
		return "USD"
	}
	return category.DefaultUnit()
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
