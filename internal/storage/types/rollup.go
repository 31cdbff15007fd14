package types

import "time"

// RollupResult is the live-display aggregate for one (category, kind).
// It is recomputed from cache contents on every read and never stored.
type RollupResult struct {
	Last24h   float64 // Trailing 24h total anchored to the most recent sample
	Today     float64 // Total for the current UTC calendar date
	Yesterday float64 // Total for the previous UTC calendar date
	Unit      string

	// LastUpdate is the corrected UTC instant of the freshest reading.
	// Zero when the partition is empty.
	LastUpdate time.Time

	// DataLagHours is wall-clock now minus LastUpdate, in hours, rounded
	// to one decimal. Negative values mean the vendor clock runs ahead.
	// Zero and meaningless when LastUpdate is zero.
	DataLagHours float64
}

// HasData reports whether the rollup was computed from at least one reading.
func (r *RollupResult) HasData() bool {
	return !r.LastUpdate.IsZero()
}

// ClockSkew reports whether the data lag is implausible: negative, or more
// than the 7-day retention horizon. A condition on the result, never an error.
func (r *RollupResult) ClockSkew() bool {
	return r.HasData() && (r.DataLagHours < 0 || r.DataLagHours > 168)
}

// HourlyPoint is one hour-bucketed total: the feed for statistics export.
type HourlyPoint struct {
	HourStart time.Time // UTC, floored to the hour
	Value     float64   // Sum of readings whose corrected instant falls in the hour
}
