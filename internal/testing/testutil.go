// Package testing provides test utilities for the meterd project.
//
// The builders here construct raw vendor points and batches without the
// pointer noise the wire shape forces on ordinary test code.
package testing

import (
	"time"

	"github.com/xtxerr/meterd/internal/storage/types"
)

// Point builds a well-formed raw point.
func Point(epochMs int64, value float64) types.RawPoint {
	return types.RawPoint{EpochMs: &epochMs, Value: &value}
}

// BadPoint builds a malformed raw point missing both fields.
func BadPoint() types.RawPoint {
	return types.RawPoint{}
}

// Batch builds an ELECTRIC/USAGE batch for meter "meter-A" with the given
// points. Tests that need other dimensions adjust the returned value.
func Batch(points ...types.RawPoint) types.Batch {
	return types.Batch{
		Category:        types.CategoryElectric,
		Kind:            types.KindUsage,
		Unit:            "KWH",
		SourceID:        "meter-A",
		ServiceLocation: "5101185035",
		AccountNumber:   "490118",
		Granularity:     "HOURLY",
		Points:          points,
	}
}

// HourlyPoints builds n well-formed points at exact hour steps starting at
// start, with values value(i) for i in [0, n).
func HourlyPoints(start time.Time, n int, value func(i int) float64) []types.RawPoint {
	pts := make([]types.RawPoint, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, Point(start.Add(time.Duration(i)*time.Hour).UnixMilli(), value(i)))
	}
	return pts
}

// FixedNow returns a clock function pinned to t.
func FixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
