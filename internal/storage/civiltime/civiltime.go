// Package civiltime corrects the vendor's timezone-encoding error.
//
// SmartHub returns interval timestamps as epoch milliseconds that claim to
// be UTC but are actually the wall-clock time of the utility's fixed civil
// zone (including that zone's DST rules). A reading stamped "14:00 UTC" was
// really taken at 14:00 Central. The corrector reinterprets the mislabeled
// instant: decode it as a naive wall-clock date-time, re-tag that wall clock
// as belonging to the civil zone, and convert the result to true UTC.
package civiltime

import "time"

// Corrector reinterprets mislabeled vendor timestamps into true UTC.
// The zero value is unusable; construct with New.
type Corrector struct {
	zone *time.Location
}

// New creates a Corrector for the named civil zone (e.g. "America/Chicago").
func New(zone string) (*Corrector, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Corrector{zone: loc}, nil
}

// MustNew is New for hardcoded zone names in tests and defaults.
func MustNew(zone string) *Corrector {
	c, err := New(zone)
	if err != nil {
		panic(err)
	}
	return c
}

// Zone returns the civil zone this corrector reinterprets into.
func (c *Corrector) Zone() *time.Location {
	return c.zone
}

// Correct converts a raw vendor epoch-millis timestamp to the true UTC
// instant. Pure and deterministic. Wall clocks falling in a DST gap or
// overlap resolve with the zone database's default disambiguation.
func (c *Corrector) Correct(rawEpochMs int64) time.Time {
	// Decode as if UTC to recover the vendor's naive wall clock.
	wall := time.UnixMilli(rawEpochMs).UTC()

	// Re-tag the same wall clock as civil-zone local time.
	local := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), c.zone)

	return local.UTC()
}
