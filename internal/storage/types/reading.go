package types

import "time"

// Category identifies the metered utility.
type Category string

const (
	CategoryElectric Category = "ELECTRIC"
	CategoryGas      Category = "GAS"
	CategoryWater    Category = "WATER"
)

// Valid reports whether c is a known utility category.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectric, CategoryGas, CategoryWater:
		return true
	}
	return false
}

// DefaultUnit returns the unit assumed for usage readings of this category
// when no readings are present to carry their own unit.
func (c Category) DefaultUnit() string {
	switch c {
	case CategoryElectric:
		return "KWH"
	case CategoryWater:
		return "GAL"
	default:
		return "CCF"
	}
}

// Kind distinguishes usage readings from cost readings.
type Kind string

const (
	KindUsage Kind = "USAGE"
	KindCost  Kind = "COST"
)

// Valid reports whether k is a known data kind.
func (k Kind) Valid() bool {
	return k == KindUsage || k == KindCost
}

// Reading represents one corrected usage or cost sample for one meter.
// This is the primary data unit flowing through the storage system.
type Reading struct {
	// Identity dimensions
	TimestampMs int64    // Raw vendor timestamp in epoch milliseconds (wrong-timezone, opaque)
	SourceID    string   // Meter identifier
	Category    Category // ELECTRIC / GAS / WATER
	Kind        Kind     // USAGE / COST

	// Corrected time
	CorrectedUTC time.Time // True UTC instant after civil-zone reinterpretation

	// Value
	Value float64
	Unit  string // KWH, CCF, GAL, USD, ...

	// Pass-through identifiers, carried for traceability only.
	// They never participate in dedup or bucketing.
	ServiceLocation string
	AccountNumber   string
}

// CivilDate returns the UTC calendar date of the corrected instant,
// truncated to midnight. Used for today/yesterday bucketing.
func (r *Reading) CivilDate() time.Time {
	y, m, d := r.CorrectedUTC.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HourStart returns the corrected instant floored to the hour in UTC.
func (r *Reading) HourStart() time.Time {
	return r.CorrectedUTC.UTC().Truncate(time.Hour)
}

// Identity is the deduplication key for a reading. Two readings with the
// same identity are the same vendor interval; a later one overwrites.
type Identity struct {
	TimestampMs int64
	SourceID    string
	Category    Category
	Kind        Kind
}

// Identity returns the reading's deduplication key.
func (r *Reading) Identity() Identity {
	return Identity{
		TimestampMs: r.TimestampMs,
		SourceID:    r.SourceID,
		Category:    r.Category,
		Kind:        r.Kind,
	}
}

// PartitionKey identifies one stored sequence of readings.
type PartitionKey struct {
	Category Category
	Kind     Kind
	SourceID string
}

// String returns the string representation of the key.
func (k PartitionKey) String() string {
	return string(k.Category) + "/" + string(k.Kind) + "/" + k.SourceID
}

// Partition returns the key of the partition this reading belongs to.
func (r *Reading) Partition() PartitionKey {
	return PartitionKey{Category: r.Category, Kind: r.Kind, SourceID: r.SourceID}
}

// RawPoint is one vendor data point before correction: epoch-millis plus a
// value. Either field may be absent in the wire payload, which marks the
// point malformed.
type RawPoint struct {
	EpochMs *int64
	Value   *float64
}

// Batch is a flat batch of raw points for one (category, kind, source),
// as produced by the ingestion driver from the nested vendor payload.
type Batch struct {
	Category        Category
	Kind            Kind
	Unit            string
	SourceID        string
	ServiceLocation string
	AccountNumber   string
	Granularity     string // HOURLY, DAILY, ... informational only
	Points          []RawPoint
}

// Len returns the number of points in the batch.
func (b *Batch) Len() int {
	return len(b.Points)
}

// Partition returns the key of the partition this batch targets.
func (b *Batch) Partition() PartitionKey {
	return PartitionKey{Category: b.Category, Kind: b.Kind, SourceID: b.SourceID}
}
