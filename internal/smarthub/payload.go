package smarthub

import (
	"strings"

	"github.com/xtxerr/meterd/internal/storage/types"
)

// UsageResponse is the vendor's poll response. Status is "PENDING" while
// the report is being generated server-side; once ready the Data map is
// keyed by industry ("ELECTRIC", "GAS", "WATER").
type UsageResponse struct {
	Status string               `json:"status"`
	Data   map[string][]Dataset `json:"data"`
}

// Pending reports whether the server is still generating the report.
func (r *UsageResponse) Pending() bool {
	return r.Status == "PENDING"
}

// Dataset is one series group within an industry: usage or cost, with
// its unit and one series per meter.
type Dataset struct {
	Type          string   `json:"type"`
	UnitOfMeasure string   `json:"unitOfMeasure"`
	Series        []Series `json:"series"`
}

// Series is one meter's points.
type Series struct {
	MeterNumber string  `json:"meterNumber"`
	Data        []Point `json:"data"`
}

// Point is a single raw sample. Pointers because the vendor emits
// partial points; nil fields mark the point malformed.
type Point struct {
	X *int64   `json:"x"` // epoch ms, mislabeled UTC
	Y *float64 `json:"y"`
}

// FlattenOptions carries the request identity the payload itself does
// not repeat.
type FlattenOptions struct {
	ServiceLocation string
	AccountNumber   string
	Granularity     string
}

// Flatten converts the nested vendor payload into one batch per
// (industry, dataset type, meter). Dataset types other than USAGE map
// to COST; a missing unit becomes "UNKNOWN". Industries that are not
// valid categories are skipped.
func (r *UsageResponse) Flatten(opts FlattenOptions) []types.Batch {
	var batches []types.Batch
	for industry, datasets := range r.Data {
		category := types.Category(strings.ToUpper(industry))
		if !category.Valid() {
			continue
		}
		for _, ds := range datasets {
			kind := types.KindCost
			if strings.ToUpper(ds.Type) == string(types.KindUsage) {
				kind = types.KindUsage
			}
			unit := ds.UnitOfMeasure
			if unit == "" {
				unit = "UNKNOWN"
			}
			for _, series := range ds.Series {
				if len(series.Data) == 0 {
					continue
				}
				sourceID := series.MeterNumber
				if sourceID == "" {
					sourceID = "unknown"
				}
				points := make([]types.RawPoint, len(series.Data))
				for i, p := range series.Data {
					points[i] = types.RawPoint{EpochMs: p.X, Value: p.Y}
				}
				batches = append(batches, types.Batch{
					Category:        category,
					Kind:            kind,
					Unit:            unit,
					SourceID:        sourceID,
					ServiceLocation: opts.ServiceLocation,
					AccountNumber:   opts.AccountNumber,
					Granularity:     opts.Granularity,
					Points:          points,
				})
			}
		}
	}
	return batches
}
