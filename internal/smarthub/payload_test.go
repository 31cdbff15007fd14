package smarthub

import (
	"encoding/json"
	"testing"

	"github.com/xtxerr/meterd/internal/storage/types"
)

func ptrI(v int64) *int64     { return &v }
func ptrF(v float64) *float64 { return &v }

func TestFlatten(t *testing.T) {
	resp := &UsageResponse{
		Status: "COMPLETE",
		Data: map[string][]Dataset{
			"ELECTRIC": {
				{
					Type:          "USAGE",
					UnitOfMeasure: "KWH",
					Series: []Series{
						{MeterNumber: "meter-A", Data: []Point{{X: ptrI(1000), Y: ptrF(1.5)}}},
						{MeterNumber: "meter-B", Data: []Point{{X: ptrI(2000), Y: ptrF(2.5)}}},
					},
				},
				{
					Type:          "COST",
					UnitOfMeasure: "USD",
					Series: []Series{
						{MeterNumber: "meter-A", Data: []Point{{X: ptrI(1000), Y: ptrF(0.18)}}},
					},
				},
			},
		},
	}

	batches := resp.Flatten(FlattenOptions{
		ServiceLocation: "5101185035",
		AccountNumber:   "490118",
		Granularity:     "HOURLY",
	})
	if len(batches) != 3 {
		t.Fatalf("len(batches) = %d, want 3", len(batches))
	}

	var usage, cost int
	for _, b := range batches {
		if b.Category != types.CategoryElectric {
			t.Errorf("Category = %s, want ELECTRIC", b.Category)
		}
		if b.ServiceLocation != "5101185035" || b.AccountNumber != "490118" {
			t.Errorf("identity not carried: %+v", b)
		}
		switch b.Kind {
		case types.KindUsage:
			usage++
			if b.Unit != "KWH" {
				t.Errorf("usage unit = %s, want KWH", b.Unit)
			}
		case types.KindCost:
			cost++
			if b.Unit != "USD" {
				t.Errorf("cost unit = %s, want USD", b.Unit)
			}
		}
	}
	if usage != 2 || cost != 1 {
		t.Errorf("usage = %d cost = %d, want 2 and 1", usage, cost)
	}
}

func TestFlatten_UnknownTypeMapsToCost(t *testing.T) {
	resp := &UsageResponse{
		Data: map[string][]Dataset{
			"GAS": {
				{Type: "BILLED", UnitOfMeasure: "USD", Series: []Series{
					{MeterNumber: "meter-G", Data: []Point{{X: ptrI(1000), Y: ptrF(3.0)}}},
				}},
			},
		},
	}
	batches := resp.Flatten(FlattenOptions{})
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if batches[0].Kind != types.KindCost {
		t.Errorf("Kind = %s, want COST", batches[0].Kind)
	}
}

func TestFlatten_MissingUnitAndMeter(t *testing.T) {
	resp := &UsageResponse{
		Data: map[string][]Dataset{
			"WATER": {
				{Type: "USAGE", Series: []Series{
					{Data: []Point{{X: ptrI(1000), Y: ptrF(3.0)}}},
				}},
			},
		},
	}
	batches := resp.Flatten(FlattenOptions{})
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if batches[0].Unit != "UNKNOWN" {
		t.Errorf("Unit = %q, want UNKNOWN", batches[0].Unit)
	}
	if batches[0].SourceID != "unknown" {
		t.Errorf("SourceID = %q, want unknown", batches[0].SourceID)
	}
}

func TestFlatten_SkipsInvalidIndustryAndEmptySeries(t *testing.T) {
	resp := &UsageResponse{
		Data: map[string][]Dataset{
			"SEWER": {
				{Type: "USAGE", UnitOfMeasure: "GAL", Series: []Series{
					{MeterNumber: "meter-S", Data: []Point{{X: ptrI(1000), Y: ptrF(1.0)}}},
				}},
			},
			"ELECTRIC": {
				{Type: "USAGE", UnitOfMeasure: "KWH", Series: []Series{
					{MeterNumber: "meter-A"},
				}},
			},
		},
	}
	if batches := resp.Flatten(FlattenOptions{}); len(batches) != 0 {
		t.Fatalf("len(batches) = %d, want 0", len(batches))
	}
}

func TestFlatten_PartialPointsPreserved(t *testing.T) {
	resp := &UsageResponse{
		Data: map[string][]Dataset{
			"ELECTRIC": {
				{Type: "USAGE", UnitOfMeasure: "KWH", Series: []Series{
					{MeterNumber: "meter-A", Data: []Point{
						{X: ptrI(1000), Y: ptrF(1.0)},
						{X: nil, Y: ptrF(2.0)},
						{X: ptrI(3000), Y: nil},
					}},
				}},
			},
		},
	}
	batches := resp.Flatten(FlattenOptions{})
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	// Malformed points pass through; the store decides to skip them.
	if got := len(batches[0].Points); got != 3 {
		t.Errorf("points = %d, want 3", got)
	}
	if batches[0].Points[1].EpochMs != nil {
		t.Error("expected nil EpochMs preserved")
	}
}

func TestUsageResponse_DecodePending(t *testing.T) {
	var resp UsageResponse
	if err := json.Unmarshal([]byte(`{"status": "PENDING"}`), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Pending() {
		t.Error("expected Pending() true")
	}
}
