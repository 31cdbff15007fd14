package statistics

import (
	"testing"
	"time"

	"github.com/xtxerr/meterd/internal/storage/types"
)

// fakeSource serves canned series for one electric usage partition.
type fakeSource struct {
	series map[types.PartitionKey][]types.HourlyPoint
	units  map[types.PartitionKey]string
}

func (f *fakeSource) key(c types.Category, k types.Kind) types.PartitionKey {
	return types.PartitionKey{Category: c, Kind: k, SourceID: "meter-A"}
}

func (f *fakeSource) HourlySeries(c types.Category, k types.Kind) []types.HourlyPoint {
	return f.series[f.key(c, k)]
}

func (f *fakeSource) Rollup(c types.Category, k types.Kind) types.RollupResult {
	return types.RollupResult{Unit: f.units[f.key(c, k)]}
}

func (f *fakeSource) Partitions() []types.PartitionKey {
	var keys []types.PartitionKey
	for k := range f.series {
		keys = append(keys, k)
	}
	return keys
}

var hourBase = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func newFakeSource(values ...float64) *fakeSource {
	f := &fakeSource{
		series: make(map[types.PartitionKey][]types.HourlyPoint),
		units:  make(map[types.PartitionKey]string),
	}
	key := f.key(types.CategoryElectric, types.KindUsage)
	for i, v := range values {
		f.series[key] = append(f.series[key], types.HourlyPoint{
			HourStart: hourBase.Add(time.Duration(i) * time.Hour),
			Value:     v,
		})
	}
	f.units[key] = "KWH"
	return f
}

func TestStatisticID(t *testing.T) {
	if got := StatisticID(types.CategoryElectric, types.KindUsage); got != "meterd:electric_usage" {
		t.Errorf("StatisticID = %q, want meterd:electric_usage", got)
	}
	if got := StatisticID(types.CategoryGas, types.KindCost); got != "meterd:gas_cost" {
		t.Errorf("StatisticID = %q, want meterd:gas_cost", got)
	}
}

func TestExport_CumulativeSum(t *testing.T) {
	src := newFakeSource(1.0, 2.0, 3.0)
	sink := NewMemorySink()

	n, err := New(src, sink).Export(types.CategoryElectric, types.KindUsage)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Fatalf("exported = %d, want 3", n)
	}

	records := sink.Records("meterd:electric_usage")
	wantSums := []float64{1.0, 3.0, 6.0}
	for i, r := range records {
		if r.Sum != wantSums[i] {
			t.Errorf("record %d Sum = %v, want %v", i, r.Sum, wantSums[i])
		}
	}
	if records[1].State != 2.0 {
		t.Errorf("record 1 State = %v, want 2.0", records[1].State)
	}

	meta, ok := sink.Meta("meterd:electric_usage")
	if !ok {
		t.Fatal("metadata not written")
	}
	if meta.Unit != "KWH" || meta.Source != "meterd" || meta.Name != "Electric Usage" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestExport_ResumesFromBaseline(t *testing.T) {
	src := newFakeSource(1.0, 2.0)
	sink := NewMemorySink()
	exp := New(src, sink)

	if _, err := exp.Export(types.CategoryElectric, types.KindUsage); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// A later cycle sees one new hour plus the hours already exported.
	key := src.key(types.CategoryElectric, types.KindUsage)
	src.series[key] = append(src.series[key], types.HourlyPoint{
		HourStart: hourBase.Add(2 * time.Hour),
		Value:     4.0,
	})

	n, err := exp.Export(types.CategoryElectric, types.KindUsage)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported = %d, want 1 (only the new hour)", n)
	}

	records := sink.Records("meterd:electric_usage")
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if last := records[2]; last.Sum != 7.0 || last.State != 4.0 {
		t.Errorf("last record = %+v, want Sum 7.0 State 4.0", last)
	}
}

func TestExport_EmptySeries(t *testing.T) {
	src := newFakeSource()
	sink := NewMemorySink()

	n, err := New(src, sink).Export(types.CategoryElectric, types.KindUsage)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 0 {
		t.Errorf("exported = %d, want 0", n)
	}
	if _, ok := sink.Meta("meterd:electric_usage"); ok {
		t.Error("metadata should not be written for empty series")
	}
}

func TestExport_CostUnitUSD(t *testing.T) {
	src := newFakeSource()
	key := src.key(types.CategoryGas, types.KindCost)
	src.series[key] = []types.HourlyPoint{{HourStart: hourBase, Value: 0.5}}
	src.units[key] = "CCF" // sources can mislabel cost units
	sink := NewMemorySink()

	if _, err := New(src, sink).Export(types.CategoryGas, types.KindCost); err != nil {
		t.Fatalf("Export: %v", err)
	}
	meta, _ := sink.Meta("meterd:gas_cost")
	if meta.Unit != "USD" {
		t.Errorf("cost unit = %q, want USD", meta.Unit)
	}
}

func TestExportAll_DedupesDimensionPairs(t *testing.T) {
	src := newFakeSource(1.0)
	// Second partition with the same dimension pair.
	key := types.PartitionKey{Category: types.CategoryElectric, Kind: types.KindUsage, SourceID: "meter-B"}
	src.series[key] = src.series[src.key(types.CategoryElectric, types.KindUsage)]
	sink := NewMemorySink()

	n, err := New(src, sink).ExportAll()
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if n != 1 {
		t.Errorf("exported = %d, want 1 (pair exported once)", n)
	}
}
