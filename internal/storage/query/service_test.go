package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/meterd/internal/storage/parquet"
	"github.com/xtxerr/meterd/internal/storage/types"
)

func writeSnapshot(t *testing.T, dir, name string, readings []types.Reading) {
	t.Helper()
	if err := parquet.WriteSnapshot(filepath.Join(dir, name), readings, parquet.DefaultOptions()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
}

func usageReading(ts time.Time, value float64) types.Reading {
	return types.Reading{
		TimestampMs:  ts.UnixMilli(),
		SourceID:     "meter-A",
		Category:     types.CategoryElectric,
		Kind:         types.KindUsage,
		CorrectedUTC: ts,
		Value:        value,
		Unit:         "KWH",
	}
}

func TestService_New(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()
}

func TestService_ExecuteSQL(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	results, err := svc.ExecuteSQL(context.Background(), "SELECT 1 AS value")
	if err != nil {
		t.Fatalf("ExecuteSQL: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	stats := svc.Stats()
	if stats.QueriesExecuted != 1 {
		t.Errorf("expected 1 query executed, got %d", stats.QueriesExecuted)
	}
}

func TestService_HourlyTotals(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	// Two readings in hour 10, one in hour 11.
	writeSnapshot(t, dir, "electric_usage_meter-a.parquet", []types.Reading{
		usageReading(base, 1.0),
		usageReading(base.Add(30*time.Minute), 2.0),
		usageReading(base.Add(time.Hour), 4.0),
	})

	svc, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	totals, err := svc.HourlyTotals(context.Background(), RangeQuery{
		Category: types.CategoryElectric,
		Kind:     types.KindUsage,
		Start:    base.Add(-time.Hour),
		End:      base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("HourlyTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len(totals) = %d, want 2", len(totals))
	}
	if !totals[0].HourStart.Equal(base) || totals[0].Value != 3.0 {
		t.Errorf("bucket 0 = %v %v, want %v 3.0", totals[0].HourStart, totals[0].Value, base)
	}
	if !totals[1].HourStart.Equal(base.Add(time.Hour)) || totals[1].Value != 4.0 {
		t.Errorf("bucket 1 = %v %v, want %v 4.0", totals[1].HourStart, totals[1].Value, base.Add(time.Hour))
	}
}

func TestService_HourlyTotalsRangeExclusiveEnd(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	writeSnapshot(t, dir, "electric_usage_meter-a.parquet", []types.Reading{
		usageReading(base, 1.0),
		usageReading(base.Add(time.Hour), 2.0),
	})

	svc, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	totals, err := svc.HourlyTotals(context.Background(), RangeQuery{
		Start: base,
		End:   base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("HourlyTotals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("len(totals) = %d, want 1 (end is exclusive)", len(totals))
	}
}

func TestService_HourlyTotalsEmptyDir(t *testing.T) {
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	totals, err := svc.HourlyTotals(context.Background(), RangeQuery{
		Start: time.Now().Add(-24 * time.Hour),
		End:   time.Now(),
	})
	if err != nil {
		t.Fatalf("HourlyTotals: %v", err)
	}
	if len(totals) != 0 {
		t.Errorf("expected no totals from empty dir, got %d", len(totals))
	}
}
