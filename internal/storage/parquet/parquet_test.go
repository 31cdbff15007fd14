package parquet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/meterd/internal/storage/types"
)

func testReadings(n int) []types.Reading {
	base := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	readings := make([]types.Reading, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		readings = append(readings, types.Reading{
			TimestampMs:     ts.UnixMilli(),
			CorrectedUTC:    ts.Add(5 * time.Hour),
			Value:           float64(i) + 0.5,
			Unit:            "KWH",
			Category:        types.CategoryElectric,
			Kind:            types.KindUsage,
			SourceID:        "meter-A",
			ServiceLocation: "5101185035",
			AccountNumber:   "490118",
		})
	}
	return readings
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.parquet")

	want := testReadings(25)
	if err := WriteSnapshot(path, want, DefaultOptions()); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reading %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteSnapshot_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.parquet")

	if err := WriteSnapshot(path, testReadings(3), DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "test.parquet" {
		t.Errorf("unexpected dir contents: %v", entries)
	}
}

func TestBackend_PersistRestore(t *testing.T) {
	b, err := NewBackend(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	readings := testReadings(10)
	key := readings[0].Partition()

	if err := b.Persist(key, readings); err != nil {
		t.Fatalf("persist: %v", err)
	}

	restored, err := b.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(restored))
	}
	if got := len(restored[key]); got != 10 {
		t.Errorf("expected 10 readings, got %d", got)
	}
}

func TestBackend_PersistEmptyRemovesSnapshot(t *testing.T) {
	b, err := NewBackend(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	readings := testReadings(2)
	key := readings[0].Partition()

	if err := b.Persist(key, readings); err != nil {
		t.Fatal(err)
	}
	if err := b.Persist(key, nil); err != nil {
		t.Fatal(err)
	}

	restored, err := b.Restore()
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 0 {
		t.Errorf("expected no partitions, got %d", len(restored))
	}

	// Removing an already-absent partition is not an error.
	if err := b.Persist(key, nil); err != nil {
		t.Errorf("double remove: %v", err)
	}
}

func TestBackend_MultiplePartitions(t *testing.T) {
	b, err := NewBackend(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	usage := testReadings(5)
	cost := testReadings(5)
	for i := range cost {
		cost[i].Kind = types.KindCost
		cost[i].Unit = "USD"
	}

	if err := b.Persist(usage[0].Partition(), usage); err != nil {
		t.Fatal(err)
	}
	if err := b.Persist(cost[0].Partition(), cost); err != nil {
		t.Fatal(err)
	}

	restored, err := b.Restore()
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(restored))
	}
	if got := restored[cost[0].Partition()][0].Unit; got != "USD" {
		t.Errorf("cost partition unit: expected USD, got %s", got)
	}
}
