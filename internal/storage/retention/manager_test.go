package retention

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/meterd/internal/storage/parquet"
	"github.com/xtxerr/meterd/internal/storage/types"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func writeSnapshot(t *testing.T, dir, name string, age time.Duration, n int) {
	t.Helper()
	base := testNow.Add(-age)
	readings := make([]types.Reading, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		readings = append(readings, types.Reading{
			TimestampMs:  ts.UnixMilli(),
			CorrectedUTC: ts,
			Value:        1.0,
			Unit:         "KWH",
			Category:     types.CategoryElectric,
			Kind:         types.KindUsage,
			SourceID:     name,
		})
	}
	if err := parquet.WriteSnapshot(filepath.Join(dir, name+".parquet"), readings, parquet.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(dir string) *Manager {
	m := New(dir, 7*24*time.Hour)
	m.now = func() time.Time { return testNow }
	return m
}

func TestManager_ExpiredSnapshotDeleted(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "stale", 10*24*time.Hour, 5)
	writeSnapshot(t, dir, "live", 2*time.Hour, 5)

	m := newTestManager(dir)
	result := m.RunCleanup()

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.FilesDeleted != 1 {
		t.Errorf("expected 1 deleted, got %d", result.FilesDeleted)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.FilesSkipped)
	}

	paths, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(paths) != 1 || filepath.Base(paths[0]) != "live.parquet" {
		t.Errorf("wrong files survived: %v", paths)
	}
}

func TestManager_MixedAgeSnapshotKept(t *testing.T) {
	dir := t.TempDir()
	// One fresh reading keeps the whole file.
	base := testNow.Add(-10 * 24 * time.Hour)
	readings := []types.Reading{
		{TimestampMs: base.UnixMilli(), CorrectedUTC: base, Category: types.CategoryGas, Kind: types.KindUsage, SourceID: "m"},
		{TimestampMs: testNow.Add(-time.Hour).UnixMilli(), CorrectedUTC: testNow.Add(-time.Hour), Category: types.CategoryGas, Kind: types.KindUsage, SourceID: "m"},
	}
	if err := parquet.WriteSnapshot(filepath.Join(dir, "mixed.parquet"), readings, parquet.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(dir)
	result := m.RunCleanup()

	if result.FilesDeleted != 0 {
		t.Errorf("expected 0 deleted, got %d", result.FilesDeleted)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.FilesSkipped)
	}
}

func TestManager_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "stale", 10*24*time.Hour, 3)

	m := newTestManager(dir)
	result := m.DryRun()

	if result.FilesDeleted != 1 {
		t.Errorf("dry run should report 1 deletable, got %d", result.FilesDeleted)
	}

	paths, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(paths) != 1 {
		t.Error("dry run must not delete files")
	}
	if m.Stats().FilesDeleted != 0 {
		t.Error("dry run must not update stats")
	}
}

func TestManager_EmptyDir(t *testing.T) {
	m := newTestManager(t.TempDir())
	result := m.RunCleanup()
	if result.FilesDeleted != 0 || result.FilesSkipped != 0 || len(result.Errors) != 0 {
		t.Errorf("unexpected result on empty dir: %+v", result)
	}
}
