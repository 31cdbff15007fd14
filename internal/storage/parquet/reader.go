package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// RowToReading converts a ReadingRow back to a Reading.
func RowToReading(row *ReadingRow) types.Reading {
	return types.Reading{
		TimestampMs:     row.TimestampMs,
		CorrectedUTC:    time.UnixMilli(row.CorrectedUTCMs).UTC(),
		Value:           row.Value,
		Unit:            row.Unit,
		Category:        types.Category(row.Category),
		Kind:            types.Kind(row.Kind),
		SourceID:        row.SourceID,
		ServiceLocation: row.ServiceLocation,
		AccountNumber:   row.AccountNumber,
	}
}

// ReadSnapshot reads all readings from a snapshot file.
func ReadSnapshot(path string) ([]types.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[ReadingRow](f)
	defer reader.Close()

	numRows := reader.NumRows()
	if numRows == 0 {
		return nil, nil
	}

	rows := make([]ReadingRow, numRows)
	n, err := reader.Read(rows)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	readings := make([]types.Reading, n)
	for i := 0; i < n; i++ {
		readings[i] = RowToReading(&rows[i])
	}
	return readings, nil
}
