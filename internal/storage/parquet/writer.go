// Package parquet implements the durable snapshot strategy for the reading
// cache. Each partition's full retention window lives in one Parquet file;
// a persist replaces the file wholesale. Snapshot files are also the input
// for the DuckDB-backed historical query service.
package parquet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:  CompressionZstd,
		RowGroupSize: 10000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ReadingRow represents a reading in Parquet format.
type ReadingRow struct {
	TimestampMs     int64   `parquet:"timestamp_ms"`
	CorrectedUTCMs  int64   `parquet:"corrected_utc_ms"`
	Value           float64 `parquet:"value"`
	Unit            string  `parquet:"unit,zstd"`
	Category        string  `parquet:"category,zstd"`
	Kind            string  `parquet:"kind,zstd"`
	SourceID        string  `parquet:"source_id,zstd"`
	ServiceLocation string  `parquet:"service_location,optional,zstd"`
	AccountNumber   string  `parquet:"account_number,optional,zstd"`
}

// ReadingToRow converts a Reading to a ReadingRow.
func ReadingToRow(r *types.Reading) ReadingRow {
	return ReadingRow{
		TimestampMs:     r.TimestampMs,
		CorrectedUTCMs:  r.CorrectedUTC.UnixMilli(),
		Value:           r.Value,
		Unit:            r.Unit,
		Category:        string(r.Category),
		Kind:            string(r.Kind),
		SourceID:        r.SourceID,
		ServiceLocation: r.ServiceLocation,
		AccountNumber:   r.AccountNumber,
	}
}

// WriteSnapshot writes readings to path, replacing any existing file. The
// write goes to a temp file first so readers never observe a torn snapshot.
func WriteSnapshot(path string, readings []types.Reading, opts Options) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	writer := parquet.NewGenericWriter[ReadingRow](f,
		parquet.Compression(getCompression(opts.Compression)),
		parquet.MaxRowsPerRowGroup(int64(opts.RowGroupSize)),
	)

	rows := make([]ReadingRow, len(readings))
	for i := range readings {
		rows[i] = ReadingToRow(&readings[i])
	}

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// SnapshotGlob returns the pattern matching all snapshot files in dir.
func SnapshotGlob(dir string) string {
	return filepath.Join(dir, "*.parquet")
}
