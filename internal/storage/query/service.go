package query

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/xtxerr/meterd/internal/storage/parquet"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Service answers historical queries over the Parquet snapshot directory
// using DuckDB. It complements the in-memory aggregator: the aggregator
// serves the live rollup surface, the query service serves ad-hoc and
// range queries without touching the cache.
type Service struct {
	mu sync.RWMutex

	dir string
	db  *sql.DB

	stats ServiceStats
}

// ServiceStats holds query statistics.
type ServiceStats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// RangeQuery defines parameters for an hourly-totals query. Zero-valued
// Category and Kind match all partitions.
type RangeQuery struct {
	Category types.Category
	Kind     types.Kind
	SourceID string
	Start    time.Time
	End      time.Time
	Limit    int
}

// HourlyTotal is one hour bucket of summed values from snapshots.
type HourlyTotal struct {
	HourStart time.Time
	Category  types.Category
	Kind      types.Kind
	Value     float64
}

// New creates a query service over the snapshot directory. The DuckDB
// database is in-memory; snapshots are scanned on every query.
func New(dir string) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &Service{
		dir: dir,
		db:  db,
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HourlyTotals sums snapshot readings into hour buckets over the query
// range. Buckets are floored on corrected UTC time and returned in
// ascending order.
func (s *Service) HourlyTotals(ctx context.Context, q RangeQuery) ([]HourlyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT
			time_bucket(INTERVAL 1 HOUR, epoch_ms(corrected_utc_ms)) AS hour_start,
			category, kind,
			SUM(value) AS total
		FROM read_parquet($1)
		WHERE corrected_utc_ms >= $2
		  AND corrected_utc_ms < $3
		  AND ($4 = '' OR category = $4)
		  AND ($5 = '' OR kind = $5)
		  AND ($6 = '' OR source_id = $6)
		GROUP BY hour_start, category, kind
		ORDER BY hour_start, category, kind
	`

	rows, err := s.db.QueryContext(ctx, query,
		parquet.SnapshotGlob(s.dir),
		q.Start.UnixMilli(),
		q.End.UnixMilli(),
		string(q.Category),
		string(q.Kind),
		q.SourceID,
	)
	if err != nil {
		// An empty snapshot directory makes read_parquet fail; treat it
		// as no data rather than an error.
		return nil, nil
	}
	defer rows.Close()

	var results []HourlyTotal
	for rows.Next() {
		var t HourlyTotal
		var hour time.Time
		var category, kind string
		if err := rows.Scan(&hour, &category, &kind, &t.Value); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t.HourStart = hour.UTC()
		t.Category = types.Category(category)
		t.Kind = types.Kind(kind)
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		s.stats.Errors++
		return nil, err
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return results, nil
}

// ExecuteSQL executes a raw SQL query using DuckDB. Useful for ad-hoc
// queries and debugging; read_parquet over SnapshotGlob gives access to
// the snapshot rows.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))

	return results, rows.Err()
}

// SnapshotGlob returns the read_parquet glob for the service's directory.
func (s *Service) SnapshotGlob() string {
	return parquet.SnapshotGlob(s.dir)
}

// Stats returns query statistics.
func (s *Service) Stats() ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
