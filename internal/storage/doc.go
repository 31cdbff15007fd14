// Package storage implements the reading cache and aggregation layer
// for the meterd utility-usage daemon.
//
// Architecture:
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│ Coordinator │────▶│    Store    │────▶│   Parquet   │
//	│  (batches)  │     │ (partitions)│     │  Snapshots  │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                           │
//	                           ▼
//	                    ┌─────────────┐
//	                    │ Aggregator  │
//	                    │ (rollups)   │
//	                    └─────────────┘
//
// The storage layer provides:
//   - Idempotent ingestion keyed on (timestamp, source, category, kind)
//   - Civil-time correction of the vendor's mislabeled timestamps
//   - Sliding retention with eviction on every append
//   - Rollup and hourly-series aggregation for export
//   - Parquet snapshots per partition for restart recovery
//   - DuckDB queries over historical snapshots
package storage
