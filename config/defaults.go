// Package config provides configuration defaults and utilities
// for the meterd application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Vendor API Defaults
// =============================================================================

const (
	// DefaultBaseURL is the SmartHub instance the client talks to.
	// Override via config: vendor.base_url
	DefaultBaseURL = "https://hsvutil.smarthub.coop"

	// DefaultRequestTimeout bounds a single HTTP request to the vendor.
	// Override via config: vendor.request_timeout
	DefaultRequestTimeout = 30 * time.Second

	// DefaultPollMaxRetries is how many times a PENDING usage report is
	// re-polled before giving up.
	// Override via config: vendor.poll_max_retries
	DefaultPollMaxRetries = 10

	// DefaultPollRetryDelay is the wait between PENDING re-polls.
	// Override via config: vendor.poll_retry_delay
	DefaultPollRetryDelay = 2 * time.Second
)

// =============================================================================
// Fetch Cycle Defaults
// =============================================================================

const (
	// DefaultUpdateInterval is how often a coordinator runs a full
	// fetch-and-append cycle. The vendor reports at 15-minute granularity,
	// so fetching more often only re-reads the same intervals.
	// Override via config: accounts[].update_interval
	DefaultUpdateInterval = 15 * time.Minute

	// DefaultFetchDays is the historical window requested per cycle.
	// A wide window lets a fresh install backfill statistics immediately.
	// Override via config: accounts[].fetch_days
	DefaultFetchDays = 30
)

// =============================================================================
// Timestamp Defaults
// =============================================================================

const (
	// DefaultCivilZone is the wall-clock timezone the vendor's timestamps
	// are actually in, despite being labeled UTC.
	// Override via config: civil_zone
	DefaultCivilZone = "America/Chicago"
)

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultRetention is how long readings are kept in the cache.
	// Entries older than this are evicted on every append.
	// Override via config: storage.retention
	DefaultRetention = 7 * 24 * time.Hour

	// DefaultDataDir is where Parquet snapshots are written when the
	// durable backend is enabled.
	// Override via config: storage.data_dir
	DefaultDataDir = "meter_data"

	// DefaultRetentionSweepInterval is how often expired snapshot files
	// are pruned from the data dir.
	// Override via config: storage.retention_sweep_interval
	DefaultRetentionSweepInterval = time.Hour

	// DefaultSketchAccuracy is the DDSketch relative accuracy used for
	// per-partition value distribution summaries (0.01 = 1% error).
	// Override via config: storage.sketch_accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Statistics Export Defaults
// =============================================================================

const (
	// StatisticSource is the source tag on exported statistic IDs:
	// "meterd:electric_usage", "meterd:gas_cost", ...
	StatisticSource = "meterd"
)
