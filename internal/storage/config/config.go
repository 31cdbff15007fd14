package config

import (
	"fmt"
	"time"

	appconfig "github.com/xtxerr/meterd/config"
)

// Config represents the storage configuration.
type Config struct {
	// DataDir is the directory for Parquet snapshots. Unused when
	// snapshots are disabled.
	DataDir string `yaml:"data_dir"`

	// Snapshot enables the durable Parquet backend. When false the cache
	// is memory-only and restarts begin empty.
	Snapshot bool `yaml:"snapshot"`

	// Retention is the eviction horizon for cached readings.
	Retention time.Duration `yaml:"retention"`

	// RetentionSweepInterval is how often expired snapshot files are
	// pruned. Only meaningful with Snapshot enabled.
	RetentionSweepInterval time.Duration `yaml:"retention_sweep_interval"`

	// Compression is the Parquet compression algorithm:
	// zstd, snappy, lz4, gzip, none.
	Compression string `yaml:"compression"`

	// SketchAccuracy is the DDSketch relative accuracy for value
	// distribution summaries (0.01 = 1% error).
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:                appconfig.DefaultDataDir,
		Snapshot:               true,
		Retention:              appconfig.DefaultRetention,
		RetentionSweepInterval: appconfig.DefaultRetentionSweepInterval,
		Compression:            "zstd",
		SketchAccuracy:         appconfig.DefaultSketchAccuracy,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", c.Retention)
	}
	if c.Snapshot && c.DataDir == "" {
		return fmt.Errorf("data_dir required when snapshots are enabled")
	}
	if c.Snapshot && c.RetentionSweepInterval <= 0 {
		return fmt.Errorf("retention_sweep_interval must be positive, got %s", c.RetentionSweepInterval)
	}
	if c.SketchAccuracy < 0 || c.SketchAccuracy >= 1 {
		return fmt.Errorf("sketch_accuracy must be in [0, 1), got %v", c.SketchAccuracy)
	}
	return nil
}

// ApplyDefaults fills zero-valued fields from the defaults. Lets a partial
// YAML stanza override only what it names.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Retention == 0 {
		c.Retention = d.Retention
	}
	if c.RetentionSweepInterval == 0 {
		c.RetentionSweepInterval = d.RetentionSweepInterval
	}
	if c.Compression == "" {
		c.Compression = d.Compression
	}
	if c.SketchAccuracy == 0 {
		c.SketchAccuracy = d.SketchAccuracy
	}
}
