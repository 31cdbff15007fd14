// Package loader - Configuration Types
//
// Defines the YAML configuration structure for meterd.
//
//	logging:    Level and format
//	vendor:     SmartHub endpoint and poll behavior
//	storage:    Cache, snapshots, retention
//	accounts:   One coordinator per entry
package loader

import (
	"time"

	appconfig "github.com/xtxerr/meterd/config"
	storageconfig "github.com/xtxerr/meterd/internal/storage/config"
	"github.com/xtxerr/meterd/internal/storage/types"
)

// Config is the root configuration structure for meterd.
type Config struct {
	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Vendor configures the SmartHub API endpoint and poll behavior.
	// Shared by every account.
	Vendor VendorConfig `yaml:"vendor"`

	// Storage configures the reading cache and snapshots.
	Storage StorageConfig `yaml:"storage"`

	// CivilZone is the zone the vendor's mislabeled timestamps actually
	// represent. Default: America/Chicago.
	CivilZone string `yaml:"civil_zone"`

	// Accounts lists the utility accounts to poll. Each gets its own
	// coordinator.
	Accounts []AccountConfig `yaml:"accounts"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level: debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// JSON switches from text to JSON output.
	JSON bool `yaml:"json"`
}

// VendorConfig configures the SmartHub API client.
type VendorConfig struct {
	// BaseURL is the vendor endpoint.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout Duration `yaml:"request_timeout"`

	// PollMaxRetries bounds the PENDING re-poll loop.
	PollMaxRetries int `yaml:"poll_max_retries"`

	// PollRetryDelay is the wait between PENDING re-polls.
	PollRetryDelay Duration `yaml:"poll_retry_delay"`
}

// StorageConfig mirrors the storage package configuration in YAML form.
type StorageConfig struct {
	DataDir                string   `yaml:"data_dir"`
	Snapshot               *bool    `yaml:"snapshot"`
	Retention              Duration `yaml:"retention"`
	RetentionSweepInterval Duration `yaml:"retention_sweep_interval"`
	Compression            string   `yaml:"compression"`
	SketchAccuracy         float64  `yaml:"sketch_accuracy"`
}

// AccountConfig identifies one utility account.
type AccountConfig struct {
	// Username and Password are the SmartHub credentials. Environment
	// variables in the YAML are expanded before parsing, so
	// "${SMARTHUB_PASSWORD}" works here.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ServiceLocation and AccountNumber identify the metered premises.
	ServiceLocation string `yaml:"service_location"`
	AccountNumber   string `yaml:"account_number"`

	// UpdateInterval is the fetch cadence. Default: 15m.
	UpdateInterval Duration `yaml:"update_interval"`

	// FetchDays is the report lookback window. Default: 30.
	FetchDays int `yaml:"fetch_days"`

	// UtilityTypes to poll. Default: [ELECTRIC, GAS].
	UtilityTypes []string `yaml:"utility_types"`
}

// Categories converts the configured utility type names.
func (a *AccountConfig) Categories() []types.Category {
	if len(a.UtilityTypes) == 0 {
		return []types.Category{types.CategoryElectric, types.CategoryGas}
	}
	out := make([]types.Category, 0, len(a.UtilityTypes))
	for _, s := range a.UtilityTypes {
		out = append(out, types.Category(s))
	}
	return out
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Vendor: VendorConfig{
			BaseURL:        appconfig.DefaultBaseURL,
			RequestTimeout: Duration(appconfig.DefaultRequestTimeout),
			PollMaxRetries: appconfig.DefaultPollMaxRetries,
			PollRetryDelay: Duration(appconfig.DefaultPollRetryDelay),
		},
		CivilZone: appconfig.DefaultCivilZone,
	}
}

// ToStorageConfig converts the YAML storage stanza to the internal
// storage config, filling defaults for anything unset.
func (c *Config) ToStorageConfig() *storageconfig.Config {
	sc := &storageconfig.Config{
		DataDir:                c.Storage.DataDir,
		Snapshot:               true,
		Retention:              c.Storage.Retention.Duration(),
		RetentionSweepInterval: c.Storage.RetentionSweepInterval.Duration(),
		Compression:            c.Storage.Compression,
		SketchAccuracy:         c.Storage.SketchAccuracy,
	}
	if c.Storage.Snapshot != nil {
		sc.Snapshot = *c.Storage.Snapshot
	}
	sc.ApplyDefaults()
	return sc
}

// Duration is a time.Duration that unmarshals from YAML as either a Go
// duration string or an integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
