// Package loader handles configuration file loading, validation, and
// conversion to the internal component configs.
package loader

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/meterd/internal/errors"
)

// Load loads configuration from a YAML file. Environment variables in
// the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills fields a partial YAML file left unset.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Vendor.BaseURL == "" {
		cfg.Vendor.BaseURL = d.Vendor.BaseURL
	}
	if cfg.Vendor.RequestTimeout == 0 {
		cfg.Vendor.RequestTimeout = d.Vendor.RequestTimeout
	}
	if cfg.Vendor.PollMaxRetries == 0 {
		cfg.Vendor.PollMaxRetries = d.Vendor.PollMaxRetries
	}
	if cfg.Vendor.PollRetryDelay == 0 {
		cfg.Vendor.PollRetryDelay = d.Vendor.PollRetryDelay
	}
	if cfg.CivilZone == "" {
		cfg.CivilZone = d.CivilZone
	}
}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if len(cfg.Accounts) == 0 {
		errs.AddField("accounts", "at least one account is required")
	}
	for i, a := range cfg.Accounts {
		if a.Username == "" {
			errs.AddField(fmt.Sprintf("accounts[%d].username", i), "cannot be empty")
		}
		if a.Password == "" {
			errs.AddField(fmt.Sprintf("accounts[%d].password", i), "cannot be empty")
		}
		if a.ServiceLocation == "" {
			errs.AddField(fmt.Sprintf("accounts[%d].service_location", i), "cannot be empty")
		}
		if a.AccountNumber == "" {
			errs.AddField(fmt.Sprintf("accounts[%d].account_number", i), "cannot be empty")
		}
		if a.UpdateInterval != 0 && a.UpdateInterval.Duration() < time.Minute {
			errs.AddField(fmt.Sprintf("accounts[%d].update_interval", i), "must be at least 1m")
		}
		if a.FetchDays < 0 {
			errs.AddField(fmt.Sprintf("accounts[%d].fetch_days", i), "cannot be negative")
		}
		for _, u := range a.Categories() {
			if !u.Valid() {
				errs.AddField(fmt.Sprintf("accounts[%d].utility_types", i),
					fmt.Sprintf("unknown utility type %q", u))
			}
		}
	}

	if _, err := time.LoadLocation(cfg.CivilZone); err != nil {
		errs.AddField("civil_zone", fmt.Sprintf("unknown zone %q", cfg.CivilZone))
	}

	if err := cfg.ToStorageConfig().Validate(); err != nil {
		errs.AddField("storage", err.Error())
	}

	return errs.Err()
}
