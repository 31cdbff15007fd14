package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Retention = 0 },
			wantErr: "retention",
		},
		{
			name:    "snapshot without data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "zero sweep interval",
			mutate:  func(c *Config) { c.RetentionSweepInterval = 0 },
			wantErr: "retention_sweep_interval",
		},
		{
			name:    "sketch accuracy out of range",
			mutate:  func(c *Config) { c.SketchAccuracy = 1.5 },
			wantErr: "sketch_accuracy",
		},
		{
			name:   "memory only needs no data dir",
			mutate: func(c *Config) { c.Snapshot = false; c.DataDir = "" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	c := &Config{Retention: 48 * time.Hour}
	c.ApplyDefaults()
	if c.Retention != 48*time.Hour {
		t.Errorf("explicit retention overwritten: %s", c.Retention)
	}
	if c.DataDir != DefaultConfig().DataDir {
		t.Errorf("DataDir = %q, want default", c.DataDir)
	}
	if c.Compression != "zstd" {
		t.Errorf("Compression = %q, want zstd", c.Compression)
	}
	if c.SketchAccuracy != DefaultConfig().SketchAccuracy {
		t.Errorf("SketchAccuracy = %v, want default", c.SketchAccuracy)
	}
}
