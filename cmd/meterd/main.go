// meterd is the utility-meter ingestion and aggregation daemon.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/meterd/internal/coordinator"
	"github.com/xtxerr/meterd/internal/loader"
	"github.com/xtxerr/meterd/internal/logging"
	"github.com/xtxerr/meterd/internal/smarthub"
	"github.com/xtxerr/meterd/internal/statistics"
	"github.com/xtxerr/meterd/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data-dir", "", "snapshot directory (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "log in JSON format")
	noSnapshot := flag.Bool("no-snapshot", false, "disable parquet snapshots")
	flag.Parse()

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	// CLI overrides
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}

	if err := loader.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	logger := logging.Component("main")
	logger.Info("meterd starting", "version", Version)

	// =========================================================================
	// Storage (cache + parquet snapshots + retention)
	// =========================================================================

	storageCfg := cfg.ToStorageConfig()
	if *noSnapshot {
		storageCfg.Snapshot = false
	}

	store, err := storage.New(storageCfg, cfg.CivilZone)
	if err != nil {
		logger.Error("create storage", "error", err)
		os.Exit(1)
	}
	if err := store.Start(); err != nil {
		logger.Error("start storage", "error", err)
		os.Exit(1)
	}

	// =========================================================================
	// Statistics export
	// =========================================================================

	sink := statistics.NewMemorySink()
	exporter := statistics.New(store, sink)

	// =========================================================================
	// Coordinators (one per account)
	// =========================================================================

	coordinators := make([]*coordinator.Coordinator, 0, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		client := smarthub.NewClient(account.Username, account.Password,
			smarthub.WithBaseURL(cfg.Vendor.BaseURL),
			smarthub.WithHTTPClient(&http.Client{Timeout: cfg.Vendor.RequestTimeout.Duration()}),
			smarthub.WithPollRetry(cfg.Vendor.PollMaxRetries, cfg.Vendor.PollRetryDelay.Duration()))

		c := coordinator.New(coordinator.Config{
			ServiceLocation: account.ServiceLocation,
			AccountNumber:   account.AccountNumber,
			UpdateInterval:  account.UpdateInterval.Duration(),
			FetchDays:       account.FetchDays,
			UtilityTypes:    account.Categories(),
		}, client, store, exporter)

		if err := c.Start(); err != nil {
			// The loop keeps running; the next tick retries.
			logger.Warn("initial refresh failed",
				"account", account.AccountNumber, "error", err)
		}
		coordinators = append(coordinators, c)
	}

	logger.Info("meterd running",
		"accounts", len(coordinators),
		"snapshot", storageCfg.Snapshot,
		"civil_zone", cfg.CivilZone)

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	// Stop coordinators first (stop fetching), then storage (final flush).
	for _, c := range coordinators {
		c.Stop()
	}
	if err := store.Stop(); err != nil {
		logger.Warn("storage stop", "error", err)
	}
}
