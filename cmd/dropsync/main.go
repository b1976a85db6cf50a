// Command dropsync refreshes the sales, products, categories and attributes
// tables from the order-management API. Configuration comes from the
// environment (plus an optional .env file); there are no flags.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dropsync/internal/api"
	"dropsync/internal/config"
	"dropsync/internal/metrics"
	"dropsync/internal/metrics/datadog"
	"dropsync/internal/run"
	"dropsync/internal/runlog"
	"dropsync/internal/storage"

	// register all storage backends; DB_KIND selects one at runtime.
	_ "dropsync/internal/storage/all"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := runlog.Open(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log %s: %v\n", cfg.LogPath, err)
		os.Exit(2)
	}

	// realMain returns instead of exiting so the separator, the log file
	// and the metrics backend all shut down cleanly.
	code := realMain(cfg, log)
	_ = log.Close()
	os.Exit(code)
}

func realMain(cfg config.Config, log *runlog.Log) int {
	log.Separator()
	defer log.Separator()

	ctx := context.Background()
	closeMetrics := initMetrics(ctx, cfg, log)
	defer closeMetrics()

	start := time.Now()
	log.Infof("run started (db=%s, page size=%d)", cfg.DBKind, cfg.PageSize)

	store, err := storage.Open(ctx, storage.Config{Kind: cfg.DBKind, DSN: cfg.DBDSN})
	if err != nil {
		log.Errorf("open %s store: %v", cfg.DBKind, err)
		return 1
	}
	defer store.Close()

	if err := store.EnsureTables(ctx); err != nil {
		log.Errorf("ensure tables: %v", err)
		return 1
	}

	client := api.New(api.Config{
		TokenURL:      cfg.TokenURL,
		BaseURL:       cfg.CallURL,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		GrantType:     cfg.GrantType,
		PageSize:      cfg.PageSize,
		CreatedAtMin:  cfg.CreatedAtMin,
		ThrottleDelay: cfg.ThrottleDelay,
	})
	client.Log = log

	r := &run.Runner{
		API:   run.NewMarketplace(client),
		Store: store,
		Log:   log,
	}

	totals, err := r.Run(ctx)
	if err != nil {
		log.Errorf("run failed: %v", err)
		return 1
	}

	log.Infof("run completed in %s: %d orders, %d products",
		time.Since(start).Truncate(time.Millisecond), totals.Orders, totals.Products)

	if err := metrics.Flush(); err != nil {
		log.Warnf("metrics: flush: %v", err)
	}
	return 0
}

// initMetrics installs the configured metrics backend and returns its
// shutdown func. Anything that goes wrong here downgrades to the nop
// backend; metrics never block a run.
func initMetrics(ctx context.Context, cfg config.Config, log *runlog.Log) func() {
	nop := func() {}

	switch cfg.MetricsBackend {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			Tags: datadog.ParseTagsCSV(cfg.MetricsTags),
		})
		if err != nil {
			log.Warnf("metrics: datadog init failed, metrics disabled: %v", err)
			return nop
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Warnf("metrics: final flush: %v", err)
			}
		}
	case "", "none":
		// nop backend remains
	default:
		log.Warnf("metrics: unknown backend %q, metrics disabled", cfg.MetricsBackend)
	}
	return nop
}
