// Command backfill loads historical bulk deals into the database, either
// from a CSV export or by fetching a date range from the NSE API with a
// polite delay between days. It shares the store's dedup semantics, so
// re-running a backfill over already-loaded data is a no-op.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/config"
	"github.com/speedy-finance/bulkdeals/internal/fetcher"
	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
	"github.com/speedy-finance/bulkdeals/internal/store"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	csvPath    = flag.String("csv", "", "Historical CSV file to load")
	fromDate   = flag.String("from", "", "Start date for an NSE API backfill (any supported format)")
	toDate     = flag.String("to", "", "End date for an NSE API backfill (defaults to -from)")
	fetchDelay = flag.Duration("delay", 2*time.Second, "Delay between per-day NSE fetches")
)

func main() {
	flag.Parse()

	if *csvPath == "" && *fromDate == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -csv or -from/-to")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	dealStore := store.New(
		filepath.Join(cfg.Store.DataDir, cfg.Store.DatabaseFile),
		filepath.Join(cfg.Store.DataDir, cfg.Store.MetadataFile),
	)
	if err := dealStore.Load(); err != nil {
		logger.Fatal("failed to load deal store: %v", err)
	}
	logger.Info("deal store loaded with %d deals", dealStore.Len())

	ctx := context.Background()
	total := 0

	if *csvPath != "" {
		total += loadCSV(ctx, dealStore, *csvPath)
	}
	if *fromDate != "" {
		total += loadNSERange(ctx, dealStore, cfg)
	}

	meta := dealStore.Metadata()
	fmt.Printf("backfill complete: %d deals added, store now holds %d (%s to %s)\n",
		total, meta.TotalDeals, meta.DateRange.Start, meta.DateRange.End)
}

func loadCSV(ctx context.Context, dealStore *store.Store, path string) int {
	deals, err := fetcher.NewCSVFile(path).Fetch(ctx, "")
	if err != nil {
		logger.Fatal("csv load failed: %v", err)
	}

	added, err := dealStore.AddDeals(deals)
	if err != nil {
		logger.Error("csv batch persisted with error: %v", err)
	}
	logger.Info("csv %s: %d rows, %d new", path, len(deals), added)
	return added
}

func loadNSERange(ctx context.Context, dealStore *store.Store, cfg *config.Config) int {
	start, err := time.Parse("2006-01-02", normalize.Date(*fromDate))
	if err != nil {
		logger.Fatal("invalid -from date %q", *fromDate)
	}
	end := start
	if *toDate != "" {
		end, err = time.Parse("2006-01-02", normalize.Date(*toDate))
		if err != nil {
			logger.Fatal("invalid -to date %q", *toDate)
		}
	}
	if end.Before(start) {
		logger.Fatal("-to is before -from")
	}

	nse := fetcher.NewNSEClient(cfg.Sources.NSEBaseURL, cfg.Sources.Timeout, cfg.Sources.MaxRetries)

	total := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		deals, err := nse.Fetch(ctx, date)
		if err != nil {
			// Best effort per day, same as scheduled ingest.
			logger.Error("fetch for %s failed: %v", date, err)
			continue
		}

		added, err := dealStore.AddDeals(deals)
		if err != nil {
			logger.Error("batch for %s persisted with error: %v", date, err)
		}
		logger.Info("%s: %d fetched, %d new", date, len(deals), added)
		total += added

		if day.Before(end) {
			time.Sleep(*fetchDelay)
		}
	}
	return total
}
