package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/speedy-finance/bulkdeals/internal/config"
	"github.com/speedy-finance/bulkdeals/internal/fetcher"
	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/quotes"
	"github.com/speedy-finance/bulkdeals/internal/scheduler"
	"github.com/speedy-finance/bulkdeals/internal/store"
	"github.com/speedy-finance/bulkdeals/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded from %s", *configPath)

	// Deal store: load the historical database (and heal legacy records).
	dealStore := store.New(
		filepath.Join(cfg.Store.DataDir, cfg.Store.DatabaseFile),
		filepath.Join(cfg.Store.DataDir, cfg.Store.MetadataFile),
	)
	if err := dealStore.Load(); err != nil {
		logger.Fatal("failed to load deal store: %v", err)
	}
	meta := dealStore.Metadata()
	logger.Info("deal store loaded: %d deals, %s to %s",
		meta.TotalDeals, meta.DateRange.Start, meta.DateRange.End)

	// Upstream sources.
	fetchers := []fetcher.Fetcher{
		fetcher.NewNSEClient(cfg.Sources.NSEBaseURL, cfg.Sources.Timeout, cfg.Sources.MaxRetries),
		fetcher.NewBSEDownloadDir(cfg.Sources.BSEDownloadDir),
	}

	// Quote/document cache service, constructed here and handed to the
	// serving layer so there is no process-wide cache singleton.
	quoteService := quotes.New(
		quotes.NewBSEQuoteClient(cfg.Sources.BSEQuoteURL, cfg.Sources.Timeout),
		quotes.Config{
			QuoteCapacity:    cfg.Cache.QuoteCapacity,
			QuoteTTL:         cfg.Cache.QuoteTTL,
			DocumentCapacity: cfg.Cache.DocumentCapacity,
			DocumentTTL:      cfg.Cache.DocumentTTL,
		},
	)

	// Optional ingest reports.
	var reporter scheduler.Reporter
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("failed to initialize telegram client: %v", err)
		}
		reporter = client
		logger.Info("telegram ingest reports enabled")
	} else {
		logger.Debug("telegram ingest reports disabled")
	}

	sched, err := scheduler.New(
		scheduler.Config{
			DailyAt:           cfg.Scheduler.DailyAt,
			MinRetriggerEvery: cfg.Scheduler.MinRetriggerEvery,
		},
		fetchers,
		dealStore,
		reporter,
	)
	if err != nil {
		logger.Fatal("failed to initialize scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sched.Start(ctx)
	logger.Info("scheduler started, daily trigger at %s", cfg.Scheduler.DailyAt)

	if cfg.Scheduler.RunOnStartup {
		if report, err := sched.RunNow(ctx); err != nil {
			logger.Warn("startup ingest skipped: %v", err)
		} else {
			logger.Info("startup ingest run %s added %d deals", report.RunID, report.Added)
		}
	}

	<-sigChan
	logger.Info("shutdown signal received, stopping scheduler")
	cancel()
	sched.Stop()

	qs, ds := quoteService.Stats()
	logger.Info("quote cache: %d entries, %d hits, %d misses; document cache: %d entries",
		qs.Size, qs.Hits, qs.Misses, ds.Size)
	logger.Info("shutdown complete")
}
