// Package scheduler drives the periodic fetch-and-merge cycle. A run fires
// once a day at a fixed wall-clock time (the exchanges publish their deal
// sheets shortly after market close) and can also be triggered on demand.
// Runs for the same logical fetch are guarded against overlap: a fetch can
// outlast the trigger check, so a second trigger while one is in flight is
// skipped, as is any trigger inside the minimum re-trigger interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/speedy-finance/bulkdeals/internal/fetcher"
	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/models"
)

// DealSink receives fetched batches; satisfied by *store.Store.
type DealSink interface {
	AddDeals(batch []models.Deal) (int, error)
}

// Reporter receives the summary of a completed run; satisfied by
// *telegram.Client. Optional.
type Reporter interface {
	SendReport(r Report) error
}

// SourceResult is the per-fetcher outcome within a run.
type SourceResult struct {
	Source  string
	Fetched int
	Err     error
}

// Report summarizes one ingest run.
type Report struct {
	RunID    string
	Trigger  string // "daily" or "manual"
	Date     string
	Sources  []SourceResult
	Added    int
	StoreErr error
	Duration time.Duration
}

// Failed reports whether anything in the run went wrong.
func (r *Report) Failed() bool {
	if r.StoreErr != nil {
		return true
	}
	for _, s := range r.Sources {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Config holds scheduler behavior configuration.
type Config struct {
	DailyAt           string        // "HH:MM" local wall-clock trigger
	MinRetriggerEvery time.Duration // floor between two runs (default 5m)
}

// Scheduler owns the ingest loop.
type Scheduler struct {
	cfg      Config
	fetchers []fetcher.Fetcher
	sink     DealSink
	reporter Reporter

	mu       sync.Mutex
	running  bool
	lastRun  time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time // injectable clock for tests
}

// New creates a scheduler merging the given fetchers into sink. reporter may
// be nil.
func New(cfg Config, fetchers []fetcher.Fetcher, sink DealSink, reporter Reporter) (*Scheduler, error) {
	if _, err := parseDailyAt(cfg.DailyAt); err != nil {
		return nil, err
	}
	if cfg.MinRetriggerEvery <= 0 {
		cfg.MinRetriggerEvery = 5 * time.Minute
	}
	return &Scheduler{
		cfg:      cfg,
		fetchers: fetchers,
		sink:     sink,
		reporter: reporter,
		now:      time.Now,
	}, nil
}

// Start launches the daily trigger loop. It returns immediately; Stop waits
// for any in-flight run.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the loop and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunNow triggers an on-demand run, subject to the same overlap and
// re-trigger guards as the daily trigger. When a run is skipped the returned
// report says so via an error and no fetch happens.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	return s.run(ctx, "manual")
}

func (s *Scheduler) loop(ctx context.Context) {
	logger.Info("scheduler: daily trigger at %s, min re-trigger interval %s",
		s.cfg.DailyAt, s.cfg.MinRetriggerEvery)

	for {
		wait := s.untilNextFire()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if report, err := s.run(ctx, "daily"); err != nil {
			logger.Warn("scheduler: daily run skipped: %v", err)
		} else if report.Failed() {
			logger.Warn("scheduler: run %s completed with errors", report.RunID)
		}
	}
}

// untilNextFire computes how long to sleep until the next wall-clock fire.
func (s *Scheduler) untilNextFire() time.Duration {
	fire, _ := parseDailyAt(s.cfg.DailyAt)
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), fire.hour, fire.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// run executes one fetch-and-merge cycle for today's date.
func (s *Scheduler) run(ctx context.Context, trigger string) (Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Report{}, fmt.Errorf("ingest already in progress")
	}
	if since := s.now().Sub(s.lastRun); !s.lastRun.IsZero() && since < s.cfg.MinRetriggerEvery {
		s.mu.Unlock()
		return Report{}, fmt.Errorf("last run was %s ago, minimum re-trigger interval is %s",
			since.Round(time.Second), s.cfg.MinRetriggerEvery)
	}
	s.running = true
	s.lastRun = s.now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := s.now()
	report := Report{
		RunID:   uuid.New().String(),
		Trigger: trigger,
		Date:    start.Format("2006-01-02"),
	}
	logger.Info("scheduler: run %s (%s) for %s", report.RunID, trigger, report.Date)

	var batch []models.Deal
	for _, f := range s.fetchers {
		deals, err := f.Fetch(ctx, report.Date)
		report.Sources = append(report.Sources, SourceResult{
			Source:  f.Name(),
			Fetched: len(deals),
			Err:     err,
		})
		if err != nil {
			// A broken source never fails the whole run.
			logger.Error("scheduler: fetch from %s failed: %v", f.Name(), err)
			continue
		}
		logger.Info("scheduler: fetched %d deals from %s", len(deals), f.Name())
		batch = append(batch, deals...)
	}

	added, err := s.sink.AddDeals(batch)
	report.Added = added
	report.StoreErr = err
	if err != nil {
		// Memory and disk may have diverged; surfaced for retry, not fatal.
		logger.Error("scheduler: merge persisted with error: %v", err)
	}

	report.Duration = s.now().Sub(start)
	logger.Info("scheduler: run %s added %d of %d fetched deals in %s",
		report.RunID, added, len(batch), report.Duration.Round(time.Millisecond))

	if s.reporter != nil {
		if err := s.reporter.SendReport(report); err != nil {
			logger.Warn("scheduler: report delivery failed: %v", err)
		}
	}

	return report, nil
}

type fireTime struct {
	hour   int
	minute int
}

func parseDailyAt(v string) (fireTime, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return fireTime{}, fmt.Errorf("invalid daily_at %q: want HH:MM", v)
	}
	return fireTime{hour: t.Hour(), minute: t.Minute()}, nil
}
