package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/fetcher"
	"github.com/speedy-finance/bulkdeals/internal/models"
)

type fakeFetcher struct {
	name  string
	deals []models.Deal
	err   error
	block chan struct{} // when non-nil, Fetch waits until closed
	calls int
	mu    sync.Mutex
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, date string) ([]models.Deal, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.deals, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]models.Deal
	added   int
	err     error
}

func (s *fakeSink) AddDeals(batch []models.Deal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	if s.err != nil {
		return s.added, s.err
	}
	return len(batch), nil
}

func testDeal(scrip string) models.Deal {
	return models.Deal{
		Date:      "2025-12-16",
		ScripCode: scrip,
		Side:      models.SideBuy,
		Exchange:  models.ExchangeNSE,
	}
}

func newTestScheduler(t *testing.T, fetchers []fetcher.Fetcher, sink DealSink) *Scheduler {
	t.Helper()
	s, err := New(Config{DailyAt: "18:02", MinRetriggerEvery: 5 * time.Minute}, fetchers, sink, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunNowMergesAllSources(t *testing.T) {
	nse := &fakeFetcher{name: "nse-api", deals: []models.Deal{testDeal("A"), testDeal("B")}}
	bse := &fakeFetcher{name: "bse-download", deals: []models.Deal{testDeal("C")}}
	sink := &fakeSink{}

	s := newTestScheduler(t, []fetcher.Fetcher{nse, bse}, sink)

	report, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	if report.Added != 3 {
		t.Errorf("Added = %d, want 3", report.Added)
	}
	if report.Trigger != "manual" {
		t.Errorf("Trigger = %q, want manual", report.Trigger)
	}
	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if len(report.Sources) != 2 {
		t.Fatalf("Sources = %d entries, want 2", len(report.Sources))
	}
	if report.Sources[0].Fetched != 2 || report.Sources[1].Fetched != 1 {
		t.Errorf("per-source counts = %+v", report.Sources)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 3 {
		t.Errorf("sink received %+v, want one batch of 3", sink.batches)
	}
}

func TestRunContinuesPastBrokenSource(t *testing.T) {
	broken := &fakeFetcher{name: "nse-api", err: errors.New("upstream down")}
	ok := &fakeFetcher{name: "bse-download", deals: []models.Deal{testDeal("C")}}
	sink := &fakeSink{}

	s := newTestScheduler(t, []fetcher.Fetcher{broken, ok}, sink)

	report, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	if !report.Failed() {
		t.Error("report should record the source failure")
	}
	if report.Sources[0].Err == nil {
		t.Error("broken source's error should be in the report")
	}
	if report.Added != 1 {
		t.Errorf("Added = %d, want 1 from the healthy source", report.Added)
	}
}

func TestRunSurfacesPersistError(t *testing.T) {
	f := &fakeFetcher{name: "nse-api", deals: []models.Deal{testDeal("A")}}
	sink := &fakeSink{added: 1, err: errors.New("disk full")}

	s := newTestScheduler(t, []fetcher.Fetcher{f}, sink)

	report, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow itself should not fail: %v", err)
	}
	if report.StoreErr == nil {
		t.Error("persist failure should be recorded in the report")
	}
	if !report.Failed() {
		t.Error("report should count a persist failure as a failed run")
	}
}

func TestOverlappingRunsAreSkipped(t *testing.T) {
	release := make(chan struct{})
	slow := &fakeFetcher{name: "nse-api", block: release}
	sink := &fakeSink{}

	s := newTestScheduler(t, []fetcher.Fetcher{slow}, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.RunNow(context.Background()); err != nil {
			t.Errorf("first run failed: %v", err)
		}
	}()

	// Wait until the first run is inside its fetch.
	for {
		slow.mu.Lock()
		started := slow.calls > 0
		slow.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.RunNow(context.Background()); err == nil {
		t.Error("second run should be skipped while the first is in flight")
	}

	close(release)
	<-done
}

func TestMinRetriggerInterval(t *testing.T) {
	f := &fakeFetcher{name: "nse-api"}
	sink := &fakeSink{}
	s := newTestScheduler(t, []fetcher.Fetcher{f}, sink)

	clock := time.Date(2025, 12, 16, 18, 2, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if _, err := s.RunNow(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Two minutes later: inside the 5 minute floor.
	clock = clock.Add(2 * time.Minute)
	if _, err := s.RunNow(context.Background()); err == nil {
		t.Error("run inside the re-trigger floor should be skipped")
	}

	// Six minutes later: allowed again.
	clock = clock.Add(4 * time.Minute)
	if _, err := s.RunNow(context.Background()); err != nil {
		t.Errorf("run after the floor should proceed, got %v", err)
	}
}

func TestUntilNextFire(t *testing.T) {
	s := newTestScheduler(t, nil, &fakeSink{})

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{
			name: "before today's fire",
			now:  time.Date(2025, 12, 16, 17, 2, 0, 0, time.UTC),
			want: time.Hour,
		},
		{
			name: "after today's fire waits for tomorrow",
			now:  time.Date(2025, 12, 16, 18, 2, 30, 0, time.UTC),
			want: 24*time.Hour - 30*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.now = func() time.Time { return tt.now }
			if got := s.untilNextFire(); got != tt.want {
				t.Errorf("untilNextFire() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewRejectsBadDailyAt(t *testing.T) {
	if _, err := New(Config{DailyAt: "6pm"}, nil, &fakeSink{}, nil); err == nil {
		t.Error("New should reject a malformed daily_at")
	}
}
