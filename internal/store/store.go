// Package store holds the full historical set of bulk/block deals and is the
// single point where upstream batches are deduplicated and merged. Deals live
// in memory in arrival order with a date index alongside, and both are
// persisted together as one JSON document next to a separate metadata
// document.
//
// Writes only happen on the (serialized) ingest path; reads may run
// concurrently with each other, so the store is guarded by a read-write lock.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/models"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
)

// ErrQueryTooShort is returned by Search for queries under two characters,
// distinct from an empty result set.
var ErrQueryTooShort = errors.New("search query must be at least 2 characters")

// ErrPersist wraps a failure to write the store or metadata file. When it is
// returned the in-memory state has already been updated, so readers see the
// new deals; the caller must retry persistence or accept that memory and
// disk have diverged.
var ErrPersist = errors.New("persist deals database")

// database is the on-disk document layout, shared with the original JSON
// database this service inherited.
type database struct {
	Deals  []models.Deal    `json:"deals"`
	ByDate map[string][]int `json:"by_date"`
}

// Store is the deduplicating deal store.
type Store struct {
	mu     sync.RWMutex
	deals  []models.Deal
	byDate map[string][]int
	meta   models.Metadata

	databaseFile string
	metadataFile string

	now func() time.Time // injectable clock for tests
}

// New creates a store persisting to the given database and metadata files.
// Call Load before first use to pick up existing data.
func New(databaseFile, metadataFile string) *Store {
	return &Store{
		byDate:       make(map[string][]int),
		databaseFile: databaseFile,
		metadataFile: metadataFile,
		now:          time.Now,
	}
}

// Load restores the store from disk. A missing database file means an empty
// store, not an error. Records written by older versions are healed in place
// (dates, exchange and side re-normalized) and the date index is rebuilt;
// metadata is always re-derived from the deal sequence rather than trusted
// from the metadata file, which covers a crash between the two writes.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale temp files from a crashed write are garbage.
	for _, path := range []string{s.databaseFile, s.metadataFile} {
		if _, err := os.Stat(path + ".tmp"); err == nil {
			_ = os.Remove(path + ".tmp")
		}
	}

	raw, err := os.ReadFile(s.databaseFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read deals database: %w", err)
	}

	var db database
	if err := json.Unmarshal(raw, &db); err != nil {
		return fmt.Errorf("decode deals database: %w", err)
	}

	healed := s.healRecords(db.Deals)
	s.deals = db.Deals
	s.rebuildIndex()
	s.recomputeMetadata()

	if healed > 0 {
		logger.Info("store: healed %d legacy records on load", healed)
		if err := s.persist(); err != nil {
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}

	return nil
}

// healRecords re-normalizes date, exchange and side on records loaded from
// disk and returns how many were changed.
func (s *Store) healRecords(deals []models.Deal) int {
	healed := 0
	for i := range deals {
		d := &deals[i]
		changed := false

		if norm := normalize.Date(d.Date); norm != d.Date {
			d.Date = norm
			changed = true
		}
		if up := strings.ToUpper(d.Exchange); up != d.Exchange {
			d.Exchange = up
			changed = true
		}
		if up := strings.ToUpper(d.Side); up != d.Side {
			d.Side = up
			changed = true
		}
		if changed {
			healed++
		}
	}
	return healed
}

// AddDeals merges a batch into the store and returns how many deals were
// actually added. Records are re-normalized defensively even when the caller
// already did, duplicates (against the store and within the batch) are
// skipped, and if anything was added the database and metadata are persisted
// together. A batch with nothing new writes nothing.
//
// On a persistence failure the in-memory store keeps the new deals and the
// returned error wraps ErrPersist.
func (s *Store) AddDeals(batch []models.Deal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Rebuilding the key set per call is a linear scan, which is fine for
	// infrequent scheduled batches at the store's current scale.
	seen := make(map[string]struct{}, len(s.deals))
	for i := range s.deals {
		seen[s.deals[i].Key()] = struct{}{}
	}

	added := 0
	for _, deal := range batch {
		deal.Date = normalize.Date(deal.Date)
		deal.Exchange = strings.ToUpper(deal.Exchange)
		deal.Side = strings.ToUpper(deal.Side)

		key := deal.Key()
		if _, dup := seen[key]; dup {
			continue
		}

		s.deals = append(s.deals, deal)
		s.byDate[deal.Date] = append(s.byDate[deal.Date], len(s.deals)-1)
		seen[key] = struct{}{}
		added++
	}

	if added == 0 {
		return 0, nil
	}

	s.recomputeMetadata()
	if err := s.persist(); err != nil {
		return added, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	logger.Info("store: added %d new deals (batch of %d), total %d", added, len(batch), len(s.deals))
	return added, nil
}

// DealsByDateRange returns all deals with start <= date <= end in insertion
// order. Both bounds are normalized, so callers may pass source-native forms.
func (s *Store) DealsByDateRange(start, end string) []models.Deal {
	startNorm := normalize.Date(start)
	endNorm := normalize.Date(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Deal
	for i := range s.deals {
		if d := s.deals[i].Date; d >= startNorm && d <= endNorm {
			result = append(result, s.deals[i])
		}
	}
	return result
}

// AllDeals returns a copy of the full store in insertion order.
func (s *Store) AllDeals() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Deal, len(s.deals))
	copy(out, s.deals)
	return out
}

// Search returns up to limit deals whose security or client name contains
// query, case-insensitively, in insertion order. A limit <= 0 means no
// limit. Queries under two characters fail with ErrQueryTooShort.
func (s *Store) Search(query string, limit int) ([]models.Deal, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < 2 {
		return nil, ErrQueryTooShort
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Deal
	for i := range s.deals {
		if limit > 0 && len(result) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(s.deals[i].SecurityName), q) ||
			strings.Contains(strings.ToLower(s.deals[i].ClientName), q) {
			result = append(result, s.deals[i])
		}
	}
	return result, nil
}

// Stats computes aggregate figures over the full store.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.Stats{
		TotalDeals: len(s.deals),
		Exchanges:  make(map[string]int),
	}

	for i := range s.deals {
		d := &s.deals[i]
		stats.Exchanges[d.Exchange]++
		if d.Side == models.SideBuy {
			stats.BuyDeals++
		} else {
			stats.SellDeals++
		}
		stats.TotalValue += d.Value()
	}

	stats.DateRange = s.dateRange()
	return stats
}

// Metadata returns the derived metadata for the current store contents.
func (s *Store) Metadata() models.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta := s.meta
	meta.Exchanges = make(map[string]int, len(s.meta.Exchanges))
	for k, v := range s.meta.Exchanges {
		meta.Exchanges[k] = v
	}
	return meta
}

// Len returns the number of stored deals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deals)
}

// rebuildIndex reconstructs byDate from the deal sequence. Caller holds the
// write lock.
func (s *Store) rebuildIndex() {
	s.byDate = make(map[string][]int)
	for i := range s.deals {
		s.byDate[s.deals[i].Date] = append(s.byDate[s.deals[i].Date], i)
	}
}

// recomputeMetadata re-derives metadata from the deal sequence. Caller holds
// the write lock.
func (s *Store) recomputeMetadata() {
	meta := models.Metadata{
		LastUpdated: s.now(),
		TotalDeals:  len(s.deals),
		Exchanges:   make(map[string]int),
		UniqueDates: len(s.byDate),
	}
	for i := range s.deals {
		meta.Exchanges[s.deals[i].Exchange]++
	}
	meta.DateRange = s.dateRange()
	s.meta = meta
}

// dateRange scans the date index for the min and max date. Caller holds at
// least the read lock.
func (s *Store) dateRange() models.DateRange {
	if len(s.byDate) == 0 {
		return models.DateRange{}
	}
	dates := make([]string, 0, len(s.byDate))
	for d := range s.byDate {
		if d != "" {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return models.DateRange{}
	}
	sort.Strings(dates)
	return models.DateRange{Start: dates[0], End: dates[len(dates)-1]}
}

// persist writes the database and metadata documents. Each file is written
// to a temp path and renamed into place so a crash never leaves a partial
// document, and the database goes first so the metadata on disk never
// describes deals that are not there. Caller holds the write lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.databaseFile), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	db := database{Deals: s.deals, ByDate: s.byDate}
	if db.Deals == nil {
		db.Deals = []models.Deal{}
	}
	if err := writeJSON(s.databaseFile, db); err != nil {
		return fmt.Errorf("write deals database: %w", err)
	}

	if err := writeJSON(s.metadataFile, s.meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
