package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/models"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
)

// BSEDownloadDir reads the dated JSON documents dropped by the external BSE
// report scraper into a download directory. The scraper itself (form
// postback simulation against the exchange site) lives outside this service;
// this fetcher only consumes its output files.
type BSEDownloadDir struct {
	dir string
}

// NewBSEDownloadDir creates a fetcher over the scraper's download directory.
func NewBSEDownloadDir(dir string) *BSEDownloadDir {
	return &BSEDownloadDir{dir: dir}
}

// Name implements Fetcher.
func (f *BSEDownloadDir) Name() string { return "bse-download" }

// downloadDoc is the document format the scraper writes, one file per date.
type downloadDoc struct {
	Date         string                   `json:"date"`
	Count        int                      `json:"count"`
	DownloadedAt string                   `json:"downloaded_at"`
	Deals        []map[string]interface{} `json:"deals"`
}

// Fetch implements Fetcher. A missing file for the date falls back to
// latest.json, which the scraper overwrites on every run; the fallback only
// counts when its document date matches the requested date. Nothing on disk
// means the scraper has not run (or the exchange reported nothing), which is
// an empty batch, not an error. A file that exists but cannot be parsed is
// an error.
func (f *BSEDownloadDir) Fetch(ctx context.Context, date string) ([]models.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.dir, fmt.Sprintf("bulk_deals_%s.json", date))
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		path = filepath.Join(f.dir, "latest.json")
		raw, err = os.ReadFile(path)
	}
	if os.IsNotExist(err) {
		logger.Debug("bse-download: no document for %s", date)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bse download %s: %w", path, err)
	}

	var doc downloadDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode bse download %s: %w", path, err)
	}

	// A stale latest.json describes an earlier trading day.
	if filepath.Base(path) == "latest.json" && normalize.Date(doc.Date) != date {
		logger.Debug("bse-download: latest.json is for %s, wanted %s", doc.Date, date)
		return nil, nil
	}

	deals := make([]models.Deal, 0, len(doc.Deals))
	for _, row := range doc.Deals {
		d := normalize.Record(stringifyRow(row), normalize.BSEScrapeSource)
		if d.Date == "" {
			// Older scraper versions omitted the per-row date.
			d.Date = normalize.Date(doc.Date)
			if d.Date == "" {
				d.Date = date
			}
		}
		deals = append(deals, d)
	}

	return deals, nil
}
