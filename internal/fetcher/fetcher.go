// Package fetcher obtains raw deal rows from the upstream sources and hands
// them to the store as canonical records. Each source (the NSE large-deal
// API, the BSE scraper's download directory, historical CSV exports) is a
// Fetcher implementation, so the scheduler and the backfill tooling never
// depend on a specific source's mechanics.
package fetcher

import (
	"context"

	"github.com/speedy-finance/bulkdeals/internal/models"
)

// Fetcher fetches the deals reported for one calendar date. The date is in
// canonical YYYY-MM-DD form. An empty result with a nil error means the
// source reported nothing for that date, which is normal on holidays.
type Fetcher interface {
	Fetch(ctx context.Context, date string) ([]models.Deal, error)
	Name() string
}
