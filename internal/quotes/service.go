// Package quotes serves short-lived market quotes and parsed-document text
// through the TTL cache, so repeated lookups for the same scrip or document
// within the cache window never hit the upstream twice.
package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/cache"
	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/models"
)

// QuoteFetcher obtains a live quote from the upstream exchange API.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, scripCode string) (models.Quote, error)
}

// Config bounds the two caches owned by the service.
type Config struct {
	QuoteCapacity    int
	QuoteTTL         time.Duration
	DocumentCapacity int
	DocumentTTL      time.Duration
}

// Service is the caching front for quote and document lookups.
type Service struct {
	fetcher   QuoteFetcher
	quotes    *cache.Cache[models.Quote]
	documents *cache.Cache[string]
}

// New creates a quote service over the given upstream fetcher.
func New(fetcher QuoteFetcher, cfg Config) *Service {
	return &Service{
		fetcher:   fetcher,
		quotes:    cache.New[models.Quote](cfg.QuoteCapacity, cfg.QuoteTTL),
		documents: cache.New[string](cfg.DocumentCapacity, cfg.DocumentTTL),
	}
}

// Quote returns the quote for scripCode, from cache when fresh. Upstream
// errors are returned, never cached.
func (s *Service) Quote(ctx context.Context, scripCode string) (models.Quote, error) {
	if q, ok := s.quotes.Get(scripCode); ok {
		return q, nil
	}

	q, err := s.fetcher.FetchQuote(ctx, scripCode)
	if err != nil {
		return models.Quote{}, fmt.Errorf("fetch quote for %s: %w", scripCode, err)
	}

	s.quotes.Set(scripCode, q)
	return q, nil
}

// Document returns the extraction result for the document at url, running
// extract only on a cache miss. Extraction itself (PDF text/table parsing)
// is the caller's concern; the service only memoizes its output, keyed by
// the document URL.
func (s *Service) Document(ctx context.Context, url string, extract func(ctx context.Context, url string) (string, error)) (string, error) {
	if text, ok := s.documents.Get(url); ok {
		return text, nil
	}

	text, err := extract(ctx, url)
	if err != nil {
		return "", fmt.Errorf("extract document %s: %w", url, err)
	}

	s.documents.Set(url, text)
	logger.Debug("quotes: cached extraction for %s (%d chars)", url, len(text))
	return text, nil
}

// Stats returns both caches' counters for diagnostics.
func (s *Service) Stats() (quotes cache.Stats, documents cache.Stats) {
	return s.quotes.Stats(), s.documents.Stats()
}
