package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/models"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
)

const largeDealPath = "/api/snapshot-capital-market-largedeal"

// NSEClient fetches bulk and block deals from the NSE large-deal snapshot
// API. The endpoint only serves requests that carry the site's session
// cookies, so every fetch warms up with a GET against the base URL first.
type NSEClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewNSEClient creates a client for the given NSE base URL.
func NewNSEClient(baseURL string, timeout time.Duration, maxRetries int) *NSEClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		maxRetries: maxRetries,
	}
}

// Name implements Fetcher.
func (c *NSEClient) Name() string { return "nse-api" }

// largeDealResponse is the upstream payload. Row fields arrive as a mix of
// strings and numbers depending on the column, so rows are decoded loosely
// and stringified before normalization.
type largeDealResponse struct {
	BulkDeals  []map[string]interface{} `json:"BULK_DEALS_DATA"`
	BlockDeals []map[string]interface{} `json:"BLOCK_DEALS_DATA"`
}

// Fetch implements Fetcher. The snapshot endpoint always returns the current
// day's deals; rows for other dates are filtered out so a late fetch cannot
// smear yesterday's deals onto today.
func (c *NSEClient) Fetch(ctx context.Context, date string) ([]models.Deal, error) {
	if err := c.warmup(ctx); err != nil {
		return nil, fmt.Errorf("nse cookie warmup: %w", err)
	}

	resp, err := c.doRequest(ctx, c.baseURL+largeDealPath)
	if err != nil {
		return nil, fmt.Errorf("fetch nse large deals: %w", err)
	}
	defer resp.Body.Close()

	var payload largeDealResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode nse large deals: %w", err)
	}

	var deals []models.Deal
	appendRows := func(rows []map[string]interface{}, dealType string) {
		for _, row := range rows {
			d := normalize.Record(stringifyRow(row), normalize.NSEAPISource)
			d.Type = dealType
			if date != "" && d.Date != "" && d.Date != date {
				continue
			}
			deals = append(deals, d)
		}
	}
	appendRows(payload.BulkDeals, models.TypeBulk)
	appendRows(payload.BlockDeals, models.TypeBlock)

	return deals, nil
}

func (c *NSEClient) warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// doRequest performs a GET with retry and backoff on transport errors and
// 5xx responses.
func (c *NSEClient) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setBrowserHeaders(req)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Referer", c.baseURL+"/market-data/bulk-deal")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !sleepCtx(ctx, time.Duration(i+1)*time.Second) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if !sleepCtx(ctx, time.Duration(i+1)*time.Second) {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// setBrowserHeaders mimics a regular browser session; the NSE site rejects
// requests without them.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
