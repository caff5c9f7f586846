package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/models"
	"github.com/speedy-finance/bulkdeals/internal/normalize"
)

// BSEQuoteClient fetches live quotes from the BSE quote API.
type BSEQuoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBSEQuoteClient creates a quote client for the given base URL.
func NewBSEQuoteClient(baseURL string, timeout time.Duration) *BSEQuoteClient {
	return &BSEQuoteClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// quotePayload is the upstream quote document. Prices arrive as
// thousands-separated strings.
type quotePayload struct {
	ScripCode     string `json:"scripCode"`
	SecurityName  string `json:"companyName"`
	CurrentValue  string `json:"currentValue"`
	Change        string `json:"change"`
	PercentChange string `json:"pChange"`
}

// FetchQuote implements QuoteFetcher.
func (c *BSEQuoteClient) FetchQuote(ctx context.Context, scripCode string) (models.Quote, error) {
	url := fmt.Sprintf("%s/api/quote/%s", c.baseURL, scripCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("quote endpoint returned %d", resp.StatusCode)
	}

	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Quote{}, fmt.Errorf("decode quote: %w", err)
	}

	return models.Quote{
		ScripCode:     payload.ScripCode,
		SecurityName:  payload.SecurityName,
		LastPrice:     normalize.ParseFloat(payload.CurrentValue),
		Change:        normalize.ParseFloat(payload.Change),
		PercentChange: normalize.ParseFloat(payload.PercentChange),
		FetchedAt:     time.Now(),
	}, nil
}
