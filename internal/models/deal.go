// Package models defines the core domain entities for the bulk-deals service.
//
// Terminology (matching the exchanges' own naming):
//   - Bulk deal: a trade crossing the exchange's size threshold, reported on a
//     separate daily sheet rather than the regular tape.
//   - Block deal: a negotiated large trade executed in the dedicated block window.
//   - Scrip code: the exchange-assigned identifier for a tradable security.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Exchange tags. Stored uppercase; normalization enforces this on ingest.
const (
	ExchangeNSE = "NSE"
	ExchangeBSE = "BSE"
)

// Deal sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Deal reporting types.
const (
	TypeBulk  = "bulk"
	TypeBlock = "block"
)

// Deal is one reported bulk/block deal line in canonical form.
// JSON field names match the on-disk database document, which predates this
// service and must stay readable by it.
type Deal struct {
	Date         string  `json:"date"` // always YYYY-MM-DD once stored
	ScripCode    string  `json:"scripCode"`
	SecurityName string  `json:"securityName"`
	ClientName   string  `json:"clientName"`
	Side         string  `json:"side"` // BUY or SELL
	Quantity     int64   `json:"quantity"`
	Price        float64 `json:"price"`
	Type         string  `json:"type"` // bulk or block
	Exchange     string  `json:"exchange"`
	Remarks      string  `json:"remarks,omitempty"`
}

// Key returns the identity key used for deduplication. Two deals with equal
// keys are treated as the same reported trade. This deliberately cannot tell
// apart two distinct same-day trades between the same client, security and
// side; the exchanges' daily sheets have the same ambiguity.
func (d *Deal) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", d.Date, d.ScripCode, d.ClientName, d.Side, d.Exchange)
}

// Value returns the notional value of the deal.
func (d *Deal) Value() float64 {
	return float64(d.Quantity) * d.Price
}

// Validate checks that all deal fields are in canonical form. Ingest never
// rejects a deal on validation grounds (malformed fields are zeroed during
// normalization instead); this is used by the backfill tooling and tests.
func (d *Deal) Validate() error {
	if d.Date == "" {
		return errors.New("deal date must not be empty")
	}
	if _, err := time.Parse("2006-01-02", d.Date); err != nil {
		return errors.New("deal date must be in YYYY-MM-DD form")
	}
	if d.ScripCode == "" {
		return errors.New("scrip code must not be empty")
	}
	if d.Side != SideBuy && d.Side != SideSell {
		return errors.New("side must be BUY or SELL")
	}
	if d.Exchange != ExchangeNSE && d.Exchange != ExchangeBSE {
		return errors.New("exchange must be NSE or BSE")
	}
	if d.Type != "" && d.Type != TypeBulk && d.Type != TypeBlock {
		return errors.New("type must be bulk or block")
	}
	if d.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if d.Price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// DateRange is the inclusive span of dates present in the store.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Metadata describes the persisted database as a whole. It is derived from
// the deal sequence and recomputed after every successful merge; on startup
// it is re-derived rather than trusted from disk.
type Metadata struct {
	LastUpdated time.Time      `json:"last_updated"`
	TotalDeals  int            `json:"total_deals"`
	DateRange   DateRange      `json:"date_range"`
	Exchanges   map[string]int `json:"exchanges"`
	UniqueDates int            `json:"unique_dates"`
}

// Stats are the aggregate figures served by the stats endpoint.
type Stats struct {
	TotalDeals int            `json:"total_deals"`
	Exchanges  map[string]int `json:"exchanges"`
	BuyDeals   int            `json:"buy_deals"`
	SellDeals  int            `json:"sell_deals"`
	TotalValue float64        `json:"total_value"`
	DateRange  DateRange      `json:"date_range"`
}

// Quote is a short-lived market quote held in the quote cache.
type Quote struct {
	ScripCode     string    `json:"scripCode"`
	SecurityName  string    `json:"securityName"`
	LastPrice     float64   `json:"lastPrice"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"pChange"`
	FetchedAt     time.Time `json:"fetchedAt"`
}
