package normalize

import (
	"strings"

	"github.com/speedy-finance/bulkdeals/internal/logger"
	"github.com/speedy-finance/bulkdeals/internal/models"
)

// Source describes how one upstream feed names its columns and encodes the
// buy/sell side. Aliases are ordered: the first name present in a raw row
// wins, mirroring how the historical loaders coped with column renames
// across exchange file revisions.
type Source struct {
	Name string

	// Aliases per canonical field.
	DateFields     []string
	ScripFields    []string
	SecurityFields []string
	ClientFields   []string
	SideFields     []string
	QuantityFields []string
	PriceFields    []string
	RemarksFields  []string
	ExchangeFields []string
	TypeFields     []string

	// BuySynonyms are the side encodings mapped to BUY. Anything else,
	// including an absent side, maps to SELL (see Record).
	BuySynonyms []string

	// Defaults applied when the row carries no exchange/type column.
	DefaultExchange string
	DefaultType     string
}

// NSEAPISource matches rows from the NSE large-deal snapshot endpoint.
var NSEAPISource = Source{
	Name:            "nse-api",
	DateFields:      []string{"date", "mTIMESTAMP"},
	ScripFields:     []string{"symbol"},
	SecurityFields:  []string{"name", "securityName"},
	ClientFields:    []string{"clientName"},
	SideFields:      []string{"buySell"},
	QuantityFields:  []string{"qty", "quantity"},
	PriceFields:     []string{"watp", "price"},
	RemarksFields:   []string{"remarks"},
	BuySynonyms:     []string{"BUY", "B"},
	DefaultExchange: models.ExchangeNSE,
	DefaultType:     models.TypeBulk,
}

// BSEScrapeSource matches rows produced by the BSE report-page scraper and
// its downloaded JSON documents, which went through several field renames.
var BSEScrapeSource = Source{
	Name:            "bse-scrape",
	DateFields:      []string{"date", "deal_date"},
	ScripFields:     []string{"scrip_code", "scripCode"},
	SecurityFields:  []string{"security_name", "securityName"},
	ClientFields:    []string{"client_name", "clientName"},
	SideFields:      []string{"deal_type", "type", "side"},
	QuantityFields:  []string{"quantity"},
	PriceFields:     []string{"trade_price", "price"},
	RemarksFields:   []string{"remarks"},
	BuySynonyms:     []string{"BUY", "B", "P"}, // BSE sheets use P (purchase)
	DefaultExchange: models.ExchangeBSE,
	DefaultType:     models.TypeBulk,
}

// HistoricalCSVSource matches the two-year historical CSV exports used for
// backfill loads.
var HistoricalCSVSource = Source{
	Name:            "historical-csv",
	DateFields:      []string{"Deal Date", "date", "DATE"},
	ScripFields:     []string{"Security Code", "Symbol", "SYMBOL"},
	SecurityFields:  []string{"Company", "Security Name", "SECURITY"},
	ClientFields:    []string{"Client Name", "CLIENT_NAME"},
	SideFields:      []string{"Deal Type", "BUY/SELL"},
	QuantityFields:  []string{"Quantity", "QTY"},
	PriceFields:     []string{"Price", "PRICE"},
	RemarksFields:   []string{"Remarks"},
	ExchangeFields:  []string{"Exchange"},
	BuySynonyms:     []string{"BUY", "B", "P"},
	DefaultExchange: models.ExchangeBSE,
	DefaultType:     models.TypeBulk,
}

// Record maps one raw source row onto the canonical deal schema. It is a pure
// mapping: no I/O, no mutation of the input. Malformed numerics become 0 and
// an unparseable date is carried through as-is for the store to surface.
func Record(raw map[string]string, src Source) models.Deal {
	exchange := strings.ToUpper(pick(raw, src.ExchangeFields))
	if exchange == "" {
		exchange = src.DefaultExchange
	}

	dealType := strings.ToLower(pick(raw, src.TypeFields))
	if dealType != models.TypeBulk && dealType != models.TypeBlock {
		dealType = src.DefaultType
	}

	return models.Deal{
		Date:         Date(pick(raw, src.DateFields)),
		ScripCode:    pick(raw, src.ScripFields),
		SecurityName: pick(raw, src.SecurityFields),
		ClientName:   pick(raw, src.ClientFields),
		Side:         side(pick(raw, src.SideFields), src),
		Quantity:     ParseInt(pick(raw, src.QuantityFields)),
		Price:        ParseFloat(pick(raw, src.PriceFields)),
		Type:         dealType,
		Exchange:     exchange,
		Remarks:      pick(raw, src.RemarksFields),
	}
}

// Side maps a source-native side encoding to BUY or SELL using the source's
// synonym table. Unrecognized encodings default to SELL; that default can
// mask data-quality problems in a feed, so it is logged rather than silent.
func Side(raw string, src Source) string {
	return side(raw, src)
}

func side(raw string, src Source) string {
	enc := strings.ToUpper(strings.TrimSpace(raw))
	for _, syn := range src.BuySynonyms {
		if enc == syn {
			return models.SideBuy
		}
	}
	if enc != "" && enc != models.SideSell && enc != "S" {
		logger.Warn("source %s: unrecognized side encoding %q, defaulting to SELL", src.Name, raw)
	}
	return models.SideSell
}

// pick returns the first alias present and non-empty in the raw row.
func pick(raw map[string]string, aliases []string) string {
	for _, name := range aliases {
		if v, ok := raw[name]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
