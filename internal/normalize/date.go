// Package normalize canonicalizes the raw deal rows handed over by the
// source fetchers. The exchanges publish the same data with different column
// names, date formats and buy/sell encodings depending on the channel (JSON
// API, CSV download, scraped report table), and this package maps all of them
// onto the single schema in internal/models.
//
// Everything here is lossy-but-total on purpose: a malformed field is zeroed
// or passed through rather than failing the row, because ingest runs
// unattended and must never drop a whole batch over one bad cell.
package normalize

import (
	"regexp"
	"strings"
	"time"
)

// canonicalDate is the storage form for all deal dates.
const canonicalDate = "2006-01-02"

// dateFormats are the source-native layouts seen in NSE/BSE files, tried in
// order. Day-first layouts come before year-first ones because that is what
// the exchanges actually emit.
var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"2-Jan-2006",
	"2-January-2006",
	"2006/01/02",
	"2006-01-02",
}

var (
	canonicalRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	looseDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
)

// Date canonicalizes a raw date string to YYYY-MM-DD. Already-canonical input
// is returned unchanged. Unparseable input is also returned unchanged: the
// caller must treat it as low-confidence data, not an error. Date is pure and
// is applied both on ingest and when healing older persisted records.
func Date(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if canonicalRe.MatchString(s) {
		return s
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(canonicalDate)
		}
	}

	// Permissive fallback for D/M/YYYY variants with single-digit fields,
	// e.g. "1/2/2025" or "16-3-2025".
	if m := looseDateRe.FindStringSubmatch(s); m != nil {
		day := int(ParseInt(m[1]))
		month := int(ParseInt(m[2]))
		year := int(ParseInt(m[3]))
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date silently rolls invalid components over; reject those.
		if t.Year() == year && int(t.Month()) == month && t.Day() == day {
			return t.Format(canonicalDate)
		}
	}

	return s
}
