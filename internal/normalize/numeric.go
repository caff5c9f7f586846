package normalize

import (
	"strconv"
	"strings"
)

// ParseInt parses a thousands-separated integer like "1,00,000" or "25 000".
// Any input that still fails to parse after stripping separators yields 0.
func ParseInt(raw string) int64 {
	s := cleanNumber(raw)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some feeds report quantities as "1000.0".
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return n
}

// ParseFloat parses a thousands-separated decimal like "2,45,500.50".
// Unparseable input yields 0.0.
func ParseFloat(raw string) float64 {
	s := cleanNumber(raw)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func cleanNumber(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
