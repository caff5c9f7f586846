package fetcher

import (
	"fmt"
	"strconv"
)

// stringifyRow flattens a loosely decoded JSON row into the string map the
// normalizer consumes. JSON numbers are rendered without exponent notation
// so quantities like 1000000 survive the round trip.
func stringifyRow(row map[string]interface{}) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case nil:
			// skip
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			out[k] = fmt.Sprintf("%v", t)
		}
	}
	return out
}
