// Package normalize converts heterogeneous raw price representations into a
// canonical display/numeric pair.
package normalize

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Value is a normalized price: a fixed-format display string and its numeric
// value.
type Value struct {
	Display string
	Num     float64
}

// Normalize accepts either a pre-formatted currency string or a raw number
// and returns the canonical pair. The boolean is false when the input cannot
// be parsed; callers treat that as "asset unavailable this cycle".
func Normalize(raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case nil:
		return Value{}, false
	case string:
		return NormalizeString(v)
	case float64:
		return NormalizeFloat(v), true
	case float32:
		return NormalizeFloat(float64(v)), true
	case int:
		return NormalizeFloat(float64(v)), true
	case int64:
		return NormalizeFloat(float64(v)), true
	default:
		return Value{}, false
	}
}

// NormalizeString parses a currency-formatted string, tolerating a dollar
// sign and thousands separators.
func NormalizeString(s string) (Value, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Value{}, false
	}
	return NormalizeFloat(num), true
}

// NormalizeFloat formats a numeric price for display: two decimal places,
// comma thousands separators, ASCII digits.
func NormalizeFloat(num float64) Value {
	return Value{
		Display: "$" + humanize.FormatFloat("#,###.##", num),
		Num:     num,
	}
}
