package table

// value.go converts and compares cell values.
//
// Cells arrive from many places: the CSV codec (always strings), JSON
// recordsets (float64, bool, nil), Postgres imports (ints, decimals, times)
// and caller code. These helpers give every consumer one consistent view:
//
//   - String renders any cell the way the codec and the filter see it
//   - Float reports the numeric value of Go number types
//   - ParseNumber reads user-formatted numbers ("$1,234.50", "(12)")
//   - Compare orders two cells for sorting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a plain numeric literal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// String renders a cell as text. nil becomes "", bools become "true" or
// "false" and numbers use their shortest round-tripping form.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return strconv.FormatInt(toInt64(x), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(toUint64(x), 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// Float returns the value of a Go number cell. Strings are not parsed.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case int, int8, int16, int32, int64:
		return float64(toInt64(x)), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(toUint64(x)), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case decimal.Decimal:
		return x.InexactFloat64(), true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is a Go number cell.
func IsNumber(v any) bool {
	_, ok := Float(v)
	return ok
}

// ParseNumber reads a numeric value out of a cell. Number cells convert
// directly. Strings may carry currency symbols, thousands separators and
// the accounting negative form "(123.45)". Empty or non-numeric input
// reports false.
func ParseNumber(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil, bool:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case string:
		return parseNumericString(x)
	}
	if f, ok := Float(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}
	return parseNumericString(String(v))
}

func parseNumericString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Compare orders two cells, returning -1, 0 or +1.
//
// nil sorts before every other value. Two numbers compare numerically, as
// does a number paired with a string that parses as a plain number. Two
// bools order false before true. Everything else compares by String form,
// byte by byte.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	af, aNum := Float(a)
	bf, bNum := Float(b)
	switch {
	case aNum && bNum:
		return compareFloats(af, bf)
	case aNum:
		if f, err := strconv.ParseFloat(strings.TrimSpace(String(b)), 64); err == nil {
			return compareFloats(af, f)
		}
	case bNum:
		if f, err := strconv.ParseFloat(strings.TrimSpace(String(a)), 64); err == nil {
			return compareFloats(f, bf)
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(String(a), String(b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// typedKey is a map key that keeps nil apart from the empty string.
func typedKey(v any) string {
	if v == nil {
		return "\x00nil"
	}
	return "s" + String(v)
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	}
	return 0
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	}
	return 0
}
