package pgsource

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Cell converts a value decoded by pgx into a table cell: a string, an
// int64, a float64, a bool or nil.
//
//	numeric      int64 when integral and in range, float64 otherwise
//	NaN, ±Inf    "NaN", "Infinity", "-Infinity"
//	uuid         canonical string
//	date         "2006-01-02"
//	timestamp    RFC 3339 with nanoseconds
//	bytea        the text when valid UTF-8, else "\x" followed by hex
//	json, arrays compact JSON text
func Cell(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, int64:
		return val
	case float64:
		return floatCell(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return fmt.Sprint(val)
		}
		return int64(val)
	case float32:
		return floatCell(float64(val))
	case pgtype.Numeric:
		return numericCell(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		return timeCell(val)
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return `\x` + hex.EncodeToString(val)
	case pgtype.Text:
		if !val.Valid {
			return nil
		}
		return val.String
	case pgtype.Bool:
		if !val.Valid {
			return nil
		}
		return val.Bool
	case pgtype.Date:
		if !val.Valid {
			return nil
		}
		return timeCell(val.Time)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func numericCell(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	switch {
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	}

	intVal := n.Int
	if intVal == nil {
		intVal = new(big.Int)
	}
	d := decimal.NewFromBigInt(intVal, n.Exp)
	if d.Equal(d.Truncate(0)) {
		if i := d.BigInt(); i.IsInt64() {
			return i.Int64()
		}
		return d.String()
	}
	return d.InexactFloat64()
}

// floatCell keeps NaN and infinities out of cells as strings, since they
// have no JSON form.
func floatCell(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func timeCell(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 && t.Location() == time.UTC {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
