package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cardsmith/internal/card"
)

// Column formats understood by FormatCell. Anything else falls back to
// plain text.
const (
	FormatText     = "text"
	FormatNumber   = "number"
	FormatDate     = "date"
	FormatDateTime = "datetime"
	FormatBool     = "bool"
	FormatBadge    = "badge"
)

// FormatCell renders one row value for display under a column's format.
// Badge cells return the raw text; the ui layer colors them via BadgeColor.
func FormatCell(v any, col card.Column) string {
	if v == nil {
		return ""
	}

	switch col.Format {
	case FormatNumber:
		if n, ok := numericValue(v); ok {
			return FormatNumberString(n)
		}
	case FormatDate:
		if t, ok := TimeValue(v); ok {
			return t.Format("Jan 02, 2006")
		}
	case FormatDateTime:
		if t, ok := TimeValue(v); ok {
			return t.Format("Jan 02, 2006 15:04")
		}
	case FormatBool:
		if b, ok := v.(bool); ok {
			if b {
				return "yes"
			}
			return "no"
		}
	}
	return plainString(v)
}

// BadgeColor resolves the color name for a badge cell, or "" when the value
// has no mapping.
func BadgeColor(v any, col card.Column) string {
	if col.BadgeColors == nil {
		return ""
	}
	return col.BadgeColors[plainString(v)]
}

// FormatNumberString renders a float with thousands separators and at most
// two decimals (dropped entirely for integral values).
func FormatNumberString(n float64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	// Round to cents first so the fraction can never carry into the
	// integer part when formatted.
	n = math.Round(n*100) / 100

	intPart := math.Floor(n)
	frac := n - intPart

	digits := strconv.FormatFloat(intPart, 'f', 0, 64)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	if frac > 1e-9 {
		dec := strconv.FormatFloat(frac, 'f', 2, 64)
		b.WriteString(strings.TrimPrefix(dec, "0"))
	}
	return b.String()
}

// plainString renders any row value as unadorned text.
func plainString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return plainString(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// numericValue extracts a float from the value kinds JSON row data carries.
func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// TimeValue extracts a timestamp from a time.Time or the common string
// layouts row data uses.
func TimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
