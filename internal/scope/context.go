// Package scope defines the fixed, versioned name surface a compiled card
// may reference — the only path from card code to host capabilities. The
// surface is exported to the interpreter as the virtual package "cardkit";
// the compiler injects the matching dot-import so authors use the names
// unqualified. Adding a name to a version is backward compatible; removing
// one requires a new version, and artifacts pinned to a vanished version
// fail instantiation rather than resolve silently.
package scope

import "math"

// Row is one data record as seen by card code, with forgiving typed
// accessors so author code stays short.
type Row map[string]any

// Str returns the field as a string ("" when absent or non-string).
func (r Row) Str(field string) string {
	s, _ := r[field].(string)
	return s
}

// Num returns the field as a float64, converting the numeric kinds JSON
// data carries. Absent or non-numeric fields are 0.
func (r Row) Num(field string) float64 {
	n, _ := numeric(r[field])
	return n
}

// Int returns the field truncated to an int.
func (r Row) Int(field string) int {
	return int(r.Num(field))
}

// Has reports whether the field is present.
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Card is the render context handed to a card's exported function. It is
// built by the host per mount; card code only reads from it.
type Card struct {
	title string
	width int
	rows  []Row
	args  map[string]any
}

// NewCard builds a render context. data maps are shared, not copied; the
// host passes cloned definitions so card code cannot reach live state.
func NewCard(title string, width int, data []map[string]any, args map[string]any) *Card {
	rows := make([]Row, len(data))
	for i, m := range data {
		rows[i] = Row(m)
	}
	return &Card{title: title, width: width, rows: rows, args: args}
}

// Title returns the card's display title.
func (c *Card) Title() string { return c.title }

// Width returns the inner render width in terminal cells.
func (c *Card) Width() int { return c.width }

// Rows returns the card's data rows.
func (c *Card) Rows() []Row { return c.rows }

// Arg returns a host-supplied config value, nil when unset.
func (c *Card) Arg(key string) any {
	if c.args == nil {
		return nil
	}
	return c.args[key]
}

// Sum totals a numeric field across rows.
func Sum(rows []Row, field string) float64 {
	var total float64
	for _, r := range rows {
		if n, ok := numeric(r[field]); ok {
			total += n
		}
	}
	return total
}

// Avg averages a numeric field across rows (0 when no row has it).
func Avg(rows []Row, field string) float64 {
	var total float64
	count := 0
	for _, r := range rows {
		if n, ok := numeric(r[field]); ok {
			total += n
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Min returns the smallest value of a numeric field (0 when none).
func Min(rows []Row, field string) float64 {
	best := math.Inf(1)
	found := false
	for _, r := range rows {
		if n, ok := numeric(r[field]); ok {
			found = true
			if n < best {
				best = n
			}
		}
	}
	if !found {
		return 0
	}
	return best
}

// Max returns the largest value of a numeric field (0 when none).
func Max(rows []Row, field string) float64 {
	best := math.Inf(-1)
	found := false
	for _, r := range rows {
		if n, ok := numeric(r[field]); ok {
			found = true
			if n > best {
				best = n
			}
		}
	}
	if !found {
		return 0
	}
	return best
}

// CountBy tallies rows by the string value of a field.
func CountBy(rows []Row, field string) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[r.Str(field)]++
	}
	return out
}
