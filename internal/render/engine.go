// Package render implements the generic renderer's data engine for
// declarative cards: search, sort, and pagination over static rows, cell
// formatting, and stat aggregation. It is pure host code and never
// evaluates author-supplied logic; the ui package paints its output.
package render

import (
	"sort"
	"strings"

	"cardsmith/internal/card"
)

// Query captures the interactive state of one mounted declarative card.
type Query struct {
	// Search filters rows by case-insensitive substring over the
	// definition's search fields. Empty means no filtering.
	Search string

	// SortField orders rows by the named field. Empty keeps input order.
	SortField string
	SortDesc  bool

	// Page is 1-based. Limit <= 0 disables pagination.
	Page  int
	Limit int
}

// Result is one page of rows plus paging bookkeeping.
type Result struct {
	Rows  []card.Row
	Total int
	Page  int
	Pages int
}

// Apply runs the full pipeline: filter by Search over searchFields, sort,
// then paginate. The input slice is never mutated.
func Apply(rows []card.Row, searchFields []string, q Query) Result {
	filtered := Filter(rows, searchFields, q.Search)
	sorted := Sort(filtered, q.SortField, q.SortDesc)
	return Page(sorted, q.Page, q.Limit)
}

// Filter returns the rows whose search fields contain query
// (case-insensitive). An empty query or empty field list passes everything
// through: search is opt-in per definition.
func Filter(rows []card.Row, fields []string, query string) []card.Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(fields) == 0 {
		return append([]card.Row(nil), rows...)
	}

	out := make([]card.Row, 0, len(rows))
	for _, row := range rows {
		for _, f := range fields {
			v, ok := row[f]
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(plainString(v)), query) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Sort orders rows by field. Numeric values compare numerically, times
// chronologically, everything else as case-folded strings. Missing values
// sort last regardless of direction. The sort is stable so equal keys keep
// input order; an empty field returns a copy in input order.
func Sort(rows []card.Row, field string, desc bool) []card.Row {
	out := append([]card.Row(nil), rows...)
	if field == "" {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		vi, oki := out[i][field]
		vj, okj := out[j][field]
		if !oki || !okj {
			// Missing values sink to the end in both directions.
			return oki && !okj
		}
		less, equal := compareValues(vi, vj)
		if equal {
			return false
		}
		if desc {
			return !less
		}
		return less
	})
	return out
}

// Page slices one 1-based page out of rows. Out-of-range pages clamp to the
// nearest valid page; limit <= 0 returns everything as page 1 of 1.
func Page(rows []card.Row, page, limit int) Result {
	total := len(rows)
	if limit <= 0 {
		return Result{Rows: rows, Total: total, Page: 1, Pages: 1}
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Result{Rows: rows[start:end], Total: total, Page: page, Pages: pages}
}

// compareValues reports vi < vj and vi == vj under type-aware comparison.
func compareValues(vi, vj any) (less, equal bool) {
	ni, iok := numericValue(vi)
	nj, jok := numericValue(vj)
	if iok && jok {
		return ni < nj, ni == nj
	}

	ti, iok := TimeValue(vi)
	tj, jok := TimeValue(vj)
	if iok && jok {
		return ti.Before(tj), ti.Equal(tj)
	}

	si := strings.ToLower(plainString(vi))
	sj := strings.ToLower(plainString(vj))
	return si < sj, si == sj
}
