package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cardsmith/internal/card"
	"cardsmith/internal/render"
)

// renderDeclarativeBody paints a declarative card's rows under its
// interactive state. Pure with respect to the catalog: everything comes
// from the definition clone and the query, so the output is cacheable.
func renderDeclarativeBody(st Styles, def *card.Definition, q render.Query, width int) string {
	p := def.Declarative
	if p == nil {
		return st.Muted.Render("empty card")
	}

	res := render.Apply(p.StaticData, p.SearchFields, q)

	var blocks []string
	switch p.Layout {
	case card.LayoutStats:
		blocks = append(blocks, renderStatTiles(st, render.BuildStats(res.Rows, p.Columns), width))
	case card.LayoutStatsAndList:
		blocks = append(blocks,
			renderStatTiles(st, render.BuildStats(res.Rows, p.Columns), width),
			renderRowTable(st, p.Columns, res.Rows, width))
	default:
		blocks = append(blocks, renderRowTable(st, p.Columns, res.Rows, width))
	}

	if info := renderResultInfo(st, q, res); info != "" {
		blocks = append(blocks, info)
	}
	return strings.Join(blocks, "\n")
}

// renderRowTable lays the rows out as an aligned table. Cell text is
// truncated before any styling so ANSI sequences are never cut.
func renderRowTable(st Styles, columns []card.Column, rows []card.Row, width int) string {
	if len(columns) == 0 {
		return st.Muted.Render("no columns")
	}
	if len(rows) == 0 {
		return st.Muted.Render("no rows")
	}

	labels := make([]string, len(columns))
	for j, col := range columns {
		labels[j] = col.Label
		if labels[j] == "" {
			labels[j] = col.Field
		}
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(columns))
		for j, col := range columns {
			cells[i][j] = render.FormatCell(row[col.Field], col)
		}
	}

	widths := fitColumnWidths(columns, labels, cells, width)

	var b strings.Builder
	for j := range columns {
		b.WriteString(st.TableHeader.Render(padCell(truncateCell(labels[j], widths[j]), widths[j])))
		if j < len(columns)-1 {
			b.WriteString("  ")
		}
	}

	b.WriteString("\n")
	total := 2 * (len(columns) - 1)
	for _, w := range widths {
		total += w
	}
	b.WriteString(st.RenderDivider(min(total, width)))

	for i, row := range rows {
		b.WriteString("\n")
		for j, col := range columns {
			var cell string
			if col.Format == render.FormatBadge {
				// The badge style adds two columns of padding.
				text := truncateCell(cells[i][j], max(widths[j]-2, 1))
				cell = st.RenderBadge(text, render.BadgeColor(row[col.Field], col))
			} else {
				cell = truncateCell(cells[i][j], widths[j])
			}
			b.WriteString(padStyled(cell, widths[j]))
			if j < len(columns)-1 {
				b.WriteString("  ")
			}
		}
	}
	return b.String()
}

// renderStatTiles paints value-over-label tiles, wrapping onto new rows
// when a row would exceed the available width.
func renderStatTiles(st Styles, stats []render.Stat, width int) string {
	if len(stats) == 0 {
		return ""
	}

	tiles := make([]string, len(stats))
	for i, s := range stats {
		tiles[i] = lipgloss.JoinVertical(lipgloss.Left,
			st.StatValue.Render(s.Value),
			st.StatLabel.Render(s.Label))
	}

	var rows []string
	var line []string
	used := 0
	for _, tile := range tiles {
		w := lipgloss.Width(tile)
		if len(line) > 0 && used+3+w > width {
			rows = append(rows, joinTiles(line))
			line, used = nil, 0
		}
		if len(line) > 0 {
			used += 3
		}
		line = append(line, tile)
		used += w
	}
	if len(line) > 0 {
		rows = append(rows, joinTiles(line))
	}
	return strings.Join(rows, "\n")
}

func joinTiles(tiles []string) string {
	parts := make([]string, 0, 2*len(tiles)-1)
	for i, t := range tiles {
		if i > 0 {
			parts = append(parts, "   ")
		}
		parts = append(parts, t)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderResultInfo summarizes the active query under the table: search
// matches, sort order, current page. Empty when the card is untouched
// and fits on one page.
func renderResultInfo(st Styles, q render.Query, res render.Result) string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q · %d match", q.Search, res.Total))
	}
	if q.SortField != "" {
		dir := "↑"
		if q.SortDesc {
			dir = "↓"
		}
		parts = append(parts, "sort "+q.SortField+dir)
	}
	if res.Pages > 1 {
		parts = append(parts, fmt.Sprintf("page %d/%d", res.Page, res.Pages))
	}
	if len(parts) == 0 {
		return ""
	}
	return st.Muted.Render(strings.Join(parts, "  "))
}

// renderErrorBody is the in-slot failure block: the slot stays mounted
// and styled, only its content is replaced.
func renderErrorBody(st Styles, headline, detail string) string {
	if len(detail) > 200 {
		detail = detail[:200] + "…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		st.Error.Render("✗ "+headline),
		st.Muted.Render(detail))
}

// fitColumnWidths starts from the natural width of every column and
// shrinks the widest until the table fits. Columns never drop below a
// readable minimum, so a very narrow slot may still overflow and rely
// on the outer style to wrap.
func fitColumnWidths(columns []card.Column, labels []string, cells [][]string, width int) []int {
	const minCol = 4

	widths := make([]int, len(columns))
	for j := range columns {
		widths[j] = len([]rune(labels[j]))
		for i := range cells {
			w := len([]rune(cells[i][j]))
			if columns[j].Format == render.FormatBadge {
				w += 2
			}
			if w > widths[j] {
				widths[j] = w
			}
		}
	}

	budget := width - 2*(len(columns)-1)
	for {
		total := 0
		widest := 0
		for j, w := range widths {
			total += w
			if w > widths[widest] {
				widest = j
			}
		}
		if total <= budget || widths[widest] <= minCol {
			return widths
		}
		widths[widest]--
	}
}

// truncateCell shortens plain text to width runes with an ellipsis.
func truncateCell(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// padCell right-pads plain text to width runes.
func padCell(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// padStyled right-pads possibly styled text to a display width.
func padStyled(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
