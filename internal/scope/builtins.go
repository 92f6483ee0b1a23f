package scope

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cardsmith/internal/render"
)

// Named colors accepted by Badge and Colorize. Semantic values match the
// dashboard palette so card output blends with host chrome.
var palette = map[string]lipgloss.Color{
	"green":  lipgloss.Color("#8BC34A"),
	"yellow": lipgloss.Color("#FFC107"),
	"red":    lipgloss.Color("#e53935"),
	"blue":   lipgloss.Color("#2196F3"),
	"gray":   lipgloss.Color("#9e9e9e"),
	"purple": lipgloss.Color("#9c27b0"),
	"orange": lipgloss.Color("#ff8a65"),
	"teal":   lipgloss.Color("#4db6ac"),
}

var (
	boldStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

var icons = map[string]string{
	"activity":   "∿",
	"alert":      "⚠",
	"arrow-down": "↓",
	"arrow-up":   "↑",
	"check":      "✓",
	"clock":      "◷",
	"cross":      "✗",
	"database":   "⛁",
	"dollar":     "$",
	"dot":        "•",
	"flag":       "⚑",
	"gear":       "⚙",
	"graph":      "▞",
	"heart":      "♥",
	"star":       "★",
	"user":       "◉",
	"warn":       "⚠",
	"zap":        "⚡",
}

func toMaps(rows []Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any(r)
	}
	return out
}

func fromMaps(rows []map[string]any) []Row {
	out := make([]Row, len(rows))
	for i, m := range rows {
		out[i] = Row(m)
	}
	return out
}

// Search keeps rows where any of the fields contains query,
// case-insensitively. An empty query keeps everything.
func Search(rows []Row, fields []string, query string) []Row {
	return fromMaps(render.Filter(toMaps(rows), fields, query))
}

// SortBy orders rows by a field, numbers and dates before lexicographic
// fallback. Rows missing the field sort last. The input is not modified.
func SortBy(rows []Row, field string, desc bool) []Row {
	return fromMaps(render.Sort(toMaps(rows), field, desc))
}

// Paginate returns the 1-based page of at most limit rows.
func Paginate(rows []Row, page, limit int) []Row {
	res := render.Page(toMaps(rows), page, limit)
	return fromMaps(res.Rows)
}

// Sprintf is fmt.Sprintf, re-exported for card code.
var Sprintf = fmt.Sprintf

// Errorf is fmt.Errorf, re-exported so a card can construct the error
// side of its return contract.
var Errorf = fmt.Errorf

// FormatNumber renders a number with thousands separators and at most two
// decimals. Non-numeric values render as fmt.Sprint would.
func FormatNumber(v any) string {
	if n, ok := numeric(v); ok {
		return render.FormatNumberString(n)
	}
	return fmt.Sprint(v)
}

// FormatDate renders a time-like value as YYYY-MM-DD. Strings that do not
// parse as a known timestamp layout pass through unchanged.
func FormatDate(v any) string {
	if t, ok := render.TimeValue(v); ok {
		return t.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}

// TimeAgo renders a time-like value relative to now ("3h ago"). Values
// older than a month fall back to the date.
func TimeAgo(v any) string {
	t, ok := render.TimeValue(v)
	if !ok {
		return fmt.Sprint(v)
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// Truncate clips s to at most n runes, appending an ellipsis when clipped.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

// Bold renders text in bold.
func Bold(s string) string { return boldStyle.Render(s) }

// Faint renders text dimmed.
func Faint(s string) string { return faintStyle.Render(s) }

// Colorize renders text in a named palette color. Unknown names render
// the text unstyled.
func Colorize(s, color string) string {
	c, ok := palette[color]
	if !ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// Badge renders a small pill with a named background color.
func Badge(s, color string) string {
	c, ok := palette[color]
	if !ok {
		c = palette["gray"]
	}
	return lipgloss.NewStyle().
		Background(c).
		Foreground(lipgloss.Color("#ffffff")).
		Padding(0, 1).
		Bold(true).
		Render(s)
}

// Icon returns a glyph for a named icon, "•" for unknown names.
func Icon(name string) string {
	if g, ok := icons[name]; ok {
		return g
	}
	return icons["dot"]
}

// Line joins spans with single spaces, skipping empties.
func Line(spans ...string) string {
	parts := spans[:0:0]
	for _, s := range spans {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Merge stacks blocks vertically.
func Merge(blocks ...string) string {
	return strings.Join(blocks, "\n")
}

// Divider returns a dim horizontal rule of the given width.
func Divider(width int) string {
	if width <= 0 {
		return ""
	}
	return faintStyle.Render(strings.Repeat("─", width))
}

// Skeleton returns dim placeholder lines for loading states.
func Skeleton(width, lines int) string {
	if width <= 0 || lines <= 0 {
		return ""
	}
	row := faintStyle.Render(strings.Repeat("░", width))
	out := make([]string, lines)
	for i := range out {
		out[i] = row
	}
	return strings.Join(out, "\n")
}

// StatLine renders a "label: value" pair with the value in bold.
func StatLine(label string, value any) string {
	return fmt.Sprintf("%s: %s", label, Bold(fmt.Sprint(value)))
}

// Table renders headers and rows as an aligned text table sized by
// content, columns separated by two spaces, header underlined with a
// dim rule. Rows shorter than the header render empty trailing cells.
func Table(headers []string, rows [][]string, width int) string {
	if len(headers) == 0 {
		return ""
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, style lipgloss.Style) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(style.Render(pad(cell, widths[i])))
			if i < len(headers)-1 {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers, boldStyle)
	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * (len(headers) - 1)
	if width > 0 && total > width {
		total = width
	}
	sb.WriteString(Divider(total))
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row, lipgloss.NewStyle())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func pad(s string, w int) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
