package render

import (
	"testing"
	"time"

	"cardsmith/internal/card"
)

func TestFormatCell(t *testing.T) {
	badge := card.Column{Field: "status", Format: FormatBadge,
		BadgeColors: map[string]string{"up": "green", "down": "red"}}

	tests := []struct {
		name string
		v    any
		col  card.Column
		want string
	}{
		{"nil is empty", nil, card.Column{}, ""},
		{"plain string", "hello", card.Column{}, "hello"},
		{"integral float drops decimals", 42.0, card.Column{}, "42"},
		{"number format separates thousands", 1234567.0, card.Column{Format: FormatNumber}, "1,234,567"},
		{"number format keeps cents", 1234.5, card.Column{Format: FormatNumber}, "1,234.50"},
		{"negative number", -1234.0, card.Column{Format: FormatNumber}, "-1,234"},
		{"fraction rounds without carry", 5.999, card.Column{Format: FormatNumber}, "6"},
		{"number format on non-numeric falls back", "n/a", card.Column{Format: FormatNumber}, "n/a"},
		{"date from string", "2026-03-30", card.Column{Format: FormatDate}, "Mar 30, 2026"},
		{"datetime from rfc3339", "2026-03-30T14:05:00Z", card.Column{Format: FormatDateTime}, "Mar 30, 2026 14:05"},
		{"date from time value", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), card.Column{Format: FormatDate}, "Jan 02, 2026"},
		{"unparseable date falls back", "soon", card.Column{Format: FormatDate}, "soon"},
		{"bool yes", true, card.Column{Format: FormatBool}, "yes"},
		{"bool no", false, card.Column{Format: FormatBool}, "no"},
		{"badge returns raw text", "up", badge, "up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCell(tt.v, tt.col); got != tt.want {
				t.Errorf("FormatCell(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestBadgeColor(t *testing.T) {
	col := card.Column{Format: FormatBadge, BadgeColors: map[string]string{"up": "green"}}
	if got := BadgeColor("up", col); got != "green" {
		t.Errorf("BadgeColor(up) = %q, want green", got)
	}
	if got := BadgeColor("unknown", col); got != "" {
		t.Errorf("unmapped value should have no color, got %q", got)
	}
	if got := BadgeColor("up", card.Column{}); got != "" {
		t.Errorf("column without map should have no color, got %q", got)
	}
}

func TestBuildStats(t *testing.T) {
	cols := []card.Column{
		{Field: "name", Label: "Name"},
		{Field: "cpu", Label: "CPU", Format: FormatNumber},
		{Field: "mem", Label: "Mem", Format: FormatNumber},
	}
	rows := []card.Row{
		{"name": "a", "cpu": 10.0},
		{"name": "b", "cpu": 30.0},
	}

	stats := BuildStats(rows, cols)

	if len(stats) != 3 {
		t.Fatalf("expected 3 stats (rows, cpu total, cpu avg), got %d: %v", len(stats), stats)
	}
	if stats[0].Label != "Rows" || stats[0].Value != "2" {
		t.Errorf("rows stat = %+v", stats[0])
	}
	if stats[1].Label != "CPU total" || stats[1].Value != "40" {
		t.Errorf("total stat = %+v", stats[1])
	}
	if stats[2].Label != "CPU avg" || stats[2].Value != "20" {
		t.Errorf("avg stat = %+v", stats[2])
	}
}

func TestBuildStatsEmptyRows(t *testing.T) {
	stats := BuildStats(nil, []card.Column{{Field: "cpu", Label: "CPU", Format: FormatNumber}})
	if len(stats) != 1 {
		t.Fatalf("numeric column with no data should be skipped, got %v", stats)
	}
	if stats[0].Value != "0" {
		t.Errorf("row count = %q, want 0", stats[0].Value)
	}
}
