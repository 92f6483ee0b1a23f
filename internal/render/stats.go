package render

import "cardsmith/internal/card"

// Stat is one aggregate tile for the stats layouts.
type Stat struct {
	Label string
	Value string
}

// BuildStats derives the stat tiles for a definition's rows: the row count,
// then total and average for every number-formatted column. Columns without
// numeric data in any row are skipped rather than shown as zero.
func BuildStats(rows []card.Row, columns []card.Column) []Stat {
	stats := []Stat{{Label: "Rows", Value: FormatNumberString(float64(len(rows)))}}

	for _, col := range columns {
		if col.Format != FormatNumber {
			continue
		}
		label := col.Label
		if label == "" {
			label = col.Field
		}

		var sum float64
		count := 0
		for _, row := range rows {
			if n, ok := numericValue(row[col.Field]); ok {
				sum += n
				count++
			}
		}
		if count == 0 {
			continue
		}

		stats = append(stats,
			Stat{Label: label + " total", Value: FormatNumberString(sum)},
			Stat{Label: label + " avg", Value: FormatNumberString(sum / float64(count))},
		)
	}
	return stats
}
