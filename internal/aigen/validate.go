package aigen

import (
	"strings"

	"cardsmith/internal/card"
	"cardsmith/internal/logging"
)

// ValidateT1 checks a tier-1 generator result and normalizes the fields
// the model routinely gets wrong. Generators claim whatever shape they
// like; this is the gate.
func ValidateT1(res *card.AiCardT1Result) error {
	if strings.TrimSpace(res.Title) == "" {
		return card.NewValidationError("title", "generated card has no title")
	}
	if len(res.Columns) == 0 {
		return card.NewValidationError("columns", "generated card has no columns")
	}
	for i, col := range res.Columns {
		if strings.TrimSpace(col.Field) == "" {
			return card.NewValidationError("columns", "generated column %d has no field", i)
		}
	}

	// Bad layout and width are the model's problem, not the user's:
	// default them instead of failing the whole generation.
	if !res.Layout.Valid() {
		if res.Layout != "" {
			logging.AigenDebug("Generated layout %q is unknown, defaulting to list", res.Layout)
		}
		res.Layout = card.LayoutList
	}
	if !card.ValidWidth(res.DefaultWidth) {
		if res.DefaultWidth != 0 {
			logging.AigenDebug("Generated width %d is off-grid, defaulting to %d", res.DefaultWidth, card.DefaultWidth)
		}
		res.DefaultWidth = card.DefaultWidth
	}
	if res.StaticData == nil {
		res.StaticData = []card.Row{}
	}
	return nil
}

// ValidateT2 checks a tier-2 generator result. Source emptiness is the
// only hard failure here; whether the source is valid dialect is the
// compiler's verdict at save time.
func ValidateT2(res *card.AiCardT2Result) error {
	if strings.TrimSpace(res.Title) == "" {
		return card.NewValidationError("title", "generated card has no title")
	}

	// Models fence code even when told not to.
	res.SourceCode = extractBlock(res.SourceCode, "go")
	if strings.TrimSpace(res.SourceCode) == "" {
		return card.NewValidationError("sourceCode", "generated card has no source code")
	}

	if !card.ValidWidth(res.DefaultWidth) {
		if res.DefaultWidth != 0 {
			logging.AigenDebug("Generated width %d is off-grid, defaulting to %d", res.DefaultWidth, card.DefaultWidth)
		}
		res.DefaultWidth = card.DefaultWidth
	}
	return nil
}

// extractJSON strips a markdown fence from a response that should have
// been bare JSON.
func extractJSON(text string) string {
	return extractBlock(text, "json")
}

// extractBlock pulls the first ```lang or ``` fenced block out of text,
// or returns the trimmed text when there is no fence.
func extractBlock(text, lang string) string {
	patterns := []string{
		"```" + lang + "\n",
		"```" + lang + "\r\n",
		"```\n",
	}

	for _, pattern := range patterns {
		if idx := strings.Index(text, pattern); idx != -1 {
			start := idx + len(pattern)
			end := strings.Index(text[start:], "```")
			if end != -1 {
				return strings.TrimSpace(text[start : start+end])
			}
		}
	}

	return strings.TrimSpace(text)
}
