package aigen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cardsmith/internal/card"
	"cardsmith/internal/logging"
	"cardsmith/internal/scope"
)

// Generator turns natural-language requests into card payloads.
type Generator struct {
	client LLMClient
}

// NewGenerator wraps an LLM client.
func NewGenerator(client LLMClient) *Generator {
	return &Generator{client: client}
}

const tier1SystemPrompt = `You are a dashboard card generator.
You design declarative data cards: a title, typed columns, and a small set
of realistic sample rows. You never write code.

Respond with ONLY a JSON object in this exact shape:
{
  "title": "Card title",
  "description": "One sentence about what the card shows",
  "layout": "list" | "stats" | "stats-and-list",
  "defaultWidth": 3 | 4 | 6 | 8 | 12,
  "defaultLimit": 10,
  "columns": [
    {"field": "rowKey", "label": "Header", "format": "text|number|date|datetime|bool|badge",
     "badgeColors": {"value": "green|yellow|red|blue|gray"}}
  ],
  "searchFields": ["rowKey"],
  "staticData": [ {"rowKey": "value"} ]
}

Rules:
- Every column "field" must appear as a key in the staticData rows.
- "badgeColors" only together with "format": "badge".
- Use "stats" or "stats-and-list" only when numeric columns exist.
- 3 to 8 sample rows with realistic, varied values.
- No markdown, no commentary, JSON only.`

const tier2SystemTemplate = `You are a dashboard card code generator.
You write the body of a single card render function in a restricted Go
dialect. The card runs inside a sandbox that exposes a fixed helper
surface and nothing else.

CRITICAL DIALECT RULES:
- NO import statements of any kind.
- Exactly one exported function: func Render(c *Card) (string, error)
- Unexported helper functions are allowed.
- NO goroutines, channels or select statements.
- Only language builtins and the helper surface below; there is no
  standard library.

AVAILABLE HELPERS (the complete list):
%s

Card methods: c.Title() string, c.Width() int, c.Rows() []Row,
c.Arg(name) any. Row accessors: r.Str(field), r.Num(field), r.Int(field),
r.Has(field).

Respond with ONLY a JSON object in this exact shape:
{
  "title": "Card title",
  "description": "One sentence about what the card shows",
  "defaultWidth": 3 | 4 | 6 | 8 | 12,
  "sourceCode": "func Render(c *Card) (string, error) { ... }"
}

No markdown, no commentary, JSON only.`

// tier2SystemPrompt embeds the live helper surface so generated source is
// written against the real contract, not the model's memory of it.
func tier2SystemPrompt() string {
	return fmt.Sprintf(tier2SystemTemplate, strings.Join(scope.V1().Names(), ", "))
}

// GenerateTier1 asks the model for a declarative card. The returned
// result is already validated and normalized.
func (g *Generator) GenerateTier1(ctx context.Context, prompt string) (*card.AiCardT1Result, error) {
	logging.Aigen("Generating declarative card: %q", prompt)

	raw, err := g.client.CompleteJSON(ctx, tier1SystemPrompt, userPrompt(prompt))
	if err != nil {
		return nil, fmt.Errorf("card generation failed: %w", err)
	}
	logging.AigenDebug("Tier-1 response: %d bytes", len(raw))

	var res card.AiCardT1Result
	if err := json.Unmarshal([]byte(extractJSON(raw)), &res); err != nil {
		return nil, fmt.Errorf("parse generated card JSON: %w\nraw response: %s", err, clip(raw, 400))
	}
	if err := ValidateT1(&res); err != nil {
		return nil, err
	}

	logging.Aigen("Generated declarative card %q: %d columns, %d rows", res.Title, len(res.Columns), len(res.StaticData))
	return &res, nil
}

// GenerateTier2 asks the model for a code card. The returned result is
// shape-validated only; compilation happens at save time.
func (g *Generator) GenerateTier2(ctx context.Context, prompt string) (*card.AiCardT2Result, error) {
	logging.Aigen("Generating code card: %q", prompt)

	raw, err := g.client.CompleteJSON(ctx, tier2SystemPrompt(), userPrompt(prompt))
	if err != nil {
		return nil, fmt.Errorf("card generation failed: %w", err)
	}
	logging.AigenDebug("Tier-2 response: %d bytes", len(raw))

	var res card.AiCardT2Result
	if err := json.Unmarshal([]byte(extractJSON(raw)), &res); err != nil {
		return nil, fmt.Errorf("parse generated card JSON: %w\nraw response: %s", err, clip(raw, 400))
	}
	if err := ValidateT2(&res); err != nil {
		return nil, err
	}

	logging.Aigen("Generated code card %q: %d bytes of source", res.Title, len(res.SourceCode))
	return &res, nil
}

func userPrompt(prompt string) string {
	return fmt.Sprintf("Create a dashboard card for this request:\n\n%s", prompt)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
