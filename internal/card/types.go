// Package card defines the card definition model shared by the compiler,
// catalog, store, and renderer.
//
// A card is either declarative (tier 1: a data table / stat block fully
// described by configuration) or code (tier 2: an author-supplied source
// body compiled at save time into a cached artifact). The two payloads are
// mutually exclusive and the tier is immutable after creation.
package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier classifies how a card produces its content.
type Tier string

const (
	// TierDeclarative cards are rendered by the host's generic renderer
	// and never execute author-supplied code.
	TierDeclarative Tier = "declarative"

	// TierCode cards carry author source that is compiled and executed
	// inside the sandboxed interpreter.
	TierCode Tier = "code"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierDeclarative || t == TierCode
}

// Prefix returns the id prefix for the tier ("t1" / "t2").
func (t Tier) Prefix() string {
	if t == TierCode {
		return "t2"
	}
	return "t1"
}

// Layout selects how a declarative card arranges its rows.
type Layout string

const (
	// LayoutList renders a searchable column table.
	LayoutList Layout = "list"

	// LayoutStats renders aggregate stat tiles only.
	LayoutStats Layout = "stats"

	// LayoutStatsAndList renders stat tiles above the table.
	LayoutStatsAndList Layout = "stats-and-list"
)

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	switch l {
	case LayoutList, LayoutStats, LayoutStatsAndList:
		return true
	}
	return false
}

// Row is one record of a declarative card's data source. An alias so row
// slices flow into the render engine without conversion.
type Row = map[string]any

// Column describes one displayed field of a declarative card.
type Column struct {
	// Field is the row key the column reads.
	Field string `json:"field"`

	// Label is the header text shown for the column.
	Label string `json:"label"`

	// Format selects cell formatting: "text" (default), "number",
	// "date", "datetime", "bool" or "badge".
	Format string `json:"format,omitempty"`

	// BadgeColors maps cell values to badge color names for the
	// "badge" format.
	BadgeColors map[string]string `json:"badgeColors,omitempty"`
}

// DataSourceStatic is the only supported declarative data source: rows
// embedded in the definition itself.
const DataSourceStatic = "static"

// DeclarativePayload holds everything a tier-1 card needs to render.
type DeclarativePayload struct {
	DataSource   string   `json:"dataSource"`
	StaticData   []Row    `json:"staticData"`
	Columns      []Column `json:"columns"`
	Layout       Layout   `json:"layout"`
	SearchFields []string `json:"searchFields,omitempty"`
	DefaultLimit int      `json:"defaultLimit,omitempty"`
}

// CodePayload holds a tier-2 card's author source and its cached compiled
// artifact. CompiledCode and SourceHash are derived state: the compiler's
// last successful output for SourceCode, regenerated exactly when
// SourceCode changes, never hand-edited.
type CodePayload struct {
	SourceCode   string `json:"sourceCode"`
	CompiledCode string `json:"compiledCode,omitempty"`
	SourceHash   string `json:"sourceHash,omitempty"`
}

// Grid widths a card may span on the 12-unit dashboard row.
var ValidWidths = []int{3, 4, 6, 8, 12}

// DefaultWidth is used when a generated payload carries no usable width.
const DefaultWidth = 6

// ValidWidth reports whether w is an allowed grid span.
func ValidWidth(w int) bool {
	for _, v := range ValidWidths {
		if w == v {
			return true
		}
	}
	return false
}

// Definition is the persisted unit: one card, either tier.
type Definition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Tier        Tier   `json:"tier"`

	// DefaultWidth is the grid span the dashboard mounts the card with.
	DefaultWidth int `json:"defaultWidth"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Exactly one of the payloads is set, matching Tier.
	Declarative *DeclarativePayload `json:"declarative,omitempty"`
	Code        *CodePayload        `json:"code,omitempty"`

	// LoadError is runtime-only state: set when a stored definition
	// failed to re-instantiate during a registry rebuild so the author
	// sees the failure instead of a silently missing card.
	LoadError string `json:"-"`
}

// Payload returns the payload matching the definition's tier, or nil when
// the definition is inconsistent.
func (d *Definition) Payload() any {
	switch d.Tier {
	case TierDeclarative:
		if d.Declarative != nil {
			return d.Declarative
		}
	case TierCode:
		if d.Code != nil {
			return d.Code
		}
	}
	return nil
}

// Clone returns a deep copy. The catalog hands out clones so callers can
// never mutate registered state through a snapshot.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := *d
	if d.Declarative != nil {
		p := *d.Declarative
		p.StaticData = make([]Row, len(d.Declarative.StaticData))
		for i, row := range d.Declarative.StaticData {
			cp := make(Row, len(row))
			for k, v := range row {
				cp[k] = v
			}
			p.StaticData[i] = cp
		}
		p.Columns = make([]Column, len(d.Declarative.Columns))
		for i, col := range d.Declarative.Columns {
			cc := col
			if col.BadgeColors != nil {
				cc.BadgeColors = make(map[string]string, len(col.BadgeColors))
				for k, v := range col.BadgeColors {
					cc.BadgeColors[k] = v
				}
			}
			p.Columns[i] = cc
		}
		p.SearchFields = append([]string(nil), d.Declarative.SearchFields...)
		out.Declarative = &p
	}
	if d.Code != nil {
		c := *d.Code
		out.Code = &c
	}
	return &out
}

// NewID builds a collision-free card id: tier prefix, creation instant,
// and a uuid fragment (e.g. "t2-1756080000000-3f9a61b2").
func NewID(t Tier, now time.Time) string {
	frag := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", t.Prefix(), now.UnixMilli(), frag)
}
