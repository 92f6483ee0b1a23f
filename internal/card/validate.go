package card

import "strings"

// Validate checks the tier-specific shape of a definition before any
// compilation or persistence. prev is the currently stored definition for a
// re-save, nil on create.
func Validate(def *Definition, prev *Definition) error {
	if def == nil {
		return NewValidationError("", "definition is nil")
	}
	if strings.TrimSpace(def.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if !def.Tier.Valid() {
		return NewValidationError("tier", "unknown tier %q", string(def.Tier))
	}
	if prev != nil && prev.Tier != def.Tier {
		return NewValidationError("tier", "%s", ErrTierImmutable.Error())
	}
	if !ValidWidth(def.DefaultWidth) {
		return NewValidationError("defaultWidth", "width %d is not one of %v", def.DefaultWidth, ValidWidths)
	}

	switch def.Tier {
	case TierDeclarative:
		if def.Code != nil {
			return NewValidationError("code", "declarative card cannot carry a code payload")
		}
		return validateDeclarative(def.Declarative)
	case TierCode:
		if def.Declarative != nil {
			return NewValidationError("declarative", "code card cannot carry a declarative payload")
		}
		return validateCode(def.Code)
	}
	return nil
}

func validateDeclarative(p *DeclarativePayload) error {
	if p == nil {
		return NewValidationError("declarative", "declarative payload is required")
	}
	if p.DataSource != DataSourceStatic {
		return NewValidationError("dataSource", "unsupported data source %q (only %q)", p.DataSource, DataSourceStatic)
	}
	if len(p.Columns) == 0 {
		return NewValidationError("columns", "at least one column is required")
	}
	for i, col := range p.Columns {
		if strings.TrimSpace(col.Field) == "" {
			return NewValidationError("columns", "column %d has an empty field", i)
		}
	}
	if p.StaticData == nil {
		return NewValidationError("staticData", "row data is required (may be empty, not absent)")
	}
	if !p.Layout.Valid() {
		return NewValidationError("layout", "unknown layout %q", string(p.Layout))
	}
	return nil
}

func validateCode(p *CodePayload) error {
	if p == nil {
		return NewValidationError("code", "code payload is required")
	}
	if strings.TrimSpace(p.SourceCode) == "" {
		return NewValidationError("sourceCode", "source code is required")
	}
	return nil
}

// Normalize fills defaulted fields in place before validation: an absent
// (zero) width becomes DefaultWidth, an absent layout becomes list, a
// zero DefaultLimit becomes 10. Explicitly wrong values are left for
// Validate to reject; a missing search-field list stays nil (search
// disabled).
func Normalize(def *Definition) {
	if def == nil {
		return
	}
	if def.DefaultWidth == 0 {
		def.DefaultWidth = DefaultWidth
	}
	if def.Declarative == nil {
		return
	}
	if def.Declarative.Layout == "" {
		def.Declarative.Layout = LayoutList
	}
	if def.Declarative.DefaultLimit <= 0 {
		def.Declarative.DefaultLimit = 10
	}
}
