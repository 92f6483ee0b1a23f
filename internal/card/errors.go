package card

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Catalog and lifecycle errors.
var (
	// ErrUnknownCardType is returned when a card-type id has no registry
	// entry. The render path treats it as skip-with-warning, never fatal.
	ErrUnknownCardType = errors.New("unknown card type")

	// ErrTierImmutable is returned when a re-save tries to change tier.
	ErrTierImmutable = errors.New("card tier cannot change after creation")

	// ErrNotFound is returned by the store when no row matches an id.
	ErrNotFound = errors.New("card definition not found")
)

// ValidationError reports a shape problem in a submitted definition. It is
// surfaced to the author before any compilation is attempted and is never
// persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-scoped validation error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CompileFinding is one diagnostic from the source validator. Line is
// 1-based within the author's source, 0 when no position is available.
type CompileFinding struct {
	Rule   string
	Line   int
	Detail string
}

func (f CompileFinding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("line %d: %s (%s)", f.Line, f.Detail, f.Rule)
	}
	return fmt.Sprintf("%s (%s)", f.Detail, f.Rule)
}

// CompileError reports that source text was rejected by the validator or
// transpiler. It aborts the save; a previously persisted definition is left
// untouched. Findings are kept position-sorted so the message is stable for
// identical input.
type CompileError struct {
	Findings []CompileFinding
}

// NewCompileError sorts the findings and wraps them. The full (line, rule,
// detail) order makes the message byte-stable however the checks ran.
func NewCompileError(findings ...CompileFinding) *CompileError {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		if findings[i].Rule != findings[j].Rule {
			return findings[i].Rule < findings[j].Rule
		}
		return findings[i].Detail < findings[j].Detail
	})
	return &CompileError{Findings: findings}
}

func (e *CompileError) Error() string {
	if len(e.Findings) == 0 {
		return "compile failed"
	}
	parts := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		parts[i] = f.String()
	}
	return "compile failed: " + strings.Join(parts, "; ")
}

// InstantiationError reports that cached compiled code could not be turned
// into a component. Treated exactly like a compile failure at save time; at
// rebuild time it marks the definition with a load-error state instead of
// dropping it.
type InstantiationError struct {
	Stage  string
	Reason string
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiation failed (%s): %s", e.Stage, e.Reason)
}

// RuntimeError reports a panic thrown by a mounted card during render. It is
// caught by the per-instance boundary and shown as a localized fallback in
// that card's slot; sibling cards keep rendering.
type RuntimeError struct {
	CardID string
	Value  any
}

func (e *RuntimeError) Error() string {
	if e.CardID == "" {
		return fmt.Sprintf("card render panicked: %v", e.Value)
	}
	return fmt.Sprintf("card %s render panicked: %v", e.CardID, e.Value)
}
