package compiler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/format"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"cardsmith/internal/card"
	"cardsmith/internal/logging"
	"cardsmith/internal/scope"
)

// DefaultMaxSourceBytes caps accepted source size. Card sources are single
// short files; anything near this limit is generated garbage.
const DefaultMaxSourceBytes = 64 << 10

// Compiler validates and canonicalizes card source. It is stateless and
// safe for concurrent use; identical source always yields an identical
// artifact.
type Compiler struct {
	// MaxSourceBytes overrides the source size cap. Zero means
	// DefaultMaxSourceBytes.
	MaxSourceBytes int
}

// New returns a compiler with default limits.
func New() *Compiler {
	return &Compiler{MaxSourceBytes: DefaultMaxSourceBytes}
}

// Compile runs the full pipeline on one card source. Source problems come
// back as *card.CompileError with every finding the pipeline could
// collect in one pass; other errors indicate a host-side fault.
func (c *Compiler) Compile(source string) (*Artifact, error) {
	limit := c.MaxSourceBytes
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}
	if len(source) > limit {
		return nil, card.NewCompileError(card.CompileFinding{
			Rule:   "size",
			Detail: fmt.Sprintf("source is %d bytes, limit is %d", len(source), limit),
		})
	}
	if strings.TrimSpace(source) == "" {
		return nil, card.NewCompileError(card.CompileFinding{
			Rule:   "parse",
			Detail: "source is empty",
		})
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "card.go", ensurePackageClause(source), parser.ParseComments)
	if err != nil {
		return nil, card.NewCompileError(parseFindings(err)...)
	}

	surface := scope.V1()
	findings, entry := checkStructure(file, fset)
	facts := extractFacts(file, fset, surface)

	pol, err := loadPolicy()
	if err != nil {
		return nil, fmt.Errorf("load admission policy: %w", err)
	}
	violations, err := pol.violations(facts)
	if err != nil {
		return nil, fmt.Errorf("evaluate admission policy: %w", err)
	}
	findings = append(findings, violations...)

	if len(findings) > 0 {
		cerr := card.NewCompileError(findings...)
		logging.CompilerDebug("compile rejected: %d finding(s): %v", len(cerr.Findings), cerr)
		return nil, cerr
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("format card source: %w", err)
	}
	body := buf.String()

	sum := sha256.Sum256([]byte(body))
	art := &Artifact{
		Code:         assemble(scope.CurrentVersion, entry, body),
		Entry:        entry,
		ScopeVersion: scope.CurrentVersion,
		SourceHash:   hex.EncodeToString(sum[:]),
	}
	logging.CompilerDebug("compiled entry=%s hash=%s bytes=%d", art.Entry, art.SourceHash[:12], len(art.Code))
	return art, nil
}

// ensurePackageClause prepends "package card" when the author left the
// clause off, which the dialect allows. Sources that already open with a
// package clause (of any name) pass through; a wrong name is caught as a
// structural finding with a better message than the parser's.
func ensurePackageClause(source string) string {
	for _, line := range strings.Split(source, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		if strings.HasPrefix(t, "package ") || t == "package" {
			return source
		}
		break
	}
	return "package card\n\n" + source
}

// parseFindings converts parser errors into findings, one per reported
// position.
func parseFindings(err error) []card.CompileFinding {
	var list scanner.ErrorList
	if el, ok := err.(scanner.ErrorList); ok {
		list = el
	}
	if len(list) == 0 {
		return []card.CompileFinding{{Rule: "parse", Detail: err.Error()}}
	}
	findings := make([]card.CompileFinding, len(list))
	for i, e := range list {
		findings[i] = card.CompileFinding{Rule: "parse", Line: e.Pos.Line, Detail: e.Msg}
	}
	return findings
}

// assemble produces the persisted blob: header, package clause, the
// injected scope binding, then the formatted declarations. The import is
// inserted textually because author imports were rejected earlier, so the
// binding line is always the only one.
func assemble(version int, entry, formatted string) string {
	binding := fmt.Sprintf("import . %q", scope.ImportPath)
	var b strings.Builder
	b.WriteString(buildHeader(version, entry))
	b.WriteString("\n\n")

	inBlock := false
	injected := false
	for _, line := range strings.Split(strings.TrimRight(formatted, "\n"), "\n") {
		b.WriteString(line)
		b.WriteString("\n")
		if injected {
			continue
		}
		t := strings.TrimSpace(line)
		if inBlock {
			if i := strings.Index(t, "*/"); i >= 0 {
				inBlock = false
				t = strings.TrimSpace(t[i+2:])
			} else {
				continue
			}
		}
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		if strings.HasPrefix(t, "/*") {
			inBlock = !strings.Contains(t, "*/")
			continue
		}
		if strings.HasPrefix(t, "package ") {
			b.WriteString("\n")
			b.WriteString(binding)
			b.WriteString("\n")
			injected = true
		}
	}
	return b.String()
}
