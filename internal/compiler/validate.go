package compiler

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"cardsmith/internal/card"
)

// checkStructure enforces the parts of the dialect that are about file
// shape rather than banned constructs: the package name, the single
// exported function, and its render signature. It returns the entry name
// it settled on (empty when none was found) alongside any findings.
func checkStructure(file *ast.File, fset *token.FileSet) ([]card.CompileFinding, string) {
	var findings []card.CompileFinding
	line := func(pos token.Pos) int { return fset.Position(pos).Line }

	if file.Name.Name != "card" {
		findings = append(findings, card.CompileFinding{
			Rule:   "package",
			Line:   line(file.Name.Pos()),
			Detail: fmt.Sprintf("package %s; card source must be package card", file.Name.Name),
		})
	}

	var entries []*ast.FuncDecl
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Name.IsExported() && d.Recv == nil {
				entries = append(entries, d)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.IsExported() {
						findings = append(findings, exportFinding("type", s.Name, line(s.Name.Pos())))
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.IsExported() {
							kind := "var"
							if d.Tok == token.CONST {
								kind = "const"
							}
							findings = append(findings, exportFinding(kind, name, line(name.Pos())))
						}
					}
				}
			}
		}
	}

	switch len(entries) {
	case 0:
		findings = append(findings, card.CompileFinding{
			Rule:   "entry",
			Detail: "no exported function; declare exactly one, e.g. func Render(c *Card) (string, error)",
		})
		return findings, ""
	case 1:
		entry := entries[0]
		if !hasRenderSignature(entry.Type) {
			findings = append(findings, card.CompileFinding{
				Rule:   "signature",
				Line:   line(entry.Name.Pos()),
				Detail: fmt.Sprintf("func %s must have signature func(*Card) (string, error)", entry.Name.Name),
			})
		}
		return findings, entry.Name.Name
	default:
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name.Name
		}
		findings = append(findings, card.CompileFinding{
			Rule:   "entry",
			Line:   line(entries[1].Name.Pos()),
			Detail: fmt.Sprintf("multiple exported functions (%s); a card exports exactly one", strings.Join(names, ", ")),
		})
		return findings, ""
	}
}

func exportFinding(kind string, name *ast.Ident, line int) card.CompileFinding {
	return card.CompileFinding{
		Rule:   "export",
		Line:   line,
		Detail: fmt.Sprintf("exported %s %s; a card exports exactly one function", kind, name.Name),
	}
}

// hasRenderSignature reports whether ft is func(*Card) (string, error).
// The parameter may be named or anonymous.
func hasRenderSignature(ft *ast.FuncType) bool {
	if ft.TypeParams != nil {
		return false
	}
	if ft.Params == nil || len(ft.Params.List) != 1 {
		return false
	}
	star, ok := ft.Params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	if id, ok := star.X.(*ast.Ident); !ok || id.Name != "Card" {
		return false
	}
	if len(ft.Params.List[0].Names) > 1 {
		return false
	}
	if ft.Results == nil || len(ft.Results.List) != 2 {
		return false
	}
	r0, ok := ft.Results.List[0].Type.(*ast.Ident)
	if !ok || r0.Name != "string" {
		return false
	}
	r1, ok := ft.Results.List[1].Type.(*ast.Ident)
	if !ok || r1.Name != "error" {
		return false
	}
	return true
}
