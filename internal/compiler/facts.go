package compiler

import (
	"go/ast"
	"go/token"
	"strings"

	mast "github.com/google/mangle/ast"

	"cardsmith/internal/scope"
)

// srcFact is one extracted observation about the source, destined for the
// admission policy. Arguments are already in term form so the policy layer
// stays free of shape switches.
type srcFact struct {
	pred string
	args []mast.BaseTerm
}

func lineFact(pred string, line int) srcFact {
	return srcFact{pred: pred, args: []mast.BaseTerm{mast.Number(int64(line))}}
}

func detailFact(pred, detail string, line int) srcFact {
	return srcFact{pred: pred, args: []mast.BaseTerm{mast.String(detail), mast.Number(int64(line))}}
}

// Universe names card code may always reference. Whether a builtin call is
// acceptable is the policy's decision, not this table's; listing a name
// here only means it is not an unknown reference.
var universeNames = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true,
	"true":    true, "false": true, "iota": true, "nil": true,
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"panic": true, "print": true, "println": true, "real": true,
	"recover": true,
}

var builtinFuncs = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"panic": true, "print": true, "println": true, "real": true,
	"recover": true,
}

// extractFacts walks the parsed source and emits policy facts: imports,
// concurrency constructs, builtin calls, and references to names that are
// neither declared locally nor part of the scope surface.
func extractFacts(file *ast.File, fset *token.FileSet, surface *scope.Surface) []srcFact {
	var facts []srcFact
	line := func(pos token.Pos) int { return fset.Position(pos).Line }

	for _, imp := range file.Imports {
		facts = append(facts, detailFact("uses_import", strings.Trim(imp.Path.Value, `"`), line(imp.Pos())))
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.GoStmt:
			facts = append(facts, lineFact("spawns_goroutine", line(node.Pos())))
		case *ast.SelectStmt:
			facts = append(facts, lineFact("uses_select", line(node.Pos())))
		case *ast.SendStmt:
			facts = append(facts, detailFact("uses_channel_op", "send", line(node.Pos())))
		case *ast.UnaryExpr:
			if node.Op == token.ARROW {
				facts = append(facts, detailFact("uses_channel_op", "receive", line(node.Pos())))
			}
		case *ast.ChanType:
			facts = append(facts, detailFact("uses_channel_op", "chan type", line(node.Pos())))
		case *ast.CallExpr:
			if id, ok := node.Fun.(*ast.Ident); ok && builtinFuncs[id.Name] {
				facts = append(facts, detailFact("calls_builtin", id.Name, line(id.Pos())))
			}
		}
		return true
	})

	declared := declaredNames(file)
	seen := map[string]bool{}
	for _, ref := range referencedIdents(file) {
		if declared[ref.Name] || universeNames[ref.Name] || surface.Has(ref.Name) {
			continue
		}
		key := ref.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		facts = append(facts, detailFact("unknown_reference", ref.Name, line(ref.Pos())))
	}

	return facts
}

// declaredNames collects every identifier the file itself introduces, at
// any nesting depth. Scope flattening over-approximates visibility, which
// can only suppress findings, never invent them.
func declaredNames(file *ast.File) map[string]bool {
	declared := map[string]bool{}
	add := func(id *ast.Ident) {
		if id != nil && id.Name != "_" {
			declared[id.Name] = true
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncDecl:
			add(node.Name)
			for _, f := range fields(node.Recv) {
				add(f)
			}
		case *ast.FuncType:
			for _, f := range fields(node.Params) {
				add(f)
			}
			for _, f := range fields(node.Results) {
				add(f)
			}
		case *ast.TypeSpec:
			add(node.Name)
		case *ast.ValueSpec:
			for _, name := range node.Names {
				add(name)
			}
		case *ast.AssignStmt:
			if node.Tok == token.DEFINE {
				for _, lhs := range node.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						add(id)
					}
				}
			}
		case *ast.RangeStmt:
			if node.Tok == token.DEFINE {
				if id, ok := node.Key.(*ast.Ident); ok {
					add(id)
				}
				if id, ok := node.Value.(*ast.Ident); ok {
					add(id)
				}
			}
		case *ast.LabeledStmt:
			add(node.Label)
		}
		return true
	})
	return declared
}

func fields(fl *ast.FieldList) []*ast.Ident {
	if fl == nil {
		return nil
	}
	var out []*ast.Ident
	for _, f := range fl.List {
		out = append(out, f.Names...)
	}
	return out
}

// referencedIdents returns the identifiers used in value or type position,
// excluding ones that only name things: declaration sites, selector
// members, struct fields, composite-literal keys, and branch labels.
func referencedIdents(file *ast.File) []*ast.Ident {
	skip := map[token.Pos]bool{}
	mark := func(id *ast.Ident) {
		if id != nil {
			skip[id.Pos()] = true
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.File:
			mark(node.Name)
		case *ast.ImportSpec:
			mark(node.Name)
		case *ast.FuncDecl:
			mark(node.Name)
		case *ast.Field:
			for _, name := range node.Names {
				mark(name)
			}
		case *ast.TypeSpec:
			mark(node.Name)
		case *ast.ValueSpec:
			for _, name := range node.Names {
				mark(name)
			}
		case *ast.AssignStmt:
			if node.Tok == token.DEFINE {
				for _, lhs := range node.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						mark(id)
					}
				}
			}
		case *ast.RangeStmt:
			if node.Tok == token.DEFINE {
				if id, ok := node.Key.(*ast.Ident); ok {
					mark(id)
				}
				if id, ok := node.Value.(*ast.Ident); ok {
					mark(id)
				}
			}
		case *ast.SelectorExpr:
			mark(node.Sel)
		case *ast.KeyValueExpr:
			// Struct-literal field names are not references. Map-literal
			// keys that happen to be identifiers are skipped with them;
			// the interpreter still resolves those at mount time.
			if id, ok := node.Key.(*ast.Ident); ok {
				mark(id)
			}
		case *ast.LabeledStmt:
			mark(node.Label)
		case *ast.BranchStmt:
			mark(node.Label)
		}
		return true
	})

	var refs []*ast.Ident
	ast.Inspect(file, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if id.Name != "_" && !skip[id.Pos()] {
				refs = append(refs, id)
			}
		}
		return true
	})
	return refs
}
