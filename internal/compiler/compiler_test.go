package compiler

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"cardsmith/internal/card"
	"cardsmith/internal/scope"
)

const validSource = `package card

// Render lists the busiest servers first.
func Render(c *Card) (string, error) {
	rows := SortBy(c.Rows(), "cpu", true)
	var lines []string
	for _, r := range rows {
		lines = append(lines, Sprintf("%s %s", r.Str("name"), FormatNumber(r.Num("cpu"))))
	}
	return Merge(lines...), nil
}
`

func compileErr(t *testing.T, source string) *card.CompileError {
	t.Helper()
	_, err := New().Compile(source)
	if err == nil {
		t.Fatal("Compile succeeded, want CompileError")
	}
	var cerr *card.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error is %T (%v), want *card.CompileError", err, err)
	}
	return cerr
}

func hasFinding(findings []card.CompileFinding, rule, detailPart string) bool {
	for _, f := range findings {
		if f.Rule == rule && strings.Contains(f.Detail, detailPart) {
			return true
		}
	}
	return false
}

func TestCompileValidSource(t *testing.T) {
	art, err := New().Compile(validSource)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if art.Entry != "Render" {
		t.Errorf("Entry = %q", art.Entry)
	}
	if art.ScopeVersion != scope.CurrentVersion {
		t.Errorf("ScopeVersion = %d", art.ScopeVersion)
	}
	if len(art.SourceHash) != 64 {
		t.Errorf("SourceHash = %q, want 64 hex chars", art.SourceHash)
	}

	wantHeader := "// Code generated by cardsmith; scope=v1 entry=Render. DO NOT EDIT.\n"
	if !strings.HasPrefix(art.Code, wantHeader) {
		t.Errorf("Code header = %q", strings.SplitN(art.Code, "\n", 2)[0])
	}
	if !strings.Contains(art.Code, "\npackage card\n") {
		t.Error("Code missing package clause")
	}
	if !strings.Contains(art.Code, "\nimport . \"cardkit\"\n") {
		t.Error("Code missing scope binding import")
	}

	// The blob must itself be a well-formed Go file.
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "blob.go", art.Code, parser.ParseComments); err != nil {
		t.Errorf("artifact does not re-parse: %v", err)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c := New()
	a, err := c.Compile(validSource)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	b, err := c.Compile(validSource)
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if a.Code != b.Code {
		t.Error("identical source produced different blobs")
	}
	if a.SourceHash != b.SourceHash {
		t.Error("identical source produced different hashes")
	}
}

func TestCompileNormalizesFormatting(t *testing.T) {
	// Same declarations, scrambled whitespace.
	messy := "package card\n\n\n// Render lists the busiest servers first.\nfunc Render(c *Card) (string,error) {\n\trows := SortBy(c.Rows(), \"cpu\",   true)\n\tvar lines []string\n\tfor _, r := range rows {\n\t\tlines = append(lines, Sprintf(\"%s %s\", r.Str(\"name\"), FormatNumber(r.Num(\"cpu\"))))\n\t}\n\treturn Merge(lines...), nil\n}\n"
	a, err := New().Compile(validSource)
	if err != nil {
		t.Fatalf("compile clean: %v", err)
	}
	b, err := New().Compile(messy)
	if err != nil {
		t.Fatalf("compile messy: %v", err)
	}
	if a.SourceHash != b.SourceHash {
		t.Error("formatting-only differences changed the canonical hash")
	}
}

func TestCompileInjectsPackageClause(t *testing.T) {
	src := `// Count renders the row count.
func Count(c *Card) (string, error) {
	return Sprintf("%d rows", len(c.Rows())), nil
}
`
	art, err := New().Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if art.Entry != "Count" {
		t.Errorf("Entry = %q", art.Entry)
	}
	if !strings.Contains(art.Code, "package card") {
		t.Error("package clause not injected")
	}
}

func TestCompileRejectsUnbalancedBrace(t *testing.T) {
	cerr := compileErr(t, "package card\n\nfunc Render(c *Card) (string, error) {\n\treturn \"\", nil\n")
	if !hasFinding(cerr.Findings, "parse", "") {
		t.Errorf("findings = %v, want a parse finding", cerr.Findings)
	}
}

func TestCompileRejectsEmptySource(t *testing.T) {
	cerr := compileErr(t, "   \n\t\n")
	if !hasFinding(cerr.Findings, "parse", "empty") {
		t.Errorf("findings = %v", cerr.Findings)
	}
}

func TestCompileRejectsImports(t *testing.T) {
	src := `package card

import "os"

func Render(c *Card) (string, error) {
	return os.Getenv("HOME"), nil
}
`
	cerr := compileErr(t, src)
	if !hasFinding(cerr.Findings, "import", "os") {
		t.Errorf("findings = %v, want import finding for os", cerr.Findings)
	}
}

func TestCompileRejectsConcurrency(t *testing.T) {
	src := `package card

func Render(c *Card) (string, error) {
	ch := make(chan string, 1)
	go func() {
		ch <- "done"
	}()
	select {
	case s := <-ch:
		return s, nil
	}
}
`
	cerr := compileErr(t, src)
	for _, want := range []struct{ rule, detail string }{
		{"goroutine", "go statement"},
		{"channel", "chan type"},
		{"channel", "send"},
		{"channel", "receive"},
		{"select", "select statement"},
	} {
		if !hasFinding(cerr.Findings, want.rule, want.detail) {
			t.Errorf("missing finding %s/%s in %v", want.rule, want.detail, cerr.Findings)
		}
	}
}

func TestCompileRejectsUnknownNames(t *testing.T) {
	src := `package card

func Render(c *Card) (string, error) {
	return FetchURL("https://example.com"), nil
}
`
	cerr := compileErr(t, src)
	if !hasFinding(cerr.Findings, "unknown-name", "FetchURL") {
		t.Errorf("findings = %v", cerr.Findings)
	}
}

func TestCompileAllowsLocalDeclarations(t *testing.T) {
	src := `package card

type tally struct {
	label string
	n     int
}

func (t tally) text() string {
	return Sprintf("%s=%d", t.label, t.n)
}

func bump(m map[string]int, key string) {
	m[key]++
}

func Render(c *Card) (string, error) {
	counts := map[string]int{}
	for _, r := range c.Rows() {
		bump(counts, r.Str("region"))
	}
	var out []string
	for label, n := range counts {
		out = append(out, tally{label: label, n: n}.text())
	}
	return Merge(SortBy(nil, "", false)[:0]...), ErrNone(out)
}

func ErrNone(out []string) error {
	return nil
}
`
	// ErrNone is a second exported function, so this must fail on the
	// export rule and nothing else.
	cerr := compileErr(t, src)
	if !hasFinding(cerr.Findings, "entry", "multiple exported functions") {
		t.Errorf("findings = %v", cerr.Findings)
	}
	for _, f := range cerr.Findings {
		if f.Rule == "unknown-name" {
			t.Errorf("local declaration flagged unknown: %v", f)
		}
	}
}

func TestCompileRejectsDeniedBuiltins(t *testing.T) {
	src := `package card

func Render(c *Card) (string, error) {
	if len(c.Rows()) == 0 {
		panic("no data")
	}
	println("debug")
	return "", nil
}
`
	cerr := compileErr(t, src)
	if !hasFinding(cerr.Findings, "denied-call", "panic") {
		t.Errorf("findings = %v, want denied-call panic", cerr.Findings)
	}
	if !hasFinding(cerr.Findings, "denied-call", "println") {
		t.Errorf("findings = %v, want denied-call println", cerr.Findings)
	}
	// len is allowed.
	if hasFinding(cerr.Findings, "denied-call", "len") {
		t.Errorf("len wrongly denied: %v", cerr.Findings)
	}
}

func TestCompileRejectsWrongSignature(t *testing.T) {
	for name, src := range map[string]string{
		"no params":    "package card\n\nfunc Render() (string, error) {\n\treturn \"\", nil\n}\n",
		"value card":   "package card\n\nfunc Render(c Card) (string, error) {\n\treturn \"\", nil\n}\n",
		"one result":   "package card\n\nfunc Render(c *Card) string {\n\treturn \"\"\n}\n",
		"int result":   "package card\n\nfunc Render(c *Card) (int, error) {\n\treturn 0, nil\n}\n",
		"type params":  "package card\n\nfunc Render[T any](c *Card) (string, error) {\n\treturn \"\", nil\n}\n",
		"extra param":  "package card\n\nfunc Render(c *Card, n int) (string, error) {\n\treturn \"\", nil\n}\n",
		"swapped rets": "package card\n\nfunc Render(c *Card) (error, string) {\n\treturn nil, \"\"\n}\n",
	} {
		t.Run(name, func(t *testing.T) {
			cerr := compileErr(t, src)
			if !hasFinding(cerr.Findings, "signature", "func(*Card) (string, error)") {
				t.Errorf("findings = %v", cerr.Findings)
			}
		})
	}
}

func TestCompileAcceptsNamedResults(t *testing.T) {
	src := `package card

func Render(c *Card) (out string, err error) {
	out = c.Title()
	return out, nil
}
`
	if _, err := New().Compile(src); err != nil {
		t.Fatalf("Compile: %v", err)
	}
}

func TestCompileRejectsMissingEntry(t *testing.T) {
	cerr := compileErr(t, "package card\n\nfunc helper() int {\n\treturn 1\n}\n")
	if !hasFinding(cerr.Findings, "entry", "no exported function") {
		t.Errorf("findings = %v", cerr.Findings)
	}
}

func TestCompileRejectsExportedValues(t *testing.T) {
	src := `package card

const Version = "1"

type Options struct{}

func Render(c *Card) (string, error) {
	return Version, nil
}
`
	cerr := compileErr(t, src)
	if !hasFinding(cerr.Findings, "export", "const Version") {
		t.Errorf("findings = %v", cerr.Findings)
	}
	if !hasFinding(cerr.Findings, "export", "type Options") {
		t.Errorf("findings = %v", cerr.Findings)
	}
}

func TestCompileRejectsWrongPackageName(t *testing.T) {
	cerr := compileErr(t, "package main\n\nfunc Render(c *Card) (string, error) {\n\treturn \"\", nil\n}\n")
	if !hasFinding(cerr.Findings, "package", "package main") {
		t.Errorf("findings = %v", cerr.Findings)
	}
}

func TestCompileSizeLimit(t *testing.T) {
	c := &Compiler{MaxSourceBytes: 32}
	_, err := c.Compile(validSource)
	var cerr *card.CompileError
	if !errors.As(err, &cerr) || !hasFinding(cerr.Findings, "size", "limit is 32") {
		t.Errorf("err = %v", err)
	}
}

func TestCompileErrorMessageSortedByLine(t *testing.T) {
	src := `package card

import "os"

func Render(c *Card) (string, error) {
	go helper()
	return Unknown1(), nil
}

func helper() {}
`
	cerr := compileErr(t, src)
	lines := make([]int, len(cerr.Findings))
	for i, f := range cerr.Findings {
		lines[i] = f.Line
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] < lines[i-1] {
			t.Fatalf("findings out of order: %v", lines)
		}
	}
}

func TestParseHeaderRoundTrip(t *testing.T) {
	art, err := New().Compile(validSource)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	entry, version, err := ParseHeader(art.Code)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if entry != "Render" || version != scope.CurrentVersion {
		t.Errorf("ParseHeader = (%q, %d)", entry, version)
	}
}

func TestParseHeaderRejectsGarbage(t *testing.T) {
	for _, code := range []string{
		"",
		"package card\n",
		"// some other comment\npackage card\n",
		"// Code generated by cardsmith; scope=vX entry=Render. DO NOT EDIT.\n",
	} {
		if _, _, err := ParseHeader(code); err == nil {
			t.Errorf("ParseHeader(%q) succeeded", code)
		}
	}
}

func TestEnsurePackageClause(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool // whether the clause gets injected
	}{
		{"bare func", "func X() {}", true},
		{"already present", "package card\nfunc X() {}", false},
		{"other package kept", "package other\nfunc X() {}", false},
		{"leading comment", "// hi\nfunc X() {}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ensurePackageClause(tt.in)
			if tt.want && out != "package card\n\n"+tt.in {
				t.Errorf("clause not injected: %q", out)
			}
			if !tt.want && out != tt.in {
				t.Errorf("source modified: %q", out)
			}
		})
	}
}
