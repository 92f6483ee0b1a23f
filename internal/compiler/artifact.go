// Package compiler turns card source text into runnable artifacts. Source
// is a single restricted Go file: optional "package card" clause, no
// imports, exactly one exported function with the render signature. The
// pipeline is parse, structural checks, admission policy, canonical
// formatting; its output embeds everything instantiation needs, so a blob
// loaded years later still knows its entry point and scope version.
package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Artifact is the result of a successful compile. Code is the persisted
// blob; the remaining fields are parsed back out of its header.
type Artifact struct {
	Code         string
	Entry        string
	ScopeVersion int
	SourceHash   string
}

// The header is the blob's first line. It follows the standard generated-
// code convention so editors and lint treat stored card code as machine
// output.
var headerPattern = regexp.MustCompile(`^// Code generated by cardsmith; scope=v(\d+) entry=([A-Za-z_][A-Za-z0-9_]*)\. DO NOT EDIT\.$`)

func buildHeader(version int, entry string) string {
	return fmt.Sprintf("// Code generated by cardsmith; scope=v%d entry=%s. DO NOT EDIT.", version, entry)
}

// ParseHeader reads the entry symbol and scope version off a compiled
// blob. It fails on anything that does not start with a cardsmith header,
// which is how hand-edited or truncated blobs are caught before they
// reach the interpreter.
func ParseHeader(code string) (entry string, version int, err error) {
	first, _, _ := strings.Cut(code, "\n")
	m := headerPattern.FindStringSubmatch(strings.TrimRight(first, "\r"))
	if m == nil {
		return "", 0, fmt.Errorf("missing or malformed artifact header")
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0, fmt.Errorf("artifact header version: %w", err)
	}
	return m[2], v, nil
}
