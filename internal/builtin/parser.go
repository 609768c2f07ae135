// Package builtin ships the reference executors that drive CodeBatch
// end to end: parse, lint, analyze, symbols. They implement a
// deliberately narrow line-oriented front end for a Python-like
// language — not a general analyzer, just enough to make the
// substrate's determinism and output contracts exercisable without an
// external parser dependency.
package builtin

import (
	"regexp"
	"strings"
)

var (
	reImport     = regexp.MustCompile(`^\s*import\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?\s*$`)
	reFromImport = regexp.MustCompile(`^\s*from\s+\S+\s+import\s+([A-Za-z_][A-Za-z0-9_]*)`)
	reDef        = regexp.MustCompile(`^def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	reClass      = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[:(]`)
	reAssign     = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=[^=]`)
	reIdent      = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	reBranch     = regexp.MustCompile(`\b(if|elif|for|while|and|or)\b`)
)

// importDecl is one `import x` or `from m import x` line, at any
// indentation.
type importDecl struct {
	Name string
	Line int
}

// defDecl is one top-level `def name(...)` line.
type defDecl struct {
	Name string
	Line int
}

// classDecl is one top-level `class Name:` line.
type classDecl struct {
	Name string
	Line int
}

// assignDecl is one simple `name = expr` assignment line.
type assignDecl struct {
	Name string
	Line int
}

// fileAST is the shared parse result every builtin executor consumes.
type fileAST struct {
	Lines       []string
	Imports     []importDecl
	Defs        []defDecl
	Classes     []classDecl
	Assigns     []assignDecl
	BranchCount int
}

// parse tokenizes source into fileAST using 1-indexed line numbers,
// matching the shape of a hand-rolled top-level statement scanner: no
// indentation-aware block parsing, no expression evaluation.
func parse(source string) fileAST {
	lines := strings.Split(source, "\n")
	var ast fileAST
	ast.Lines = lines

	for i, line := range lines {
		lineNo := i + 1

		if m := reImport.FindStringSubmatch(line); m != nil {
			name := m[1]
			if m[2] != "" {
				name = m[2]
			}
			ast.Imports = append(ast.Imports, importDecl{Name: name, Line: lineNo})
			continue
		}
		if m := reFromImport.FindStringSubmatch(line); m != nil {
			ast.Imports = append(ast.Imports, importDecl{Name: m[1], Line: lineNo})
			continue
		}
		if m := reDef.FindStringSubmatch(line); m != nil {
			ast.Defs = append(ast.Defs, defDecl{Name: m[1], Line: lineNo})
			continue
		}
		if m := reClass.FindStringSubmatch(line); m != nil {
			ast.Classes = append(ast.Classes, classDecl{Name: m[1], Line: lineNo})
			continue
		}
		if m := reAssign.FindStringSubmatch(line); m != nil {
			ast.Assigns = append(ast.Assigns, assignDecl{Name: m[1], Line: lineNo})
			continue
		}

		ast.BranchCount += len(reBranch.FindAllString(line, -1))
	}
	return ast
}

// referencedOutsideLine reports whether ident appears as a whole word
// on any line other than declLine.
func referencedOutsideLine(lines []string, ident string, declLine int) bool {
	for i, line := range lines {
		lineNo := i + 1
		if lineNo == declLine {
			continue
		}
		for _, word := range reIdent.FindAllString(line, -1) {
			if word == ident {
				return true
			}
		}
	}
	return false
}
