// Package frontend defines the seam between source text and the
// ast.Program this core actually executes. Lexing, parsing and name
// resolution are explicitly out of scope for this repo (see
// SPEC_FULL.md §1); Parser exists so cmd/plcore and
// internal/dynaeval have something concrete to call for -e/-E source
// strings and `eval STRING` without hard-coding the absence of a real
// front end into their own logic.
package frontend

import "github.com/fglock/PerlOnJava-sub015/internal/ast"

// Parser turns source text for the named package into a Program. pkg
// is the package the source should be compiled against when source
// contains no explicit `package` statement of its own.
type Parser interface {
	Parse(source, pkg string) (*ast.Program, error)
}

// Unimplemented is the only Parser this repo ships: every call fails
// with a message naming what was asked of it, so a caller wiring -e
// CODE or `eval STRING` through it gets an honest, immediately
// diagnosable error instead of a silent empty program.
type Unimplemented struct{}

func (Unimplemented) Parse(source, pkg string) (*ast.Program, error) {
	return nil, &UnwiredError{SourceLen: len(source), Package: pkg}
}

// UnwiredError reports that no front end is available to parse
// source text. cmd/plcore and internal/dynaeval both surface this
// verbatim rather than wrapping it, since there's nothing more to add.
type UnwiredError struct {
	SourceLen int
	Package   string
}

func (e *UnwiredError) Error() string {
	return "frontend: no parser wired; cannot compile source for package " +
		e.Package + " (use a bytecode/AST fixture instead)"
}
