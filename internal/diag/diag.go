// Package diag implements the error taxonomy and stack-trace rendering
// describes: compile errors carrying a token index, runtime
// errors traced with a call-frame stack, and the control-flow/stack-
// recursion/opcode-absence kinds that sit alongside them.
package diag

import (
	"fmt"
	"strings"
)

// Kind tags the taxonomy names, distinct from Go's error
// type so callers can branch on what happened without a type switch
// over concrete error structs.
type Kind int

const (
	KindCompile Kind = iota
	KindRuntime
	KindControlFlow
	KindStackOverflow
	KindOpcodeAbsence
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile error"
	case KindRuntime:
		return "runtime error"
	case KindControlFlow:
		return "control-flow error"
	case KindStackOverflow:
		return "stack/recursion error"
	case KindOpcodeAbsence:
		return "opcode-absence error"
	default:
		return "error"
	}
}

// CompileError matches the constructor signature front ends call
// explicitly: "(message, token_index)". File/line are filled in by the
// front end (out of scope here) when it has a position to attach.
type CompileError struct {
	Message    string
	TokenIndex int
	File       string
	Line       int
}

func NewCompileError(message string, tokenIndex int) *CompileError {
	return &CompileError{Message: message, TokenIndex: tokenIndex}
}

func (e *CompileError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s (token %d)", e.File, e.Line, e.Message, e.TokenIndex)
	}
	return fmt.Sprintf("%s (token %d)", e.Message, e.TokenIndex)
}

// Frame is one entry of a runtime call-stack trace.
type Frame struct {
	Name string
	File string
	Line int
}

// Traced wraps an underlying error (typically a *value.RuntimeError)
// with the call-frame stack active when it surfaced, and a Kind for
// dispatch at an eval boundary.
type Traced struct {
	Kind  Kind
	Err   error
	Stack []Frame
}

func (e *Traced) Error() string { return e.Err.Error() }
func (e *Traced) Unwrap() error { return e.Err }

// Trace wraps err with kind and the given stack, innermost frame last
// (the order internal/interp naturally appends frames in as it calls
// deeper).
func Trace(kind Kind, err error, stack []Frame) *Traced {
	return &Traced{Kind: kind, Err: err, Stack: stack}
}

// Render produces a multi-line, human-readable report: message, then
// the call chain from innermost to outermost.
func (e *Traced) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", e.Kind, e.Err.Error())
	for i := len(e.Stack) - 1; i >= 0; i-- {
		f := e.Stack[i]
		fmt.Fprintf(&b, "  at %s:%d (in %s)\n", f.File, f.Line, f.Name)
	}
	return b.String()
}

// OpcodeAbsence reports a dispatch switch falling off the end — an
// implementation bug, not a user-facing Perl error — with enough
// detail to find the missing case immediately.
func OpcodeAbsence(op byte, pc int, table string) *Traced {
	return &Traced{
		Kind: KindOpcodeAbsence,
		Err:  fmt.Errorf("unregistered opcode %d at pc=%d in %s dispatch", op, pc, table),
	}
}
