// Package interp implements the register-machine interpreter that
// executes a *bytecode.Bytecode artifact directly, without ever
// lowering it further. It is one of the two backends sharing the
// apply(args, context) -> list call ABI; the other is internal/native.
package interp

import (
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Interp holds everything a running chunk needs beyond its own
// Bytecode: the process-wide package/persistent-slot space and the
// arithmetic/comparison surface, bound to an overload resolver so a
// blessed operand dispatches through the same path native code would
// use.
type Interp struct {
	Space *pkgspace.Space
	Ops   value.Ops

	// depth counts frames nested through OP_CALL, guarding against
	// runaway non-tail recursion (see maxCallDepth in frame.go).
	depth int32
}

// New creates an interpreter bound to space, which also serves as the
// overload resolver.
func New(space *pkgspace.Space) *Interp {
	return &Interp{Space: space, Ops: value.Ops{Resolver: space}}
}

// MakeCode wires bc into the shared call ABI: the returned Code's
// Apply runs bc's instructions against a fresh register frame seeded
// with args in register 0, and transparently follows any tail call
// goto &NAME produces before returning to its own caller.
func (ip *Interp) MakeCode(name string, bc *bytecode.Bytecode) *value.Code {
	code := &value.Code{Name: name}
	code.Apply = func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
		return ctlflow.Trampoline(func() ([]value.Scalar, error) {
			return ip.execFrame(bc, args, ctx)
		}, ctx)
	}
	return code
}

// Run executes bc as a top-level program, passing args as its @_.
func (ip *Interp) Run(bc *bytecode.Bytecode, args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
	return ip.MakeCode(bc.SourceFile, bc).Call(args, ctx)
}
