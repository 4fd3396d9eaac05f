package ctlflow

import (
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Trampoline runs first, then keeps following CtlTailCall markers by
// calling their Callee directly rather than recursing back through
// first — this is what keeps `goto &NAME` from growing the Go call
// stack one frame per Perl-level tail call. A result that isn't a tail-call marker (including one that
// is a Last/Next/Redo/Goto marker still looking for its loop) is
// returned to the caller unchanged.
func Trampoline(first func() ([]value.Scalar, error), ctx value.CallContext) ([]value.Scalar, error) {
	result, err := first()
	if err != nil {
		return nil, err
	}
	for {
		m, ok := Unwrap(result)
		if !ok || m.Kind != bytecode.CtlTailCall {
			return result, nil
		}
		result, err = m.Callee.Call(m.Args, ctx)
		if err != nil {
			return nil, err
		}
	}
}
