// Package ctlflow implements the tagged-return mechanism that lets
// last/next/redo/goto/tail-call unwind across call boundaries without
// host exceptions. internal/interp and internal/native both depend on
// this package; internal/value and internal/bytecode never import it,
// so the dependency runs one direction only.
package ctlflow

import (
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Marker is the concrete payload riding inside the Reference
// value.ControlMarker wraps. It carries everything a dispatcher (in
// the native backend) or a LoopRegion scan (in the interpreter) needs
// to decide whether it owns the signal or must propagate it further
// up the call chain.
type Marker struct {
	Kind     bytecode.ControlKind
	Label    string
	Location string // source position captured when the marker was made

	// Callee/Args are populated only for Kind == CtlTailCall: the
	// target of `goto &NAME` and its (possibly replaced) argument list.
	Callee *value.Code
	Args   *value.Array
}

// Wrap produces the []Scalar shape Code.Apply returns for an in-flight
// marker.
func Wrap(m *Marker) []value.Scalar { return value.ControlMarker(m) }

// Unwrap recovers a Marker from a call result, reporting ok=false for
// an ordinary (non-marker) result.
func Unwrap(result []value.Scalar) (*Marker, bool) {
	raw, ok := value.AsControlMarker(result)
	if !ok {
		return nil, false
	}
	m, ok := raw.(*Marker)
	return m, ok
}

// MatchLoop reports whether m addresses the loop named label. An
// unlabeled marker always matches, the fast path that skips straight
// to the innermost visible loop rather than scanning labels.
func (m *Marker) MatchLoop(label string) bool {
	return m.Label == "" || m.Label == label
}

// ResolveDispatcher finds the loop index within d that m addresses,
// used by internal/native's per-block dispatchers. Index 0 is innermost. An unlabeled marker always resolves to
// index 0 without scanning — the fast path.
func ResolveDispatcher(d *bytecode.Dispatcher, m *Marker) (idx int, ok bool) {
	if d == nil || len(d.Labels) == 0 {
		return 0, false
	}
	if m.Label == "" {
		return 0, true
	}
	for i, l := range d.Labels {
		if l == m.Label {
			return i, true
		}
	}
	return 0, false
}
