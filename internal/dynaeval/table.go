// Package dynaeval implements the dynamic `eval STRING` integration
// described in SPEC_FULL.md §4.6: a configuration switch picks which
// backend a given eval call site compiles to, and interpreter-backed
// evals reach the caller through a process-wide marker-artifact table
// rather than a direct reference, so a native call site's own shape
// never has to change depending on which backend services it.
package dynaeval

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Table is the process-wide table of interpreter-compiled artifacts,
// keyed by a generated id. Reads (Lookup, through Wrapper) vastly
// outnumber writes (Register), matching the read-dominated access
// pattern SPEC_FULL.md's concurrency section asks every process-wide
// table to support; a sync.RWMutex is adequate here since artifact
// registration happens once per compiled eval string, never per call.
type Table struct {
	mu    sync.RWMutex
	codes map[string]*value.Code
}

// NewTable creates an empty artifact table. Tests build their own so
// they don't share state with Shared() or with each other.
func NewTable() *Table {
	return &Table{codes: map[string]*value.Code{}}
}

var shared = NewTable()

// Shared is the table every call to Eval (in eval.go) registers
// interpreter-compiled artifacts into by default.
func Shared() *Table { return shared }

// Register assigns code a fresh, collision-free id (github.com/google/uuid,
// the teacher's own id generator, already used for persistent-slot
// scope ids) and stores it, returning the id a Wrapper closes over.
func (t *Table) Register(code *value.Code) string {
	id := uuid.NewString()
	t.mu.Lock()
	t.codes[id] = code
	t.mu.Unlock()
	return id
}

// Lookup resolves id to the artifact registered under it, if any.
func (t *Table) Lookup(id string) (*value.Code, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.codes[id]
	return c, ok
}

// Wrapper builds the "fixed wrapper" spec.md §4.6 calls for: a
// value.Code whose Apply resolves id against t at call time, not at
// wrap-build time. That indirection is the point — it lets a native
// call site hold this exact Code value permanently while the artifact
// behind id is replaced (e.g. re-registered after the eval string is
// re-evaluated) without the call site ever needing to know.
func (t *Table) Wrapper(id string) *value.Code {
	return &value.Code{
		Name: "eval:" + id,
		Apply: func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
			code, ok := t.Lookup(id)
			if !ok {
				return nil, value.Errf("dynaeval", "marker artifact %s not registered", id)
			}
			return code.Call(args, ctx)
		},
	}
}
