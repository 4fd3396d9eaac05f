package dynaeval

import (
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// TestWrapperResolvesAtCallTime exercises the indirection the marker
// artifact exists for: a Wrapper built before its artifact is
// registered fails, but the identical Wrapper value succeeds once the
// id it closes over is registered, without having been rebuilt.
func TestWrapperResolvesAtCallTime(t *testing.T) {
	tbl := NewTable()
	id := "not-yet-registered"
	w := tbl.Wrapper(id)

	if _, err := w.Call(value.NewArray(), value.CtxScalar); err == nil {
		t.Fatalf("expected an error calling an unregistered artifact")
	}

	real := &value.Code{Name: "real", Apply: func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
		return []value.Scalar{value.Int(42)}, nil
	}}
	tbl.mu.Lock()
	tbl.codes[id] = real
	tbl.mu.Unlock()

	result, err := w.Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("calling wrapper after registration: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 42 {
		t.Fatalf("expected [42], got %v", result)
	}
}

func TestRegisterLookup(t *testing.T) {
	tbl := NewTable()
	code := &value.Code{Name: "x", Apply: func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
		return []value.Scalar{value.Str("hi")}, nil
	}}
	id := tbl.Register(code)
	got, ok := tbl.Lookup(id)
	if !ok || got != code {
		t.Fatalf("expected Lookup to return the registered code")
	}

	result, err := tbl.Wrapper(id).Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("calling wrapper: %v", err)
	}
	if len(result) != 1 || result[0].String() != "hi" {
		t.Fatalf("expected [hi], got %v", result)
	}
}
