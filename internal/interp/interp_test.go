package interp

import (
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// u16 splits v into the big-endian byte pair readU16 expects.
func u16(v int) (byte, byte) { return byte(v >> 8), byte(v) }

// TestPersistentSlotSurvivesAcrossCalls builds, by hand, the bytecode a
// `my $counter = 0; my $inc = sub { $counter++; return $counter; }`
// closure compiles to: the closure body reads and writes $counter
// through a persistent slot rather than a captured register, so two
// separate calls to the same Code value see the same cell.
func TestPersistentSlotSurvivesAcrossCalls(t *testing.T) {
	idHi, idLo := u16(0)
	nameHi, nameLo := u16(1)

	body := &bytecode.Bytecode{
		SourceFile:   "<test>",
		Package:      "main",
		NumRegisters: 2,
		Constants:    []value.Scalar{value.Str("1"), value.Str("counter")},
		Code: []byte{
			byte(bytecode.OP_LOAD_PERSISTENT_SCALAR), 1, idHi, idLo, nameHi, nameLo,
			byte(bytecode.OP_ADD_IMM), 1, 1, 0, 1,
			byte(bytecode.OP_STORE_PERSISTENT_SCALAR), 1, idHi, idLo, nameHi, nameLo,
			byte(bytecode.OP_RETURN), 1,
		},
	}

	protoHi, protoLo := u16(0)
	main := &bytecode.Bytecode{
		SourceFile:   "<test>",
		Package:      "main",
		NumRegisters: 1,
		Protos:       []*bytecode.Proto{{Name: "inc", Body: body}},
		Code: []byte{
			byte(bytecode.OP_MAKE_CLOSURE), 0, protoHi, protoLo,
			byte(bytecode.OP_RETURN), 0,
		},
	}

	ip := New(pkgspace.New())
	result, err := ip.Run(main, value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running chunk: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected one result, got %d", len(result))
	}
	inc, ok := result[0].AsCode()
	if !ok {
		t.Fatalf("expected a Code value, got %v", result[0])
	}

	first, err := inc.Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if got := first[0].Int64(); got != 1 {
		t.Errorf("first call returned %d, want 1", got)
	}

	second, err := inc.Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got := second[0].Int64(); got != 2 {
		t.Errorf("second call returned %d, want 2 (persistent slot not shared across calls)", got)
	}
}

// TestLastEscapesThroughCallBoundary builds the bytecode a labeled loop
// calling a subroutine that executes `last OUTER;` compiles to: the
// callee has no loop of its own, so it returns an unresolved marker,
// and the caller's OP_CALL must recognize it against the LoopRegion
// covering the call site and jump straight to the loop's exit instead
// of falling through to the rest of the loop body.
func TestLastEscapesThroughCallBoundary(t *testing.T) {
	labelHi, labelLo := u16(0)
	breaker := &bytecode.Bytecode{
		SourceFile:   "<test>",
		Package:      "main",
		NumRegisters: 1,
		Constants:    []value.Scalar{value.Str("OUTER")},
		Code: []byte{
			byte(bytecode.OP_MAKE_MARKER), 0, byte(bytecode.CtlLast), labelHi, labelLo,
			byte(bytecode.OP_RETURN), 0,
		},
	}

	protoHi, protoLo := u16(0)
	// Layout (byte offsets annotated inline):
	//   0: MAKE_CLOSURE r1 <- proto 0         (breaker)
	//   4: NEW_ARRAY r2
	//   6: CALL r3, r1, r2, void              <- inside the loop region
	//  11: LOAD_INT_IMM r4, 99                <- trap: only reached if the marker didn't escape
	//  15: RETURN r4
	//  17: LOAD_INT_IMM r5, 7                 <- the loop's exit point
	//  21: RETURN r5
	main := &bytecode.Bytecode{
		SourceFile:   "<test>",
		Package:      "main",
		NumRegisters: 6,
		Protos:       []*bytecode.Proto{{Name: "breaker", Body: breaker}},
		LoopRegions: []bytecode.LoopRegion{
			{Start: 6, End: 17, Label: "OUTER", RedoPC: 6, ContinuePC: 6, ExitPC: 17},
		},
		Code: []byte{
			byte(bytecode.OP_MAKE_CLOSURE), 1, protoHi, protoLo,
			byte(bytecode.OP_NEW_ARRAY), 2,
			byte(bytecode.OP_CALL), 3, 1, 2, byte(value.CtxVoid),
			byte(bytecode.OP_LOAD_INT_IMM), 4, 0, 99,
			byte(bytecode.OP_RETURN), 4,
			byte(bytecode.OP_LOAD_INT_IMM), 5, 0, 7,
			byte(bytecode.OP_RETURN), 5,
		},
	}

	ip := New(pkgspace.New())
	result, err := ip.Run(main, value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running chunk: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected one result, got %d", len(result))
	}
	if got := result[0].Int64(); got != 7 {
		t.Errorf("got %d, want 7 (last should have jumped straight to the loop's exit, not fallen through to the trap)", got)
	}
}

// TestStackOverflowGuardTripsOnRunawayRecursion builds a closure that
// calls itself with no base case, confirming execFrame's depth guard
// reports an error well short of exhausting the real goroutine stack.
func TestStackOverflowGuardTripsOnRunawayRecursion(t *testing.T) {
	nameK := value.Str("self")

	self := &bytecode.Bytecode{
		SourceFile:   "<test>",
		Package:      "main",
		NumRegisters: 3,
		Constants:    []value.Scalar{nameK},
		Code: []byte{
			byte(bytecode.OP_LOAD_GLOBAL_CODE), 1, 0, 0,
			byte(bytecode.OP_NEW_ARRAY), 2,
			byte(bytecode.OP_CALL), 0, 1, 2, byte(value.CtxVoid),
			byte(bytecode.OP_RETURN), 0,
		},
	}

	ip := New(pkgspace.New())
	code := ip.MakeCode("self", self)
	ip.Space.SetGlobalCode("main::self", code)

	_, err := code.Call(value.NewArray(), value.CtxVoid)
	if err == nil {
		t.Fatal("expected the call depth guard to report an error for unbounded recursion")
	}
}
