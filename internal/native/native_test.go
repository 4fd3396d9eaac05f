package native

import (
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// TestArithmeticReturn exercises the plain expression-evaluation path:
// return (2 + 3) * 4.
func TestArithmeticReturn(t *testing.T) {
	prog := &ast.Program{
		File: "<test>",
		Body: []ast.Statement{
			&ast.ReturnStatement{
				Value: &ast.BinaryExpr{
					Op: "*",
					Left: &ast.BinaryExpr{
						Op:    "+",
						Left:  &ast.NumberLiteral{Int: 2},
						Right: &ast.NumberLiteral{Int: 3},
					},
					Right: &ast.NumberLiteral{Int: 4},
				},
			},
		},
	}

	e := New(pkgspace.New())
	result, err := e.Run(prog, "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running program: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 20 {
		t.Fatalf("expected [20], got %v", result)
	}
}

// TestForeachLastWithLabel exercises local non-local control flow:
// `last OUTER` addressed to an enclosing labeled loop, resolved purely
// by label matching since it never crosses a call boundary.
func TestForeachLastWithLabel(t *testing.T) {
	// OUTER: foreach my $i (1,2,3,4,5) { last OUTER if $i == 3; $sum += $i; }
	body := &ast.Block{Statements: []ast.Statement{
		&ast.IfStatement{
			Cond: &ast.BinaryExpr{Op: "==", Left: &ast.Identifier{Sigil: '$', Name: "i"}, Right: &ast.NumberLiteral{Int: 3}},
			Then: &ast.Block{Statements: []ast.Statement{
				&ast.LoopControlStatement{Kind: ast.CtlLast, Label: "OUTER"},
			}},
		},
		&ast.ExprStatement{X: &ast.AssignExpr{
			Op:     "+",
			Target: &ast.Identifier{Sigil: '$', Name: "sum"},
			Value:  &ast.Identifier{Sigil: '$', Name: "i"},
		}},
	}}

	prog := &ast.Program{
		File: "<test>",
		Body: []ast.Statement{
			&ast.ExprStatement{X: &ast.DeclExpr{Vars: []ast.Identifier{{Sigil: '$', Name: "sum"}}, Value: &ast.NumberLiteral{Int: 0}}},
			&ast.ForeachStatement{
				Label: "OUTER",
				Var:   &ast.Identifier{Sigil: '$', Name: "i"},
				List: &ast.ArrayLiteral{Elements: []ast.Expression{
					&ast.NumberLiteral{Int: 1}, &ast.NumberLiteral{Int: 2}, &ast.NumberLiteral{Int: 3},
					&ast.NumberLiteral{Int: 4}, &ast.NumberLiteral{Int: 5},
				}},
				Body: body,
			},
			&ast.ReturnStatement{Value: &ast.Identifier{Sigil: '$', Name: "sum"}},
		},
	}

	e := New(pkgspace.New())
	result, err := e.Run(prog, "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running program: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 3 {
		t.Fatalf("expected sum 1+2 == 3, got %v", result)
	}
}

// TestNonLocalLastThroughSubroutine is the cross-call scenario: a
// labeled loop in the top-level program calls a sub whose body
// executes `last OUTER` with no loop of its own. The sub's own Apply
// returns an unresolved marker; the call site (inside the loop body,
// in the same function as the loop) resolves it via the emitter's
// interned Dispatcher and the loop claims it. This is the case that
// makes internal/bytecode.Dispatcher and ctlflow.ResolveDispatcher
// genuinely load-bearing rather than unreached plumbing.
func TestNonLocalLastThroughSubroutine(t *testing.T) {
	// sub breakout { last OUTER; }
	breakout := &ast.SubLiteral{
		Name: "breakout",
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.LoopControlStatement{Kind: ast.CtlLast, Label: "OUTER"},
		}},
	}

	loopBody := &ast.Block{Statements: []ast.Statement{
		&ast.ExprStatement{X: &ast.AssignExpr{
			Op:     "+",
			Target: &ast.Identifier{Sigil: '$', Name: "sum"},
			Value:  &ast.Identifier{Sigil: '$', Name: "i"},
		}},
		&ast.ExprStatement{X: &ast.CallExpr{
			Callee:  &ast.Identifier{Sigil: '&', Name: "breakout"},
			Context: ast.ContextVoid,
		}},
		// Never reached once breakout escapes: would corrupt $sum if
		// the marker weren't claimed by the loop above this line.
		&ast.ExprStatement{X: &ast.AssignExpr{
			Op:     "+",
			Target: &ast.Identifier{Sigil: '$', Name: "sum"},
			Value:  &ast.NumberLiteral{Int: 100},
		}},
	}}

	prog := &ast.Program{
		File: "<test>",
		Body: []ast.Statement{
			&ast.ExprStatement{X: breakout},
			&ast.ExprStatement{X: &ast.DeclExpr{Vars: []ast.Identifier{{Sigil: '$', Name: "sum"}}, Value: &ast.NumberLiteral{Int: 0}}},
			&ast.ForeachStatement{
				Label: "OUTER",
				Var:   &ast.Identifier{Sigil: '$', Name: "i"},
				List: &ast.ArrayLiteral{Elements: []ast.Expression{
					&ast.NumberLiteral{Int: 1}, &ast.NumberLiteral{Int: 2}, &ast.NumberLiteral{Int: 3},
				}},
				Body: loopBody,
			},
			&ast.ReturnStatement{Value: &ast.Identifier{Sigil: '$', Name: "sum"}},
		},
	}

	e := New(pkgspace.New())
	result, err := e.Run(prog, "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running program: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 1 {
		t.Fatalf("expected sum == 1 (loop escapes on first iteration), got %v", result)
	}
}

// TestClosureSharesPersistentCounter mirrors
// interp.TestPersistentSlotSurvivesAcrossCalls: a closure over a `my`
// counter sees the same storage on every call, because the defining
// function's locals were promoted to a persistent slot once it was
// found to contain a nested sub literal.
func TestClosureSharesPersistentCounter(t *testing.T) {
	// sub make_counter { my $n = 0; my $inc = sub { $n = $n + 1; return $n; }; return $inc; }
	inner := &ast.SubLiteral{
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.ReturnStatement{Value: &ast.AssignExpr{
				Target: &ast.Identifier{Sigil: '$', Name: "n"},
				Value: &ast.BinaryExpr{
					Op:    "+",
					Left:  &ast.Identifier{Sigil: '$', Name: "n"},
					Right: &ast.NumberLiteral{Int: 1},
				},
			}},
		}},
	}

	prog := &ast.Program{
		File: "<test>",
		Body: []ast.Statement{
			&ast.ExprStatement{X: &ast.DeclExpr{Vars: []ast.Identifier{{Sigil: '$', Name: "n"}}, Value: &ast.NumberLiteral{Int: 0}}},
			&ast.ExprStatement{X: &ast.DeclExpr{Vars: []ast.Identifier{{Sigil: '$', Name: "inc"}}, Value: inner}},
			&ast.ReturnStatement{Value: &ast.Identifier{Sigil: '$', Name: "inc"}},
		},
	}

	e := New(pkgspace.New())
	result, err := e.Run(prog, "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("running program: %v", err)
	}
	code, ok := result[0].AsCode()
	if !ok {
		t.Fatalf("expected a Code value, got %v", result[0])
	}

	first, err := code.Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := code.Call(value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first[0].Int64() != 1 || second[0].Int64() != 2 {
		t.Fatalf("expected counter to persist across calls, got %v then %v", first, second)
	}
}
