package pkgspace

import (
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

func TestNormalizeForcesPunctuationIntoMain(t *testing.T) {
	s := New()
	if got := s.Normalize("_", "Foo"); got != "main::_" {
		t.Errorf("Normalize(_) = %q, want main::_", got)
	}
	if got := s.Normalize("x", "Foo"); got != "Foo::x" {
		t.Errorf("Normalize(x) = %q, want Foo::x", got)
	}
	if got := s.Normalize("Bar::x", "Foo"); got != "Bar::x" {
		t.Errorf("already-qualified name changed: %q", got)
	}
}

func TestNormalizeIsCached(t *testing.T) {
	s := New()
	a := s.Normalize("x", "Foo")
	b := s.Normalize("x", "Foo")
	if a != b {
		t.Errorf("normalize not stable: %q vs %q", a, b)
	}
}

func TestPersistentSlotStableIdentity(t *testing.T) {
	s := New()
	a := s.GetPersistentScalar("1", "w")
	b := s.GetPersistentScalar("1", "w")
	if a != b {
		t.Fatal("expected the same *Scalar for repeated lookups of the same persistent slot")
	}
	a.Set(value.Int(42))
	if b.Int64() != 42 {
		t.Errorf("write through a not visible via b: %v", b)
	}
}

func TestGlobalScalarCreateOnDemand(t *testing.T) {
	s := New()
	g := s.GetGlobalScalar("Foo::x")
	if !g.IsUndef() {
		t.Error("expected freshly created global to be Undef")
	}
}

func TestMROLinearizationInheritsOverload(t *testing.T) {
	s := New()
	s.DefineClass("Base", nil)
	s.DefineClass("Mid", []string{"Base"})
	s.DefineClass("Child", []string{"Mid"})

	overload := &value.Code{}
	s.class("Base").Overloads[`""`] = overload

	if got := s.ResolveOperator("Child", `""`); got != overload {
		t.Fatal("expected Child to inherit Base's overload through Mid")
	}
}

func TestAnalyzeCapturesFindsFreeVariable(t *testing.T) {
	body := &ast.Block{Statements: []ast.Statement{
		&ast.ReturnStatement{Value: &ast.BinaryExpr{
			Op:   "*",
			Left: &ast.Identifier{Sigil: '$', Name: "w"},
			Right: &ast.NumberLiteral{Int: 2},
		}},
	}}
	caps := AnalyzeCaptures(body, map[string]bool{})
	if len(caps) != 1 || caps[0].Name != "w" {
		t.Fatalf("expected capture of $w, got %v", caps)
	}
}

func TestAnalyzeCapturesSkipsLocallyDeclared(t *testing.T) {
	body := &ast.Block{Statements: []ast.Statement{
		&ast.ExprStatement{X: &ast.DeclExpr{
			Vars:  []ast.Identifier{{Sigil: '$', Name: "w"}},
			Value: &ast.NumberLiteral{Int: 1},
		}},
		&ast.ReturnStatement{Value: &ast.Identifier{Sigil: '$', Name: "w"}},
	}}
	caps := AnalyzeCaptures(body, map[string]bool{})
	if len(caps) != 0 {
		t.Fatalf("expected no captures, got %v", caps)
	}
}
