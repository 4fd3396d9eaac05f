package bytecode

import (
	"strings"
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
)

func TestOpcodeSpaceIsDenseAndNamed(t *testing.T) {
	for op := Op(0); op < NumOpcodes; op++ {
		if op.Name() == "UNKNOWN" {
			t.Errorf("opcode %d has no name: opcode space must stay dense for the jump-table dispatch", op)
		}
	}
	if Op(NumOpcodes).Name() != "UNKNOWN" {
		t.Error("NumOpcodes itself must not decode to a real opcode")
	}
}

func TestSubOpcodeSpaceIsDenseAndNamed(t *testing.T) {
	for op := SubOp(0); op < NumSubOps; op++ {
		if op.Name() == "UNKNOWN" {
			t.Errorf("sub-opcode %d has no name", op)
		}
	}
}

func TestDisassembleHandlesEveryOpcode(t *testing.T) {
	// Every opcode must be reachable in disassembleInstr's switch
	// without panicking, even on zeroed operand bytes. This walks the
	// switch indirectly by round-tripping a tiny real program below
	// and trusting Go's exhaustiveness is checked by code review; this
	// test instead locks down that compiling a representative program
	// produces instructions Disassemble can render without panicking.
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ExprStatement{X: &ast.DeclExpr{
			Vars:  []ast.Identifier{{Sigil: '$', Name: "x"}},
			Value: &ast.NumberLiteral{Int: 1},
		}},
		&ast.ForStatement{
			Init: &ast.AssignExpr{Target: &ast.Identifier{Sigil: '$', Name: "x"}, Value: &ast.NumberLiteral{Int: 0}},
			Cond: &ast.BinaryExpr{Op: "<", Left: &ast.Identifier{Sigil: '$', Name: "x"}, Right: &ast.NumberLiteral{Int: 10}},
			Post: &ast.UnaryExpr{Op: "++", Operand: &ast.Identifier{Sigil: '$', Name: "x"}},
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.LoopControlStatement{Kind: ast.CtlNext},
			}},
		},
		&ast.ReturnStatement{Value: &ast.Identifier{Sigil: '$', Name: "x"}},
	}}
	bc := CompileProgram(prog, "t.pl", "main")
	out := Disassemble(bc, "main")
	if !strings.Contains(out, "HALT") {
		t.Errorf("expected disassembly to reach HALT, got:\n%s", out)
	}
}

func TestCompileSimpleArithmeticReturn(t *testing.T) {
	// return 1 + 2;
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ReturnStatement{Value: &ast.BinaryExpr{
			Op:    "+",
			Left:  &ast.NumberLiteral{Int: 1},
			Right: &ast.NumberLiteral{Int: 2},
		}},
	}}
	bc := CompileProgram(prog, "t.pl", "main")
	foundAdd, foundReturn := false, false
	for _, b := range bc.Code {
		if Op(b) == OP_ADD {
			foundAdd = true
		}
		if Op(b) == OP_RETURN {
			foundReturn = true
		}
	}
	if !foundAdd || !foundReturn {
		t.Errorf("expected ADD and RETURN in compiled output, got:\n%s", Disassemble(bc, "main"))
	}
}

func TestClosureCaptureEmitsPersistentSlotOps(t *testing.T) {
	// my $w = 10; my $inner = sub { return $w * 2; };
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ExprStatement{X: &ast.DeclExpr{
			Vars:  []ast.Identifier{{Sigil: '$', Name: "w"}},
			Value: &ast.NumberLiteral{Int: 10},
		}},
		&ast.ExprStatement{X: &ast.DeclExpr{
			Vars: []ast.Identifier{{Sigil: '$', Name: "inner"}},
			Value: &ast.SubLiteral{
				Body: &ast.Block{Statements: []ast.Statement{
					&ast.ReturnStatement{Value: &ast.BinaryExpr{
						Op:    "*",
						Left:  &ast.Identifier{Sigil: '$', Name: "w"},
						Right: &ast.NumberLiteral{Int: 2},
					}},
				}},
			},
		}},
	}}
	bc := CompileProgram(prog, "t.pl", "main")
	if len(bc.Protos) != 1 {
		t.Fatalf("expected one compiled proto for the nested sub, got %d", len(bc.Protos))
	}
	if len(bc.Protos[0].Captures) != 1 || bc.Protos[0].Captures[0].Name != "w" {
		t.Fatalf("expected the proto to capture $w, got %v", bc.Protos[0].Captures)
	}
	var foundLoad bool
	for _, bb := range bc.Protos[0].Body.Code {
		if Op(bb) == OP_LOAD_PERSISTENT_SCALAR {
			foundLoad = true
		}
	}
	if !foundLoad {
		t.Errorf("expected the closure body to read $w via a persistent slot, got:\n%s", Disassemble(bc.Protos[0].Body, "inner"))
	}
}

func TestLoadFixtureAssemblesConstantsAndCode(t *testing.T) {
	src := `
package: main
registers: 2
constants: ["41"]
instructions:
  - ["LOAD_CONST", "0", "0", "0"]
  - ["RETURN", "0", "2"]
`
	bc, err := LoadFixture([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(bc.Constants) != 1 || bc.Constants[0].Int64() != 41 {
		t.Fatalf("expected constant 41, got %v", bc.Constants)
	}
	if Op(bc.Code[0]) != OP_LOAD_CONST {
		t.Fatalf("expected first instruction to be LOAD_CONST, got %s", Op(bc.Code[0]).Name())
	}
}

func TestDumpProducesYAML(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ReturnStatement{Value: &ast.NumberLiteral{Int: 1}},
	}}
	bc := CompileProgram(prog, "t.pl", "main")
	out, err := Dump(bc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "instructions:") {
		t.Errorf("expected dump to contain an instructions section, got:\n%s", out)
	}
}
