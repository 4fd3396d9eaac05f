package bytecode

import (
	"fmt"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
	"github.com/google/uuid"
)

// scopeVar binds a lexical name visible in the current (or an
// enclosing, within this function) block to the register holding it.
type scopeVar struct {
	name string
	reg  int
}

// loopCtx tracks one compiled loop so last/next/redo/break can resolve
// to a direct jump without a control marker, the fast path taken
// whenever the target is visible in the same function.
type loopCtx struct {
	label      string
	continuePC int   // where `next` jumps (post-increment point), 0 until known
	redoPC     int   // where `redo` jumps (loop-body start)
	breakJumps []int // patch sites for `last`, filled in as encountered
	nextJumps  []int // patch sites for a `next` compiled before continuePC was known
}

// pendingGoto is an unresolved `goto LABEL` inside the block currently
// being compiled; resolved against that block's labels once the whole
// block has been walked.
type pendingGoto struct {
	patchAt int
	label   string
}

// Compiler lowers one subroutine body (or the top-level program) to a
// Bytecode artifact. A nested SubLiteral gets its own Compiler with
// this one as its enclosing scope, an enclosing-compiler chain
// generalized from stack slots to virtual registers.
type Compiler struct {
	chunk *Bytecode

	vars       []scopeVar
	scopeMarks []int
	nextReg    int

	loopStack []loopCtx
	pending   []pendingGoto
	labels    map[string]int

	// scopeID stably addresses this subroutine's persistent lexical
	// slots; generated once per compiled sub so two
	// `my $x` in different subs never collide.
	scopeID string

	enclosing      *Compiler
	defaultPackage string

	errs []error
}

// NewCompiler creates the root compiler for a top-level program in the
// given default package.
func NewCompiler(sourceFile, defaultPackage string) *Compiler {
	c := &Compiler{
		chunk:          newBytecode(sourceFile),
		scopeID:        uuid.NewString(),
		defaultPackage: defaultPackage,
		labels:         map[string]int{},
	}
	c.chunk.Package = defaultPackage
	return c
}

// Errors returns any compile-time errors accumulated while walking the
// program (e.g. an unresolved label escaping the outermost scope).
func (c *Compiler) Errors() []error { return c.errs }

func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

// CompileProgram compiles a whole top-level program into a Bytecode.
func CompileProgram(p *ast.Program, sourceFile, defaultPackage string) *Bytecode {
	c := NewCompiler(sourceFile, defaultPackage)
	c.allocReg() // register 0 reserved for @_ / @ARGV, per the call ABI every chunk shares
	c.compileBlockStatements(p.Body)
	c.chunk.emit(OP_HALT, 0)
	c.chunk.NumRegisters = c.nextReg
	return c.chunk
}

// --- register & scope bookkeeping -----------------------------------------

func (c *Compiler) allocReg() int {
	r := c.nextReg
	c.nextReg++
	if c.nextReg > c.chunk.NumRegisters {
		c.chunk.NumRegisters = c.nextReg
	}
	return r
}

func (c *Compiler) beginScope() {
	c.scopeMarks = append(c.scopeMarks, len(c.vars))
}

func (c *Compiler) endScope() {
	n := len(c.scopeMarks)
	mark := c.scopeMarks[n-1]
	c.scopeMarks = c.scopeMarks[:n-1]
	c.vars = c.vars[:mark]
	// Registers are not reclaimed on scope exit: a simple, always-safe
	// forward-pass allocator, traded for a (bounded, per-call) larger
	// register file rather than a live-range analysis.
}

func (c *Compiler) declareLocal(name string) int {
	r := c.allocReg()
	c.vars = append(c.vars, scopeVar{name: name, reg: r})
	return r
}

func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.vars) - 1; i >= 0; i-- {
		if c.vars[i].name == name {
			return c.vars[i].reg, true
		}
	}
	return 0, false
}

// --- statements -------------------------------------------------------------

func (c *Compiler) compileBlockStatements(stmts []ast.Statement) {
	startLabels := map[string]bool{}
	for _, s := range stmts {
		if lbl, ok := s.(*ast.Label); ok {
			startLabels[lbl.Name] = true
		}
	}
	pendingBefore := len(c.pending)
	for _, s := range stmts {
		c.compileStmt(s)
	}
	// Resolve any goto whose target label lives in this block.
	var stillPending []pendingGoto
	for _, pg := range c.pending[pendingBefore:] {
		if pc, ok := c.labels[pg.label]; ok {
			c.chunk.patchJump(pg.patchAt, pc)
		} else {
			stillPending = append(stillPending, pg)
		}
	}
	c.pending = append(c.pending[:pendingBefore], stillPending...)
}

func (c *Compiler) compileStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Block:
		c.beginScope()
		c.compileBlockStatements(n.Statements)
		c.endScope()
	case *ast.Label:
		c.labels[n.Name] = c.chunk.Len()
		c.compileStmt(n.Target)
	case *ast.ExprStatement:
		if n.X != nil {
			c.compileExprDiscard(n.X)
		}
	case *ast.IfStatement:
		c.compileIf(n)
	case *ast.ForStatement:
		c.compileFor(n)
	case *ast.ForeachStatement:
		c.compileForeach(n)
	case *ast.TryStatement:
		c.compileTry(n)
	case *ast.ReturnStatement:
		c.compileReturn(n)
	case *ast.LoopControlStatement:
		c.compileLoopControl(n)
	case *ast.GotoStatement:
		c.compileGoto(n)
	case *ast.CompilerFlag:
		// Compile-time only directive (e.g. `use strict`); nothing to emit.
	default:
		c.errorf("bytecode: unsupported statement %T", s)
	}
}

func (c *Compiler) compileIf(n *ast.IfStatement) {
	condReg := c.compileExpr(n.Cond)
	jfalse := c.emitJump(OP_JUMP_IF_FALSE, condReg, n.Pos.Line)
	c.beginScope()
	c.compileStmt(n.Then)
	c.endScope()

	var endJumps []int
	endJumps = append(endJumps, c.emitJumpNoOperand(n.Pos.Line))
	c.chunk.patchJump(jfalse, c.chunk.Len())

	for _, ei := range n.ElseIf {
		condReg := c.compileExpr(ei.Cond)
		jfalse := c.emitJump(OP_JUMP_IF_FALSE, condReg, n.Pos.Line)
		c.beginScope()
		c.compileStmt(ei.Body)
		c.endScope()
		endJumps = append(endJumps, c.emitJumpNoOperand(n.Pos.Line))
		c.chunk.patchJump(jfalse, c.chunk.Len())
	}

	if n.Else != nil {
		c.beginScope()
		c.compileStmt(n.Else)
		c.endScope()
	}
	for _, j := range endJumps {
		c.chunk.patchJump(j, c.chunk.Len())
	}
}

func (c *Compiler) compileFor(n *ast.ForStatement) {
	c.beginScope()
	if n.Init != nil {
		c.compileExprDiscard(n.Init)
	}
	loopStart := c.chunk.Len()

	var exitJump int
	hasCond := n.Cond != nil
	if hasCond {
		condReg := c.compileExpr(n.Cond)
		exitJump = c.emitJump(OP_JUMP_IF_FALSE, condReg, n.Pos.Line)
	}

	redoPC := c.chunk.Len()
	label := ""
	if n.Label != "" {
		label = n.Label
	}
	c.loopStack = append(c.loopStack, loopCtx{label: label, redoPC: redoPC})
	c.beginScope()
	c.compileStmt(n.Body)
	c.endScope()

	continuePC := c.chunk.Len()
	lc := c.loopStack[len(c.loopStack)-1]
	lc.continuePC = continuePC
	for _, j := range lc.nextJumps {
		c.chunk.patchJump(j, continuePC)
	}
	lc.nextJumps = nil
	c.loopStack[len(c.loopStack)-1] = lc

	if n.Post != nil {
		c.compileExprDiscard(n.Post)
	}
	c.emitLoop(loopStart, n.Pos.Line)

	if hasCond {
		c.chunk.patchJump(exitJump, c.chunk.Len())
	}
	top := c.loopStack[len(c.loopStack)-1]
	for _, j := range top.breakJumps {
		c.chunk.patchJump(j, c.chunk.Len())
	}
	exitPC := c.chunk.Len()
	c.chunk.addLoopRegion(LoopRegion{
		Start: redoPC, End: exitPC, Label: top.label,
		RedoPC: redoPC, ContinuePC: top.continuePC, ExitPC: exitPC,
	})
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.endScope()
}

func (c *Compiler) compileForeach(n *ast.ForeachStatement) {
	c.beginScope()
	listReg := c.compileExpr(n.List)
	idxReg := c.allocReg()
	c.chunk.emit(OP_LOAD_INT_IMM, n.Pos.Line)
	c.chunk.emitByte(byte(idxReg), n.Pos.Line)
	c.chunk.emitU16(0, n.Pos.Line)

	// idxReg starts at 0 via a dedicated immediate-load, then the loop
	// condition compares it against the list length each iteration.
	lenReg := c.allocReg()
	varReg := c.allocReg()
	if n.Var != nil {
		c.vars = append(c.vars, scopeVar{name: n.Var.Name, reg: varReg})
	}

	c.chunk.emit(OP_ARRAY_LEN, n.Pos.Line)
	c.chunk.emitByte(byte(lenReg), n.Pos.Line)
	c.chunk.emitByte(byte(listReg), n.Pos.Line)

	loopStart := c.chunk.Len()
	condReg := c.allocReg()
	c.chunk.emit(OP_NUM_LT, n.Pos.Line)
	c.chunk.emitByte(byte(condReg), n.Pos.Line)
	c.chunk.emitByte(byte(idxReg), n.Pos.Line)
	c.chunk.emitByte(byte(lenReg), n.Pos.Line)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, condReg, n.Pos.Line)

	c.chunk.emit(OP_ARRAY_GET, n.Pos.Line)
	c.chunk.emitByte(byte(varReg), n.Pos.Line)
	c.chunk.emitByte(byte(listReg), n.Pos.Line)
	c.chunk.emitByte(byte(idxReg), n.Pos.Line)

	redoPC := c.chunk.Len()
	label := n.Label
	c.loopStack = append(c.loopStack, loopCtx{label: label, redoPC: redoPC})
	c.beginScope()
	c.compileStmt(n.Body)
	c.endScope()

	continuePC := c.chunk.Len()
	lc := c.loopStack[len(c.loopStack)-1]
	lc.continuePC = continuePC
	for _, j := range lc.nextJumps {
		c.chunk.patchJump(j, continuePC)
	}
	lc.nextJumps = nil
	c.loopStack[len(c.loopStack)-1] = lc

	c.chunk.emit(OP_INC, n.Pos.Line)
	c.chunk.emitByte(byte(idxReg), n.Pos.Line)
	c.emitLoop(loopStart, n.Pos.Line)

	c.chunk.patchJump(exitJump, c.chunk.Len())
	top := c.loopStack[len(c.loopStack)-1]
	for _, j := range top.breakJumps {
		c.chunk.patchJump(j, c.chunk.Len())
	}
	exitPC := c.chunk.Len()
	c.chunk.addLoopRegion(LoopRegion{
		Start: redoPC, End: exitPC, Label: top.label,
		RedoPC: redoPC, ContinuePC: top.continuePC, ExitPC: exitPC,
	})
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.endScope()
}

func (c *Compiler) compileTry(n *ast.TryStatement) {
	start := c.chunk.Len()
	c.beginScope()
	c.compileStmt(n.Try)
	c.endScope()
	afterTry := c.emitJumpNoOperand(n.Pos.Line)

	catchPC := c.chunk.Len()
	errReg := -1
	if len(n.Catches) > 0 {
		ca := n.Catches[0]
		if len(n.Catches) > 1 {
			// Only the first catch clause is wired up: this language
			// surface has one catch block per try, matching the
			// `try { } catch ($e) { }` feature this core targets.
		}
		c.beginScope()
		if ca.Var != nil {
			errReg = c.declareLocal(ca.Var.Name)
		}
		c.compileStmt(ca.Body)
		c.endScope()
	}
	c.chunk.patchJump(afterTry, c.chunk.Len())

	finallyPC := -1
	if n.Finally != nil {
		finallyPC = c.chunk.Len()
		c.beginScope()
		c.compileStmt(n.Finally)
		c.endScope()
	}

	c.chunk.addTryRegion(TryRegion{
		Start: start, End: catchPC, CatchPC: catchPC,
		ErrReg: errReg, FinallyPC: finallyPC,
	})
}

func (c *Compiler) compileReturn(n *ast.ReturnStatement) {
	var argsReg int
	if n.Value != nil {
		argsReg = c.compileExpr(n.Value)
	} else {
		argsReg = c.allocReg()
		c.chunk.emit(OP_LOAD_UNDEF, n.Pos.Line)
		c.chunk.emitByte(byte(argsReg), n.Pos.Line)
	}
	c.chunk.emit(OP_RETURN, n.Pos.Line)
	c.chunk.emitByte(byte(argsReg), n.Pos.Line)
	c.chunk.emitByte(byte(value.CtxList), n.Pos.Line)
}

// compileLoopControl implements the fast path: if the target loop is
// visible in this function's loopStack, emit a direct jump. Otherwise
// this last/next/redo must be escaping into a caller
// (e.g. it sits inside a block-argument subroutine passed to a
// higher-order builtin), so it is compiled as a control marker
// returned up the call chain.
func (c *Compiler) compileLoopControl(n *ast.LoopControlStatement) {
	idx := c.findLoop(n.Label)
	if idx >= 0 {
		lc := &c.loopStack[idx]
		switch n.Kind {
		case ast.CtlLast:
			lc.breakJumps = append(lc.breakJumps, c.emitJumpNoOperand(n.Pos.Line))
		case ast.CtlNext:
			// continuePC isn't known yet while compiling the loop body
			// (it's the post-increment point, emitted after the body);
			// a `next` that appears before it is recorded in its own
			// patch list and backfilled once the loop finishes
			// compiling, same as a forward break jump but to a
			// different target.
			if lc.continuePC != 0 {
				c.emitLoop(lc.continuePC, n.Pos.Line)
			} else {
				lc.nextJumps = append(lc.nextJumps, c.emitJumpNoOperand(n.Pos.Line))
			}
		case ast.CtlRedo:
			c.emitLoop(lc.redoPC, n.Pos.Line)
		}
		return
	}
	c.emitEscapingMarker(controlKindFor(n.Kind), n.Label, n.Pos.Line)
}

func controlKindFor(k ast.LoopControlKind) ControlKind {
	switch k {
	case ast.CtlLast:
		return CtlLast
	case ast.CtlNext:
		return CtlNext
	default:
		return CtlRedo
	}
}

func (c *Compiler) findLoop(label string) int {
	if label == "" {
		if len(c.loopStack) == 0 {
			return -1
		}
		return len(c.loopStack) - 1
	}
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		if c.loopStack[i].label == label {
			return i
		}
	}
	return -1
}

// emitEscapingMarker builds a control marker and returns it from the
// current subroutine, the cross-call-boundary half of
// compileLoopControl: whatever called this subroutine must resolve it
// against its own loopStack or keep propagating it further up.
func (c *Compiler) emitEscapingMarker(kind ControlKind, label string, line int) {
	labelIdx := c.chunk.addConstant(value.Str(label))
	mReg := c.allocReg()
	c.chunk.emit(OP_MAKE_MARKER, line)
	c.chunk.emitByte(byte(mReg), line)
	c.chunk.emitByte(byte(kind), line)
	c.chunk.emitU16(uint16(labelIdx), line)
	c.chunk.emit(OP_RETURN, line)
	c.chunk.emitByte(byte(mReg), line)
	c.chunk.emitByte(byte(value.CtxList), line)
}

func (c *Compiler) compileGoto(n *ast.GotoStatement) {
	if n.Sub != nil {
		calleeReg := c.compileExpr(n.Sub)
		var argsReg int
		if n.Args == nil {
			// nil Args means "reuse @_ unchanged" (ast.GotoStatement
			// doc comment): register 0 already holds it.
			argsReg = 0
		} else {
			argsReg = c.allocReg()
			c.chunk.emit(OP_NEW_ARRAY, n.Pos.Line)
			c.chunk.emitByte(byte(argsReg), n.Pos.Line)
			for _, a := range n.Args {
				vReg := c.compileExpr(a)
				c.chunk.emit(OP_ARRAY_PUSH, n.Pos.Line)
				c.chunk.emitByte(byte(argsReg), n.Pos.Line)
				c.chunk.emitByte(byte(vReg), n.Pos.Line)
			}
		}
		c.chunk.emit(OP_TAIL_CALL, n.Pos.Line)
		c.chunk.emitByte(byte(calleeReg), n.Pos.Line)
		c.chunk.emitByte(byte(argsReg), n.Pos.Line)
		return
	}
	if _, ok := c.labels[n.Label]; ok {
		jmp := c.emitJumpNoOperand(n.Pos.Line)
		c.chunk.patchJump(jmp, c.labels[n.Label])
		return
	}
	jmp := c.emitJumpNoOperand(n.Pos.Line)
	c.pending = append(c.pending, pendingGoto{patchAt: jmp, label: n.Label})
}

// --- jump helpers ------------------------------------------------------------

func (c *Compiler) emitJump(op Op, condReg int, line int) int {
	c.chunk.emit(op, line)
	c.chunk.emitByte(byte(condReg), line)
	at := c.chunk.Len()
	c.chunk.emitI16(0, line)
	return at
}

func (c *Compiler) emitJumpNoOperand(line int) int {
	c.chunk.emit(OP_JUMP, line)
	at := c.chunk.Len()
	c.chunk.emitI16(0, line)
	return at
}

func (c *Compiler) emitLoop(target int, line int) {
	c.chunk.emit(OP_JUMP, line)
	at := c.chunk.Len()
	c.chunk.emitI16(0, line)
	c.chunk.patchJump(at, target)
}

// --- expressions -------------------------------------------------------------

// compileExprDiscard compiles e purely for effect, still returning a
// register (callers that don't need it just let it go unused; the
// register allocator never reclaims it, matching declareLocal).
func (c *Compiler) compileExprDiscard(e ast.Expression) int { return c.compileExpr(e) }

func (c *Compiler) compileExpr(e ast.Expression) int {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return c.loadConst(numberToScalar(n), n.Pos.Line)
	case *ast.StringLiteral:
		return c.loadConst(value.StrUTF8(n.Value), n.Pos.Line)
	case *ast.UndefLiteral:
		r := c.allocReg()
		c.chunk.emit(OP_LOAD_UNDEF, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		return r
	case *ast.Identifier:
		return c.compileIdentifierLoad(n)
	case *ast.UnaryExpr:
		return c.compileUnary(n)
	case *ast.BinaryExpr:
		return c.compileBinary(n)
	case *ast.TernaryExpr:
		return c.compileTernary(n)
	case *ast.AssignExpr:
		return c.compileAssign(n)
	case *ast.DeclExpr:
		return c.compileDecl(n)
	case *ast.CallExpr:
		return c.compileCall(n)
	case *ast.IndexExpr:
		return c.compileIndex(n)
	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(n)
	case *ast.HashLiteral:
		return c.compileHashLiteral(n)
	case *ast.SubLiteral:
		return c.compileSubLiteral(n)
	default:
		c.errorf("bytecode: unsupported expression %T", e)
		r := c.allocReg()
		c.chunk.emit(OP_LOAD_UNDEF, 0)
		c.chunk.emitByte(byte(r), 0)
		return r
	}
}

func numberToScalar(n *ast.NumberLiteral) value.Scalar {
	if n.IsFloat {
		return value.Float(n.Float)
	}
	return value.Int(n.Int)
}

func (c *Compiler) loadConst(v value.Scalar, line int) int {
	idx := c.chunk.addConstant(v)
	r := c.allocReg()
	c.chunk.emit(OP_LOAD_CONST, line)
	c.chunk.emitByte(byte(r), line)
	c.chunk.emitU16(uint16(idx), line)
	return r
}

func (c *Compiler) compileIdentifierLoad(n *ast.Identifier) int {
	if reg, ok := c.resolveLocal(n.Name); ok {
		return reg
	}
	// Not a local in this function: either a persistent capture from
	// an enclosing sub, or a true package global.
	if enc, scopeID, ok := c.resolveEnclosing(n.Name); ok {
		idIdx := c.chunk.addConstant(value.Str(scopeID))
		nameIdx := c.chunk.addConstant(value.Str(n.Name))
		r := c.allocReg()
		c.chunk.emit(OP_LOAD_PERSISTENT_SCALAR, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitU16(uint16(idIdx), n.Pos.Line)
		c.chunk.emitU16(uint16(nameIdx), n.Pos.Line)
		_ = enc
		return r
	}
	nameIdx := c.chunk.addConstant(value.Str(n.Name))
	r := c.allocReg()
	c.chunk.emit(OP_LOAD_GLOBAL_SCALAR, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitU16(uint16(nameIdx), n.Pos.Line)
	return r
}

// resolveEnclosing walks the enclosing-compiler chain looking for name
// declared as a local there, returning the scopeID of whichever
// compiler owns it — the persistent-slot namespace the closure must
// read/write through rather than a direct register.
func (c *Compiler) resolveEnclosing(name string) (*Compiler, string, bool) {
	for enc := c.enclosing; enc != nil; enc = enc.enclosing {
		if _, ok := enc.resolveLocal(name); ok {
			return enc, enc.scopeID, true
		}
	}
	return nil, "", false
}

func (c *Compiler) compileUnary(n *ast.UnaryExpr) int {
	if n.Op == "++" || n.Op == "--" {
		return c.compileIncDec(n)
	}
	operand := c.compileExpr(n.Operand)
	r := c.allocReg()
	switch n.Op {
	case "-":
		c.chunk.emit(OP_NEG, n.Pos.Line)
	case "!", "not":
		c.chunk.emit(OP_NOT, n.Pos.Line)
	default:
		c.errorf("bytecode: unsupported unary operator %q", n.Op)
		c.chunk.emit(OP_NOT, n.Pos.Line)
	}
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(operand), n.Pos.Line)
	return r
}

// compileIncDec emits the pre/post increment superinstructions
//: prefix mutates and yields the operand's own
// register, postfix yields a snapshot taken before the mutation.
func (c *Compiler) compileIncDec(n *ast.UnaryExpr) int {
	operand := c.compileExpr(n.Operand)
	op := OP_INC
	if n.Op == "--" {
		op = OP_DEC
	}
	if n.Postfix {
		snapshot := c.allocReg()
		c.chunk.emit(OP_MOVE, n.Pos.Line)
		c.chunk.emitByte(byte(snapshot), n.Pos.Line)
		c.chunk.emitByte(byte(operand), n.Pos.Line)
		c.chunk.emit(op, n.Pos.Line)
		c.chunk.emitByte(byte(operand), n.Pos.Line)
		c.storeTo(n.Operand, operand, n.Pos.Line)
		return snapshot
	}
	c.chunk.emit(op, n.Pos.Line)
	c.chunk.emitByte(byte(operand), n.Pos.Line)
	c.storeTo(n.Operand, operand, n.Pos.Line)
	return operand
}

var binaryOps = map[string]Op{
	"+": OP_ADD, "-": OP_SUB, "*": OP_MUL, "/": OP_DIV, "%": OP_MOD, "**": OP_POW,
	".": OP_CONCAT, "x": OP_REPEAT,
	"==": OP_NUM_EQ, "!=": OP_NUM_NE, "<": OP_NUM_LT, "<=": OP_NUM_LE, ">": OP_NUM_GT, ">=": OP_NUM_GE,
	"eq": OP_STR_EQ, "ne": OP_STR_NE, "lt": OP_STR_LT, "le": OP_STR_LE, "gt": OP_STR_GT, "ge": OP_STR_GE,
	"<=>": OP_NUM_CMP, "cmp": OP_STR_CMP,
}

func (c *Compiler) compileBinary(n *ast.BinaryExpr) int {
	if n.Op == "&&" || n.Op == "and" {
		return c.compileShortCircuit(n, false)
	}
	if n.Op == "||" || n.Op == "or" {
		return c.compileShortCircuit(n, true)
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		c.errorf("bytecode: unsupported binary operator %q", n.Op)
		op = OP_ADD
	}
	left := c.compileExpr(n.Left)
	right := c.compileExpr(n.Right)
	r := c.allocReg()
	c.chunk.emit(op, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(left), n.Pos.Line)
	c.chunk.emitByte(byte(right), n.Pos.Line)
	return r
}

// compileShortCircuit implements && and || without evaluating the
// right operand unless necessary.
func (c *Compiler) compileShortCircuit(n *ast.BinaryExpr, wantTrue bool) int {
	left := c.compileExpr(n.Left)
	r := c.allocReg()
	c.chunk.emit(OP_MOVE, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(left), n.Pos.Line)

	op := OP_JUMP_IF_FALSE
	if wantTrue {
		op = OP_JUMP_IF_TRUE
	}
	short := c.emitJump(op, r, n.Pos.Line)
	right := c.compileExpr(n.Right)
	c.chunk.emit(OP_MOVE, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(right), n.Pos.Line)
	c.chunk.patchJump(short, c.chunk.Len())
	return r
}

func (c *Compiler) compileTernary(n *ast.TernaryExpr) int {
	condReg := c.compileExpr(n.Cond)
	jfalse := c.emitJump(OP_JUMP_IF_FALSE, condReg, n.Pos.Line)
	r := c.allocReg()
	thenReg := c.compileExpr(n.Then)
	c.chunk.emit(OP_MOVE, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(thenReg), n.Pos.Line)
	jend := c.emitJumpNoOperand(n.Pos.Line)
	c.chunk.patchJump(jfalse, c.chunk.Len())
	elseReg := c.compileExpr(n.Else)
	c.chunk.emit(OP_MOVE, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(elseReg), n.Pos.Line)
	c.chunk.patchJump(jend, c.chunk.Len())
	return r
}

func (c *Compiler) compileDecl(n *ast.DeclExpr) int {
	var valReg int
	if n.Value != nil {
		valReg = c.compileExpr(n.Value)
	} else {
		valReg = c.allocReg()
		c.chunk.emit(OP_LOAD_UNDEF, n.Pos.Line)
		c.chunk.emitByte(byte(valReg), n.Pos.Line)
	}
	if len(n.Vars) == 1 {
		r := c.declareLocal(n.Vars[0].Name)
		c.chunk.emit(OP_MOVE, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitByte(byte(valReg), n.Pos.Line)
		return r
	}
	// `my (@list) = ...`: declare each as its own register, reading
	// sequentially off the list value's backing array.
	last := valReg
	for i, v := range n.Vars {
		idxReg := c.loadConst(value.Int(int64(i)), n.Pos.Line)
		r := c.declareLocal(v.Name)
		c.chunk.emit(OP_ARRAY_GET, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitByte(byte(valReg), n.Pos.Line)
		c.chunk.emitByte(byte(idxReg), n.Pos.Line)
		last = r
	}
	return last
}

func (c *Compiler) compileAssign(n *ast.AssignExpr) int {
	if n.Op != "" {
		baseOp, ok := binaryOps[n.Op]
		if !ok {
			c.errorf("bytecode: unsupported compound-assign operator %q", n.Op)
			baseOp = OP_ADD
		}
		left := c.compileExpr(n.Target)
		right := c.compileExpr(n.Value)
		r := c.allocReg()
		c.chunk.emit(baseOp, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitByte(byte(left), n.Pos.Line)
		c.chunk.emitByte(byte(right), n.Pos.Line)
		c.storeTo(n.Target, r, n.Pos.Line)
		return r
	}
	valReg := c.compileExpr(n.Value)
	c.storeTo(n.Target, valReg, n.Pos.Line)
	return valReg
}

func (c *Compiler) storeTo(target ast.Expression, valReg int, line int) {
	switch t := target.(type) {
	case *ast.Identifier:
		if reg, ok := c.resolveLocal(t.Name); ok {
			c.chunk.emit(OP_MOVE, line)
			c.chunk.emitByte(byte(reg), line)
			c.chunk.emitByte(byte(valReg), line)
			return
		}
		if _, scopeID, ok := c.resolveEnclosing(t.Name); ok {
			idIdx := c.chunk.addConstant(value.Str(scopeID))
			nameIdx := c.chunk.addConstant(value.Str(t.Name))
			c.chunk.emit(OP_STORE_PERSISTENT_SCALAR, line)
			c.chunk.emitByte(byte(valReg), line)
			c.chunk.emitU16(uint16(idIdx), line)
			c.chunk.emitU16(uint16(nameIdx), line)
			return
		}
		nameIdx := c.chunk.addConstant(value.Str(t.Name))
		c.chunk.emit(OP_STORE_GLOBAL_SCALAR, line)
		c.chunk.emitByte(byte(valReg), line)
		c.chunk.emitU16(uint16(nameIdx), line)
	case *ast.IndexExpr:
		containerReg := c.compileExpr(t.Container)
		indexReg := c.compileExpr(t.Index)
		op := OP_ARRAY_SET
		if t.Slice {
			op = OP_HASH_SET
		}
		c.chunk.emit(op, line)
		c.chunk.emitByte(byte(containerReg), line)
		c.chunk.emitByte(byte(indexReg), line)
		c.chunk.emitByte(byte(valReg), line)
	default:
		c.errorf("bytecode: unsupported assignment target %T", target)
	}
}

func (c *Compiler) compileCall(n *ast.CallExpr) int {
	calleeReg := c.compileExpr(n.Callee)
	argsReg := c.allocReg()
	c.chunk.emit(OP_NEW_ARRAY, n.Pos.Line)
	c.chunk.emitByte(byte(argsReg), n.Pos.Line)
	for _, a := range n.Args {
		vReg := c.compileExpr(a)
		c.chunk.emit(OP_ARRAY_PUSH, n.Pos.Line)
		c.chunk.emitByte(byte(argsReg), n.Pos.Line)
		c.chunk.emitByte(byte(vReg), n.Pos.Line)
	}
	r := c.allocReg()
	c.chunk.emit(OP_CALL, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(calleeReg), n.Pos.Line)
	c.chunk.emitByte(byte(argsReg), n.Pos.Line)
	c.chunk.emitByte(byte(callContextByte(n.Context)), n.Pos.Line)
	return r
}

func callContextByte(ctx ast.CallContext) value.CallContext {
	switch ctx {
	case ast.ContextScalar:
		return value.CtxScalar
	case ast.ContextList:
		return value.CtxList
	case ast.ContextVoid:
		return value.CtxVoid
	default:
		return value.CtxList
	}
}

func (c *Compiler) compileIndex(n *ast.IndexExpr) int {
	containerReg := c.compileExpr(n.Container)
	indexReg := c.compileExpr(n.Index)
	r := c.allocReg()
	op := OP_ARRAY_GET
	if n.Slice {
		op = OP_HASH_GET
	}
	c.chunk.emit(op, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitByte(byte(containerReg), n.Pos.Line)
	c.chunk.emitByte(byte(indexReg), n.Pos.Line)
	return r
}

func (c *Compiler) compileArrayLiteral(n *ast.ArrayLiteral) int {
	r := c.allocReg()
	c.chunk.emit(OP_NEW_ARRAY, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	for _, el := range n.Elements {
		vReg := c.compileExpr(el)
		c.chunk.emit(OP_ARRAY_PUSH, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitByte(byte(vReg), n.Pos.Line)
	}
	return r
}

func (c *Compiler) compileHashLiteral(n *ast.HashLiteral) int {
	r := c.allocReg()
	c.chunk.emit(OP_NEW_HASH, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	for _, p := range n.Pairs {
		kReg := c.compileExpr(p.Key)
		vReg := c.compileExpr(p.Value)
		c.chunk.emit(OP_HASH_SET, n.Pos.Line)
		c.chunk.emitByte(byte(r), n.Pos.Line)
		c.chunk.emitByte(byte(kReg), n.Pos.Line)
		c.chunk.emitByte(byte(vReg), n.Pos.Line)
	}
	return r
}

// compileSubLiteral compiles a nested `sub { ... }` into its own
// Proto, analyzes its free variables with pkgspace.AnalyzeCaptures,
// and emits OP_MAKE_CLOSURE to build the runtime Code value.
func (c *Compiler) compileSubLiteral(n *ast.SubLiteral) int {
	sub := &Compiler{
		chunk:          newBytecode(c.chunk.SourceFile),
		scopeID:        uuid.NewString(),
		enclosing:      c,
		defaultPackage: c.defaultPackage,
		labels:         map[string]int{},
	}
	sub.chunk.Package = c.defaultPackage
	// Register 0 is reserved for @_, the incoming argument array every
	// call frame is seeded with by internal/interp before execution
	// starts.
	argsReg := sub.allocReg()
	params := map[string]bool{}
	for i, p := range n.Params {
		idxReg := sub.loadConst(value.Int(int64(i)), n.Pos.Line)
		r := sub.declareLocal(p.Name)
		sub.chunk.emit(OP_ARRAY_GET, n.Pos.Line)
		sub.chunk.emitByte(byte(r), n.Pos.Line)
		sub.chunk.emitByte(byte(argsReg), n.Pos.Line)
		sub.chunk.emitByte(byte(idxReg), n.Pos.Line)
		params[p.Name] = true
	}
	sub.compileBlockStatements(n.Body.Statements)
	sub.chunk.emit(OP_HALT, n.Pos.Line)

	captures := pkgspace.AnalyzeCaptures(n.Body, params)
	captureSlots := make([]CaptureSlot, 0, len(captures))
	for _, cap := range captures {
		// Every capture resolves, by construction, to a persistent
		// slot owned by whichever enclosing Compiler first declared
		// it — AnalyzeCaptures only reports names that are free in
		// this sub's body, and compileIdentifierLoad/storeTo already
		// route such names through OP_LOAD_PERSISTENT_SCALAR.
		_, scopeID, ok := sub.resolveEnclosing(cap.Name)
		if !ok {
			scopeID = c.scopeID
		}
		captureSlots = append(captureSlots, CaptureSlot{Sigil: cap.Sigil, Name: cap.Name, ID: scopeID})
	}
	sub.chunk.NumRegisters = sub.nextReg

	proto := &Proto{Name: n.Name, NumParams: len(n.Params), Body: sub.chunk, Captures: captureSlots}
	protoIdx := c.chunk.addProto(proto)

	r := c.allocReg()
	c.chunk.emit(OP_MAKE_CLOSURE, n.Pos.Line)
	c.chunk.emitByte(byte(r), n.Pos.Line)
	c.chunk.emitU16(uint16(protoIdx), n.Pos.Line)
	return r
}
