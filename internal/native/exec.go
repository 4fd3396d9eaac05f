package native

import (
	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// execBlock runs a block's statements in order, honoring goto
// restarts addressed to a label in this same statement list. Any
// other signal (return, an unresolved last/next/redo marker, or a
// goto aimed at a label this block doesn't own) stops the block
// immediately and bubbles to the caller.
func (e *Emitter) execBlock(fc *fnCtx, block *ast.Block) (*signal, error) {
	fc.scope = newLexScope(fc.scope)
	defer func() { fc.scope = fc.scope.parent }()

	i := 0
	for i < len(block.Statements) {
		sig, err := e.execStmt(fc, block.Statements[i])
		if err != nil {
			return nil, err
		}
		if sig != nil && sig.kind != sigNone {
			if sig.kind == sigGoto {
				if idx, ok := findLabelIndex(block.Statements, sig.gotoLabel); ok {
					i = idx
					continue
				}
			}
			return sig, nil
		}
		i++
	}
	return nil, nil
}

func findLabelIndex(stmts []ast.Statement, name string) (int, bool) {
	for i, st := range stmts {
		if lbl, ok := st.(*ast.Label); ok && lbl.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (e *Emitter) execStmt(fc *fnCtx, st ast.Statement) (*signal, error) {
	switch n := st.(type) {
	case *ast.Block:
		return e.execBlock(fc, n)

	case *ast.Label:
		return e.execStmt(fc, n.Target)

	case *ast.CompilerFlag:
		return nil, nil

	case *ast.ExprStatement:
		_, sig, err := e.evalList(fc, n.X, value.CtxVoid)
		return sig, err

	case *ast.IfStatement:
		return e.execIf(fc, n)

	case *ast.ForStatement:
		return e.execFor(fc, n)

	case *ast.ForeachStatement:
		return e.execForeach(fc, n)

	case *ast.TryStatement:
		return e.execTry(fc, n)

	case *ast.ReturnStatement:
		var vals []value.Scalar
		if n.Value != nil {
			v, sig, err := e.evalList(fc, n.Value, value.CtxList)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return sig, err
			}
			vals = v
		}
		return &signal{kind: sigReturn, retVal: vals}, nil

	case *ast.LoopControlStatement:
		kind := map[ast.LoopControlKind]bytecode.ControlKind{
			ast.CtlLast: bytecode.CtlLast,
			ast.CtlNext: bytecode.CtlNext,
			ast.CtlRedo: bytecode.CtlRedo,
		}[n.Kind]
		m := newMarker(kind, n.Label, n.Pos)
		return &signal{kind: sigMarker, marker: m, hops: -1}, nil

	case *ast.GotoStatement:
		return e.execGoto(fc, n)

	default:
		return nil, value.Errf("native", "unsupported statement %T", st)
	}
}

func (e *Emitter) execIf(fc *fnCtx, n *ast.IfStatement) (*signal, error) {
	cond, sig, err := e.evalScalar(fc, n.Cond)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return sig, err
	}
	if e.Ops.Bool(cond) {
		return e.execBlock(fc, n.Then)
	}
	for _, ei := range n.ElseIf {
		c, sig, err := e.evalScalar(fc, ei.Cond)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return sig, err
		}
		if e.Ops.Bool(c) {
			return e.execBlock(fc, ei.Body)
		}
	}
	if n.Else != nil {
		return e.execBlock(fc, n.Else)
	}
	return nil, nil
}

// claimLoop decides whether the loop labeled label, at the current Go
// call depth, owns sig. A dispatcher-resolved signal (hops >= 0)
// counts down once per enclosing loop frame it passes through,
// independent of the label string; a still-local signal (hops == -1,
// never crossed a call) is matched directly against this loop's own
// label, same as bytecode's LoopRegion scan.
func claimLoop(sig *signal, label string) (claim bool, rest *signal) {
	if sig.hops > 0 {
		return false, &signal{kind: sigMarker, marker: sig.marker, hops: sig.hops - 1}
	}
	if sig.hops == 0 {
		return true, nil
	}
	if sig.marker.MatchLoop(label) {
		return true, nil
	}
	return false, sig
}

func (e *Emitter) execFor(fc *fnCtx, n *ast.ForStatement) (*signal, error) {
	fc.scope = newLexScope(fc.scope)
	defer func() { fc.scope = fc.scope.parent }()

	if n.Init != nil {
		_, sig, err := e.evalList(fc, n.Init, value.CtxVoid)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return sig, err
		}
	}
	fc.pushLoop(n.Label)
	defer fc.popLoop()

	for {
		if n.Cond != nil {
			c, sig, err := e.evalScalar(fc, n.Cond)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return sig, err
			}
			if !e.Ops.Bool(c) {
				return nil, nil
			}
		}

	redo:
		sig, err := e.execBlock(fc, n.Body)
		if err != nil {
			return nil, err
		}
		if sig != nil && sig.kind != sigNone {
			if sig.kind != sigMarker {
				return sig, nil
			}
			claim, rest := claimLoop(sig, n.Label)
			if !claim {
				return rest, nil
			}
			switch sig.marker.Kind {
			case bytecode.CtlLast:
				return nil, nil
			case bytecode.CtlRedo:
				goto redo
			case bytecode.CtlNext:
				// fall through to post/cond below
			default:
				return sig, nil
			}
		}

		if n.Post != nil {
			_, sig, err := e.evalList(fc, n.Post, value.CtxVoid)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return sig, err
			}
		}
	}
}

func (e *Emitter) execForeach(fc *fnCtx, n *ast.ForeachStatement) (*signal, error) {
	fc.scope = newLexScope(fc.scope)
	defer func() { fc.scope = fc.scope.parent }()

	list, sig, err := e.evalList(fc, n.List, value.CtxList)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return sig, err
	}

	varName := "_"
	if n.Var != nil {
		varName = n.Var.Name
	}
	cell := fc.declare(varName)

	fc.pushLoop(n.Label)
	defer fc.popLoop()

	for i := 0; i < len(list); i++ {
		cell.Set(list[i])

	redo:
		sig, err := e.execBlock(fc, n.Body)
		if err != nil {
			return nil, err
		}
		if sig != nil && sig.kind != sigNone {
			if sig.kind != sigMarker {
				return sig, nil
			}
			claim, rest := claimLoop(sig, n.Label)
			if !claim {
				return rest, nil
			}
			switch sig.marker.Kind {
			case bytecode.CtlLast:
				return nil, nil
			case bytecode.CtlRedo:
				goto redo
			case bytecode.CtlNext:
				// advance to the next element below
			default:
				return sig, nil
			}
		}
	}
	return nil, nil
}

// execTry models eval { } with a try/catch/finally shape, mirroring
// bytecode.Compiler.compileTry's documented simplification: only the
// first catch clause is ever consulted. As in the bytecode backend,
// the finally block runs on both the success and the caught-error
// path.
func (e *Emitter) execTry(fc *fnCtx, n *ast.TryStatement) (*signal, error) {
	sig, err := e.execBlock(fc, n.Try)
	if err != nil {
		if len(n.Catches) > 0 {
			ca := n.Catches[0]
			fc.scope = newLexScope(fc.scope)
			if ca.Var != nil {
				fc.declare(ca.Var.Name).Set(value.Str(err.Error()))
			}
			sig, err = e.execBlock(fc, ca.Body)
			fc.scope = fc.scope.parent
		} else {
			err = nil
		}
	}
	if n.Finally != nil {
		fsig, ferr := e.execBlock(fc, n.Finally)
		if ferr != nil {
			return nil, ferr
		}
		if fsig != nil && fsig.kind != sigNone {
			return fsig, nil
		}
	}
	return sig, err
}

func (e *Emitter) execGoto(fc *fnCtx, n *ast.GotoStatement) (*signal, error) {
	if n.Sub != nil {
		calleeVal, sig, err := e.evalScalar(fc, n.Sub)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return sig, err
		}
		callee, ok := calleeVal.AsCode()
		if !ok {
			return nil, value.ErrNotCallable
		}
		args := fc.args
		if n.Args != nil {
			vals, sig, err := e.evalArgs(fc, n.Args)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return sig, err
			}
			args = value.NewArray(vals...)
		}
		m := newMarker(bytecode.CtlTailCall, "", n.Pos)
		m.Callee = callee
		m.Args = args
		return &signal{kind: sigMarker, marker: m}, nil
	}
	// goto LABEL: a same-function restart, resolved by execBlock
	// walking back to whichever block owns that label. Crossing into
	// an enclosing function, or jumping into a block that hasn't
	// started executing yet, is out of scope for a single-pass
	// tree-walker and surfaces as an ordinary "label not found" error
	// once the signal reaches the function boundary unclaimed.
	return &signal{kind: sigGoto, gotoLabel: n.Label}, nil
}
