// Package native implements the tree-walking emitter: the second of
// the two backends sharing value.Code's apply(args, ctx) -> list ABI,
// the other being internal/interp over compiled internal/bytecode.
// Rather than lowering a subroutine body to an instruction stream
// first, native walks the AST directly on every call, trading the
// interpreter's compile-once startup cost for a simpler path.
// Under the automatic policy, internal/dynaeval runs `eval STRING`
// sources of 256 bytes or more here and shorter ones through the
// interpreter (see config.EvalPolicy.ResolvedBackend).
//
// The two backends share value.Ops for arithmetic/comparison and
// internal/ctlflow for non-local control flow, which is what makes a
// native-compiled sub callable from interpreted code and vice versa:
// neither side can tell, from a value.Code alone, which backend built
// it.
package native

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Emitter holds the state one native compilation unit needs beyond
// the AST itself: the package space every global and persistent slot
// resolves against, the shared arithmetic/comparison surface, and two
// process-lifetime interning tables mirroring what a real compiler
// would compute once and bake into the bytecode.
type Emitter struct {
	Space *pkgspace.Space
	Ops   value.Ops

	defaultPackage string

	mu       sync.Mutex
	scopeIDs map[*ast.SubLiteral]string

	dispMu      sync.Mutex
	dispatchers map[string]*bytecode.Dispatcher
}

// New creates an emitter bound to space, which also serves as the
// overload resolver — the same wiring internal/interp.New uses, so
// both backends dispatch overloaded operators through the same class
// table.
func New(space *pkgspace.Space) *Emitter {
	return &Emitter{
		Space:          space,
		Ops:            value.Ops{Resolver: space},
		defaultPackage: "main",
		scopeIDs:       map[*ast.SubLiteral]string{},
		dispatchers:    map[string]*bytecode.Dispatcher{},
	}
}

// scopeIDFor returns the stable persistent-slot id for node, assigning
// one the first time the node is seen. Mirrors bytecode.Compiler's
// rule of generating a sub's scopeID once per AST node rather than
// once per instantiation: two closures built from the same textual
// sub literal (e.g. one created on each pass through a loop) share
// persistent storage for whatever a grandchild sub captures from
// them. That's a real, existing quirk of the compiled backend, not a
// deliberate native feature, and native mirrors it rather than fixing
// it so the two backends stay interchangeable.
func (e *Emitter) scopeIDFor(node *ast.SubLiteral) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.scopeIDs[node]; ok {
		return id
	}
	id := uuid.NewString()
	e.scopeIDs[node] = id
	return id
}

// internDispatcher returns the shared Dispatcher for a given
// innermost-first label sequence, building and caching one the first
// time a call site sees that sequence. This is the mechanism that
// actually exercises bytecode.Dispatcher/ctlflow.ResolveDispatcher:
// when a call returns an unresolved last/next/redo marker, the call
// site resolves which of its own visible loops the marker addresses
// exactly once, here, rather than re-testing the label string against
// every enclosing loop frame as the signal bubbles back up.
func (e *Emitter) internDispatcher(labels []string) *bytecode.Dispatcher {
	key := strings.Join(labels, "\x00")
	e.dispMu.Lock()
	defer e.dispMu.Unlock()
	if d, ok := e.dispatchers[key]; ok {
		return d
	}
	d := &bytecode.Dispatcher{Labels: append([]string(nil), labels...)}
	e.dispatchers[key] = d
	return d
}

// lexScope is one block's worth of `my` declarations, chained to the
// block it's nested in. A function's top-level lexScope has a nil
// parent: native never resolves an identifier across a function
// boundary by walking scopes — a closure instead has its captured
// cells copied into its own top scope at creation time (see
// emitClosure), so a running function's scope chain never needs to
// reach outside itself.
type lexScope struct {
	vars   map[string]*value.Scalar
	parent *lexScope
}

func newLexScope(parent *lexScope) *lexScope {
	return &lexScope{vars: map[string]*value.Scalar{}, parent: parent}
}

func (s *lexScope) resolve(name string) (*value.Scalar, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if c, ok := cur.vars[name]; ok {
			return c, true
		}
	}
	return nil, false
}

// fnCtx is the per-call state threaded through one Code.Apply
// invocation: the current lexical scope, the persistent-slot prefix
// this function's own locals are promoted under (if any), and the
// stack of labels for loops currently executing within this function.
type fnCtx struct {
	e   *Emitter
	pkg string

	scope *lexScope

	// persistID is non-empty when this function's body contains a
	// nested sub literal anywhere, in which case every `my` this
	// function declares is allocated as a persistent slot keyed by
	// persistID instead of a plain heap cell. This is a deliberately
	// coarse rule: the bytecode compiler promotes a local to a
	// persistent slot only when some specific descendant captures it
	// by name, but determining that precisely here would require a
	// second capture-analysis pass keyed by declaration site. Promoting
	// every local of a sub that contains any nested sub is always
	// correct (it just persists a few names no descendant actually
	// reads) and keeps the two backends' captured-variable aliasing
	// identical for every case that matters.
	persistID string

	args *value.Array

	// loopLabels holds the label (or "" for unlabeled) of every
	// for/foreach currently executing within this function,
	// innermost-first. It never crosses a call boundary: a callee
	// starts a fresh, empty loopLabels of its own.
	loopLabels []string
}

func (fc *fnCtx) pushLoop(label string) { fc.loopLabels = append(fc.loopLabels, label) }
func (fc *fnCtx) popLoop()              { fc.loopLabels = fc.loopLabels[:len(fc.loopLabels)-1] }

// declare allocates storage for a new `my` variable and binds it into
// the current scope.
func (fc *fnCtx) declare(name string) *value.Scalar {
	var cell *value.Scalar
	if fc.persistID != "" {
		cell = fc.e.Space.GetPersistentScalar(fc.persistID, name)
	} else {
		cell = new(value.Scalar)
	}
	fc.scope.vars[name] = cell
	return cell
}

// containsNestedSub reports whether any statement in body introduces a
// sub literal anywhere in its expression tree. Used once, at closure
// creation time, to decide whether the new function promotes its own
// locals to persistent slots.
func containsNestedSub(body *ast.Block) bool {
	found := false

	var walkExpr func(ast.Expression)
	var walkStmt func(ast.Statement)

	walkExpr = func(e ast.Expression) {
		if e == nil || found {
			return
		}
		switch n := e.(type) {
		case *ast.SubLiteral:
			found = true
		case *ast.UnaryExpr:
			walkExpr(n.Operand)
		case *ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.TernaryExpr:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *ast.AssignExpr:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case *ast.DeclExpr:
			walkExpr(n.Value)
		case *ast.CallExpr:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.IndexExpr:
			walkExpr(n.Container)
			walkExpr(n.Index)
		case *ast.ArrayLiteral:
			for _, el := range n.Elements {
				walkExpr(el)
			}
		case *ast.HashLiteral:
			for _, p := range n.Pairs {
				walkExpr(p.Key)
				walkExpr(p.Value)
			}
		}
	}

	walkStmt = func(st ast.Statement) {
		if st == nil || found {
			return
		}
		switch n := st.(type) {
		case *ast.Block:
			for _, s := range n.Statements {
				walkStmt(s)
			}
		case *ast.ExprStatement:
			walkExpr(n.X)
		case *ast.IfStatement:
			walkExpr(n.Cond)
			walkStmt(n.Then)
			for _, ei := range n.ElseIf {
				walkExpr(ei.Cond)
				walkStmt(ei.Body)
			}
			if n.Else != nil {
				walkStmt(n.Else)
			}
		case *ast.ForStatement:
			walkExpr(n.Init)
			walkExpr(n.Cond)
			walkExpr(n.Post)
			walkStmt(n.Body)
		case *ast.ForeachStatement:
			walkExpr(n.List)
			walkStmt(n.Body)
		case *ast.TryStatement:
			walkStmt(n.Try)
			for _, c := range n.Catches {
				walkStmt(c.Body)
			}
			if n.Finally != nil {
				walkStmt(n.Finally)
			}
		case *ast.ReturnStatement:
			walkExpr(n.Value)
		case *ast.GotoStatement:
			walkExpr(n.Sub)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.Label:
			walkStmt(n.Target)
		}
	}

	walkStmt(body)
	return found
}

// Run executes prog as a top-level program: its statement list is
// treated exactly like a sub body with no parameters and no captures,
// seeded with args as @_, which is what lets cmd/plcore and
// internal/dynaeval hand native the same (*ast.Program, *value.Array)
// shape internal/interp.Run accepts for a *bytecode.Bytecode.
func (e *Emitter) Run(prog *ast.Program, pkg string, args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
	body := &ast.Block{Pos: prog.Pos, Statements: prog.Body}
	code := e.emitTopLevel(prog.File, pkg, body)
	return code.Call(args, ctx)
}

// emitTopLevel builds the Code for a whole program body, bypassing the
// per-SubLiteral scopeID/capture machinery emitClosure uses: a
// top-level program has no enclosing scope to capture from.
func (e *Emitter) emitTopLevel(name, pkg string, body *ast.Block) *value.Code {
	if pkg == "" {
		pkg = e.defaultPackage
	}
	promote := containsNestedSub(body)
	code := &value.Code{Name: name}
	code.Apply = func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
		return ctlflow.Trampoline(func() ([]value.Scalar, error) {
			fc := &fnCtx{e: e, pkg: pkg, scope: newLexScope(nil), args: args}
			if promote {
				fc.persistID = "toplevel:" + name
			}
			sig, err := e.execBlock(fc, body)
			if err != nil {
				return nil, err
			}
			return resultOf(sig), nil
		}, ctx)
	}
	return code
}

// resultOf turns a trailing signal into the []value.Scalar shape
// Code.Apply must return: a sigReturn's value, an escaping marker
// wrapped the same way OP_RETURN wraps one, or an implicit empty list
// when the body simply ran out of statements.
func resultOf(sig *signal) []value.Scalar {
	if sig == nil {
		return nil
	}
	switch sig.kind {
	case sigReturn:
		return sig.retVal
	case sigMarker:
		return ctlflow.Wrap(sig.marker)
	default:
		return nil
	}
}
