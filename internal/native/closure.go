package native

import (
	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// emitClosure builds the value.Code for an (anonymous or named) sub
// literal encountered while executing fc. Every free variable
// pkgspace.AnalyzeCaptures reports is resolved to its backing cell
// once, here, at the point the closure comes into existence — not
// re-resolved on every call the way a freshly interpreted frame would
// — which is what lets the closure keep seeing writes its defining
// scope makes to the same variable after the closure was built.
func (e *Emitter) emitClosure(fc *fnCtx, node *ast.SubLiteral) *value.Code {
	params := map[string]bool{}
	for _, p := range node.Params {
		params[p.Name] = true
	}
	captures := pkgspace.AnalyzeCaptures(node.Body, params)
	capturedCells := make(map[string]*value.Scalar, len(captures))
	for _, cap := range captures {
		capturedCells[cap.Name] = fc.cellFor(cap.Name)
	}

	scopeID := e.scopeIDFor(node)
	promote := containsNestedSub(node.Body)
	pkg := fc.pkg
	name := node.Name
	if name == "" {
		name = "__ANON__"
	}

	code := &value.Code{Name: name}
	code.Apply = func(args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
		return ctlflow.Trampoline(func() ([]value.Scalar, error) {
			inner := &fnCtx{e: e, pkg: pkg, scope: newLexScope(nil), args: args}
			if promote {
				inner.persistID = scopeID
			}
			for name, cell := range capturedCells {
				inner.scope.vars[name] = cell
			}
			for i, p := range node.Params {
				inner.declare(p.Name).Set(args.Get(i))
			}
			sig, err := e.execBlock(inner, node.Body)
			if err != nil {
				return nil, err
			}
			return resultOf(sig), nil
		}, ctx)
	}

	if node.Name != "" {
		e.Space.SetGlobalCode(e.Space.Normalize(node.Name, pkg), code)
	}
	return code
}
