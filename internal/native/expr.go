package native

import (
	"strings"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// scalarOf collapses a list result to the single value Perl's scalar
// context sees: the last element, or Undef for an empty list. Matches
// how the interpreter's collapseCallResult (internal/interp) treats a callee's
// list return when the caller asked for SCALAR context.
func scalarOf(vals []value.Scalar) value.Scalar {
	if len(vals) == 0 {
		return value.Undef
	}
	return vals[len(vals)-1]
}

func (e *Emitter) evalScalar(fc *fnCtx, expr ast.Expression) (value.Scalar, *signal, error) {
	vals, sig, err := e.evalList(fc, expr, value.CtxScalar)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return value.Undef, sig, err
	}
	return scalarOf(vals), nil, nil
}

func (e *Emitter) evalArgs(fc *fnCtx, exprs []ast.Expression) ([]value.Scalar, *signal, error) {
	var out []value.Scalar
	for _, a := range exprs {
		vals, sig, err := e.evalList(fc, a, value.CtxList)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		out = append(out, vals...)
	}
	return out, nil, nil
}

// evalList is the single expression-evaluation entry point every
// statement and sub-expression goes through. It returns either a
// value list, or a non-nil signal when evaluating a sub-expression
// (almost always a CallExpr) surfaced an unresolved last/next/redo/
// goto control marker that must unwind past this expression entirely.
func (e *Emitter) evalList(fc *fnCtx, expr ast.Expression, ctx value.CallContext) ([]value.Scalar, *signal, error) {
	switch n := expr.(type) {
	case nil:
		return nil, nil, nil

	case *ast.NumberLiteral:
		if n.IsFloat {
			return []value.Scalar{value.Float(n.Float)}, nil, nil
		}
		return []value.Scalar{value.Int(n.Int)}, nil, nil

	case *ast.StringLiteral:
		return []value.Scalar{e.evalStringLiteral(fc, n)}, nil, nil

	case *ast.UndefLiteral:
		return []value.Scalar{value.Undef}, nil, nil

	case *ast.Identifier:
		return e.evalIdentifierList(fc, n)

	case *ast.ArrayLiteral:
		var out []value.Scalar
		for _, el := range n.Elements {
			vals, sig, err := e.evalList(fc, el, value.CtxList)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return nil, sig, err
			}
			out = append(out, vals...)
		}
		return out, nil, nil

	case *ast.HashLiteral:
		var out []value.Scalar
		for _, p := range n.Pairs {
			k, sig, err := e.evalScalar(fc, p.Key)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return nil, sig, err
			}
			v, sig, err := e.evalScalar(fc, p.Value)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return nil, sig, err
			}
			out = append(out, k, v)
		}
		return out, nil, nil

	case *ast.SubLiteral:
		code := e.emitClosure(fc, n)
		return []value.Scalar{value.CodeOf(code)}, nil, nil

	case *ast.UnaryExpr:
		v, sig, err := e.evalUnary(fc, n)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		return []value.Scalar{v}, nil, nil

	case *ast.BinaryExpr:
		return e.evalBinary(fc, n, ctx)

	case *ast.TernaryExpr:
		c, sig, err := e.evalScalar(fc, n.Cond)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		if e.Ops.Bool(c) {
			return e.evalList(fc, n.Then, ctx)
		}
		return e.evalList(fc, n.Else, ctx)

	case *ast.AssignExpr:
		return e.evalAssign(fc, n)

	case *ast.DeclExpr:
		return e.evalDecl(fc, n)

	case *ast.CallExpr:
		return e.evalCall(fc, n)

	case *ast.IndexExpr:
		v, sig, err := e.evalIndex(fc, n)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		return []value.Scalar{v}, nil, nil

	default:
		return nil, nil, value.Errf("native", "unsupported expression %T", expr)
	}
}

func (e *Emitter) evalStringLiteral(fc *fnCtx, n *ast.StringLiteral) value.Scalar {
	if n.Parts == nil {
		return value.Str(n.Value)
	}
	var b strings.Builder
	for _, part := range n.Parts {
		if part.Expr == nil {
			b.WriteString(part.Text)
			continue
		}
		v, sig, err := e.evalScalar(fc, part.Expr)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			continue
		}
		b.WriteString(e.Ops.ToStringOverloaded(v))
	}
	return value.Str(b.String())
}

// cellFor resolves name to the *value.Scalar backing it: a local (or
// captured) cell if one is in scope, a global otherwise. Array/hash
// sigils share the same lookup — the cell simply holds an ArrayRef or
// HashRef scalar instead of a plain one, the shape decided once at
// declaration time.
func (fc *fnCtx) cellFor(name string) *value.Scalar {
	if cell, ok := fc.scope.resolve(name); ok {
		return cell
	}
	return fc.e.Space.GetGlobalScalar(fc.e.Space.Normalize(name, fc.pkg))
}

func (e *Emitter) evalIdentifierList(fc *fnCtx, n *ast.Identifier) ([]value.Scalar, *signal, error) {
	if n.Sigil == '&' {
		code, ok := fc.e.Space.GetGlobalCode(fc.e.Space.Normalize(n.Name, fc.pkg))
		if !ok {
			return nil, nil, value.Errf("native", "undefined subroutine &%s", n.Name)
		}
		return []value.Scalar{value.CodeOf(code)}, nil, nil
	}
	cell := fc.cellFor(n.Name)
	switch n.Sigil {
	case '@':
		arr, ok := cell.AsArray()
		if !ok {
			return nil, nil, nil
		}
		return arr.Values(), nil, nil
	case '%':
		h, ok := cell.AsHash()
		if !ok {
			return nil, nil, nil
		}
		var out []value.Scalar
		for _, k := range h.Keys() {
			out = append(out, value.Str(k), h.Get(k))
		}
		return out, nil, nil
	default:
		return []value.Scalar{*cell}, nil, nil
	}
}

func (e *Emitter) evalUnary(fc *fnCtx, n *ast.UnaryExpr) (value.Scalar, *signal, error) {
	switch n.Op {
	case "++", "--":
		return e.evalIncDec(fc, n)
	case "\\":
		return e.evalRefOf(fc, n.Operand)
	}
	v, sig, err := e.evalScalar(fc, n.Operand)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return value.Undef, sig, err
	}
	switch n.Op {
	case "-":
		r, err := e.Ops.Negate(v)
		return r, nil, err
	case "!", "not":
		return value.Bool(!e.Ops.Bool(v)), nil, nil
	case "~":
		return e.Ops.Bnot(v), nil, nil
	default:
		return value.Undef, nil, value.Errf("native", "unsupported unary operator %q", n.Op)
	}
}

func (e *Emitter) evalIncDec(fc *fnCtx, n *ast.UnaryExpr) (value.Scalar, *signal, error) {
	id, ok := n.Operand.(*ast.Identifier)
	if !ok {
		return value.Undef, nil, value.Errf("native", "%s requires a variable operand", n.Op)
	}
	cell := fc.cellFor(id.Name)
	before := *cell
	var after value.Scalar
	var err error
	if n.Op == "++" {
		after, err = e.Ops.Add(before, value.Int(1))
	} else {
		after, err = e.Ops.Sub(before, value.Int(1))
	}
	if err != nil {
		return value.Undef, nil, err
	}
	cell.Set(after)
	if n.Postfix {
		return before, nil, nil
	}
	return after, nil, nil
}

func (e *Emitter) evalRefOf(fc *fnCtx, operand ast.Expression) (value.Scalar, *signal, error) {
	id, ok := operand.(*ast.Identifier)
	if !ok {
		v, sig, err := e.evalScalar(fc, operand)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return value.Undef, sig, err
		}
		if code, ok := v.AsCode(); ok {
			return value.RefOf(value.NewRef(code, value.ObjCode)), nil, nil
		}
		return value.Undef, nil, value.ErrNotRef
	}
	cell := fc.cellFor(id.Name)
	switch id.Sigil {
	case '@':
		arr, ok := cell.AsArray()
		if !ok {
			arr = value.NewArray()
			cell.Set(value.ArrayRef(arr))
		}
		return value.RefOf(value.NewRef(arr, value.ObjArray)), nil, nil
	case '%':
		h, ok := cell.AsHash()
		if !ok {
			h = value.NewHash()
			cell.Set(value.HashRef(h))
		}
		return value.RefOf(value.NewRef(h, value.ObjHash)), nil, nil
	case '&':
		code, ok := fc.e.Space.GetGlobalCode(fc.e.Space.Normalize(id.Name, fc.pkg))
		if !ok {
			return value.Undef, nil, value.Errf("native", "undefined subroutine &%s", id.Name)
		}
		return value.RefOf(value.NewRef(code, value.ObjCode)), nil, nil
	default:
		return value.RefOf(value.NewRef(cell, value.ObjScalarCell)), nil, nil
	}
}

var binaryOps = map[string]func(value.Ops, value.Scalar, value.Scalar) (value.Scalar, error){
	"+": value.Ops.Add, "-": value.Ops.Sub, "*": value.Ops.Mul, "/": value.Ops.Div,
	"%": value.Ops.Mod, "**": value.Ops.Pow,
	".": value.Ops.Concat,
}

var compareOps = map[string]func(value.Ops, value.Scalar, value.Scalar) bool{
	"==": value.Ops.NumEq, "!=": value.Ops.NumNe, "<": value.Ops.NumLt, "<=": value.Ops.NumLe,
	">": value.Ops.NumGt, ">=": value.Ops.NumGe,
	"eq": value.Ops.StrEq, "ne": value.Ops.StrNe, "lt": value.Ops.StrLt, "le": value.Ops.StrLe,
	"gt": value.Ops.StrGt, "ge": value.Ops.StrGe,
}

// evalBinary implements every non-short-circuit operator plus the two
// short-circuit forms, which need access to ctx because, in list
// context, `&&`/`||` hand back the winning side's full list rather
// than a collapsed scalar.
func (e *Emitter) evalBinary(fc *fnCtx, n *ast.BinaryExpr, ctx value.CallContext) ([]value.Scalar, *signal, error) {
	switch n.Op {
	case "&&", "and":
		left, sig, err := e.evalList(fc, n.Left, ctx)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		if !e.Ops.Bool(scalarOf(left)) {
			return left, nil, nil
		}
		return e.evalList(fc, n.Right, ctx)
	case "||", "or":
		left, sig, err := e.evalList(fc, n.Left, ctx)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		if e.Ops.Bool(scalarOf(left)) {
			return left, nil, nil
		}
		return e.evalList(fc, n.Right, ctx)
	}

	left, sig, err := e.evalScalar(fc, n.Left)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return nil, sig, err
	}
	right, sig, err := e.evalScalar(fc, n.Right)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return nil, sig, err
	}

	if op, ok := binaryOps[n.Op]; ok {
		r, err := op(e.Ops, left, right)
		return []value.Scalar{r}, nil, err
	}
	if op, ok := compareOps[n.Op]; ok {
		return []value.Scalar{value.Bool(op(e.Ops, left, right))}, nil, nil
	}
	switch n.Op {
	case "x":
		return []value.Scalar{e.Ops.Repeat(left, right.Int64())}, nil, nil
	case "<=>":
		return []value.Scalar{value.Int(int64(e.Ops.Cmp(left, right)))}, nil, nil
	case "cmp":
		return []value.Scalar{value.Int(int64(e.Ops.Lcmp(left, right)))}, nil, nil
	default:
		return nil, nil, value.Errf("native", "unsupported binary operator %q", n.Op)
	}
}

func (e *Emitter) evalIndex(fc *fnCtx, n *ast.IndexExpr) (value.Scalar, *signal, error) {
	container, sig, err := e.evalScalar(fc, n.Container)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return value.Undef, sig, err
	}
	idx, sig, err := e.evalScalar(fc, n.Index)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return value.Undef, sig, err
	}
	if arr, ok := container.AsArray(); ok {
		i := int(idx.Int64())
		if i < 0 {
			i += arr.Len()
		}
		return arr.Get(i), nil, nil
	}
	if h, ok := container.AsHash(); ok {
		return h.Get(idx.String()), nil, nil
	}
	return value.Undef, nil, value.Errf("native", "not an ARRAY or HASH reference")
}

func (e *Emitter) assignIndex(fc *fnCtx, n *ast.IndexExpr, v value.Scalar) (*signal, error) {
	container, sig, err := e.evalScalar(fc, n.Container)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return sig, err
	}
	idx, sig, err := e.evalScalar(fc, n.Index)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return sig, err
	}
	if arr, ok := container.AsArray(); ok {
		i := int(idx.Int64())
		if i < 0 {
			i += arr.Len()
		}
		arr.Slot(i).Set(v)
		return nil, nil
	}
	if h, ok := container.AsHash(); ok {
		h.Set(idx.String(), v)
		return nil, nil
	}
	return nil, value.Errf("native", "not an ARRAY or HASH reference")
}

func (e *Emitter) evalAssign(fc *fnCtx, n *ast.AssignExpr) ([]value.Scalar, *signal, error) {
	if n.Op != "" {
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, nil, value.Errf("native", "unsupported compound-assign operator %q", n.Op)
		}
		left, sig, err := e.evalScalar(fc, n.Target)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		right, sig, err := e.evalScalar(fc, n.Value)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		result, err := op(e.Ops, left, right)
		if err != nil {
			return nil, nil, err
		}
		sig, err = e.storeTo(fc, n.Target, result)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		return []value.Scalar{result}, nil, nil
	}

	switch t := n.Target.(type) {
	case *ast.Identifier:
		if t.Sigil == '@' {
			vals, sig, err := e.evalList(fc, n.Value, value.CtxList)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return nil, sig, err
			}
			fc.cellFor(t.Name).Set(value.ArrayRef(value.NewArray(vals...)))
			return vals, nil, nil
		}
		if t.Sigil == '%' {
			vals, sig, err := e.evalList(fc, n.Value, value.CtxList)
			if err != nil || (sig != nil && sig.kind != sigNone) {
				return nil, sig, err
			}
			h := value.NewHash()
			for i := 0; i+1 < len(vals); i += 2 {
				h.Set(vals[i].String(), vals[i+1])
			}
			fc.cellFor(t.Name).Set(value.HashRef(h))
			return vals, nil, nil
		}
	}

	v, sig, err := e.evalScalar(fc, n.Value)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return nil, sig, err
	}
	sig, err = e.storeTo(fc, n.Target, v)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return nil, sig, err
	}
	return []value.Scalar{v}, nil, nil
}

func (e *Emitter) storeTo(fc *fnCtx, target ast.Expression, v value.Scalar) (*signal, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		fc.cellFor(t.Name).Set(v)
		return nil, nil
	case *ast.IndexExpr:
		return e.assignIndex(fc, t, v)
	default:
		return nil, value.Errf("native", "unsupported assignment target %T", target)
	}
}

func (e *Emitter) evalDecl(fc *fnCtx, n *ast.DeclExpr) ([]value.Scalar, *signal, error) {
	if len(n.Vars) == 1 {
		v := n.Vars[0]
		switch v.Sigil {
		case '@':
			var vals []value.Scalar
			if n.Value != nil {
				vs, sig, err := e.evalList(fc, n.Value, value.CtxList)
				if err != nil || (sig != nil && sig.kind != sigNone) {
					return nil, sig, err
				}
				vals = vs
			}
			fc.declare(v.Name).Set(value.ArrayRef(value.NewArray(vals...)))
			return vals, nil, nil
		case '%':
			var vals []value.Scalar
			if n.Value != nil {
				vs, sig, err := e.evalList(fc, n.Value, value.CtxList)
				if err != nil || (sig != nil && sig.kind != sigNone) {
					return nil, sig, err
				}
				vals = vs
			}
			h := value.NewHash()
			for i := 0; i+1 < len(vals); i += 2 {
				h.Set(vals[i].String(), vals[i+1])
			}
			fc.declare(v.Name).Set(value.HashRef(h))
			return vals, nil, nil
		default:
			val := value.Undef
			if n.Value != nil {
				sv, sig, err := e.evalScalar(fc, n.Value)
				if err != nil || (sig != nil && sig.kind != sigNone) {
					return nil, sig, err
				}
				val = sv
			}
			fc.declare(v.Name).Set(val)
			return []value.Scalar{val}, nil, nil
		}
	}

	// `my ($a, @rest) = ...`: positional destructuring, a trailing
	// array-sigil var slurps whatever is left, matching the teacher's
	// per-index compileDecl but extended to handle a slurpy tail since
	// nothing here constrains list assignment to scalars only.
	var vals []value.Scalar
	if n.Value != nil {
		vs, sig, err := e.evalList(fc, n.Value, value.CtxList)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		vals = vs
	}
	for i, v := range n.Vars {
		if v.Sigil == '@' {
			var tail []value.Scalar
			if i < len(vals) {
				tail = vals[i:]
			}
			fc.declare(v.Name).Set(value.ArrayRef(value.NewArray(tail...)))
			break
		}
		elem := value.Undef
		if i < len(vals) {
			elem = vals[i]
		}
		fc.declare(v.Name).Set(elem)
	}
	return vals, nil, nil
}

func (e *Emitter) evalCall(fc *fnCtx, n *ast.CallExpr) ([]value.Scalar, *signal, error) {
	var callee *value.Code
	if id, ok := n.Callee.(*ast.Identifier); ok && id.Sigil != '$' {
		code, ok := fc.e.Space.GetGlobalCode(fc.e.Space.Normalize(id.Name, fc.pkg))
		if !ok {
			return nil, nil, value.Errf("native", "undefined subroutine &%s", id.Name)
		}
		callee = code
	} else {
		v, sig, err := e.evalScalar(fc, n.Callee)
		if err != nil || (sig != nil && sig.kind != sigNone) {
			return nil, sig, err
		}
		c, ok := v.AsCode()
		if !ok {
			return nil, nil, value.ErrNotCallable
		}
		callee = c
	}

	args, sig, err := e.evalArgs(fc, n.Args)
	if err != nil || (sig != nil && sig.kind != sigNone) {
		return nil, sig, err
	}

	result, err := callee.Call(value.NewArray(args...), callContextByte(n.Context))
	if err != nil {
		return nil, nil, err
	}
	if m, ok := ctlflow.Unwrap(result); ok {
		d := fc.e.internDispatcher(fc.loopLabels)
		idx, ok := ctlflow.ResolveDispatcher(d, m)
		if !ok {
			return nil, &signal{kind: sigMarker, marker: m, hops: -1}, nil
		}
		return nil, &signal{kind: sigMarker, marker: m, hops: idx}, nil
	}
	return result, nil, nil
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
