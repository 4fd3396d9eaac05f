package pkgspace

import "github.com/fglock/PerlOnJava-sub015/internal/ast"

// Capture names a free variable an inner subroutine needs from an
// enclosing scope, in first-reference order.
type Capture struct {
	Sigil byte
	Name  string
}

// AnalyzeCaptures walks body looking for identifier references not
// present in locallyDeclared, returning them in the order the
// compiler records them as CaptureSlots. A name is only ever listed once even if
// referenced many times.
func AnalyzeCaptures(body *ast.Block, locallyDeclared map[string]bool) []Capture {
	declared := map[string]bool{}
	for k := range locallyDeclared {
		declared[k] = true
	}
	var order []Capture
	seen := map[string]bool{}

	var walkExpr func(ast.Expression)
	var walkStmt func(ast.Statement)

	record := func(id *ast.Identifier) {
		key := string(id.Sigil) + id.Name
		if declared[id.Name] || seen[key] {
			return
		}
		seen[key] = true
		order = append(order, Capture{Sigil: id.Sigil, Name: id.Name})
	}

	walkExpr = func(e ast.Expression) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Identifier:
			record(n)
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
			for _, v := range n.Vars {
				declared[v.Name] = true
			}
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
		case *ast.SubLiteral:
			// Nested sub: recurse with its own params added to a
			// *copy* of declared so the outer set is unaffected, but
			// anything IT fails to bind locally still propagates up
			// (a grandchild capturing from our scope).
			inner := map[string]bool{}
			for k := range declared {
				inner[k] = true
			}
			for _, p := range n.Params {
				inner[p.Name] = true
			}
			for _, c := range AnalyzeCaptures(n.Body, inner) {
				id := &ast.Identifier{Sigil: c.Sigil, Name: c.Name}
				record(id)
			}
		}
	}

	walkStmt = func(st ast.Statement) {
		if st == nil {
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
			if n.Var != nil {
				declared[n.Var.Name] = true
			}
			walkStmt(n.Body)
		case *ast.TryStatement:
			walkStmt(n.Try)
			for _, c := range n.Catches {
				if c.Var != nil {
					declared[c.Var.Name] = true
				}
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
	return order
}
