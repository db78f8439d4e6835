package check

import (
	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/tp"
)

// expr checks x, records its type and returns it. The result is never nil.
func (c *checker) expr(x ast.Expr) tp.Type {
	switch x := x.(type) {
	case *ast.LiteralInt:
		c.setType(x, tp.Int{})
	case *ast.LiteralBool:
		c.setType(x, tp.Bool{})
	case *ast.VarAccess:
		c.varAccess(x)
	case *ast.ArrayAccess:
		it := c.expr(x.Index)
		c.setType(x, tp.Index(x.Array.Type, it), it, x.Array.Type)
	case *ast.Call:
		c.call(x)
	case *ast.OpExpr:
		c.op(x)
	default:
		c.errorf(x, "unsupported expression %T", x)
		x.SetType(tp.Error{Msg: "unsupported expression"})
	}

	return x.Type()
}

func (c *checker) varAccess(x *ast.VarAccess) {
	t := x.Symbol.Type

	switch {
	case x.Symbol.Err != "":
		x.SetType(t)
	case tp.IsScalar(t):
		c.setType(x, t)
	default:
		c.setType(x, tp.Error{Msg: "cannot use " + x.Symbol.Name + " of type " + t.String() + " as a value"})
	}
}

// call reports a mismatch once, at the call, and still gives the call
// the callee's return type so the enclosing expression is checked normally.
func (c *checker) call(x *ast.Call) {
	args := make(tp.List, len(x.Args))

	for i, a := range x.Args {
		args[i] = c.expr(a)
	}

	t := tp.Call(x.Callee.Type, args)

	e, bad := t.(tp.Error)
	if !bad {
		x.SetType(t)
		return
	}

	if x.Callee.Err == "" && !anyError(args) {
		c.errorf(x, "%s", e.Msg)
	}

	if ft, ok := x.Callee.Type.(tp.Func); ok {
		x.SetType(ft.Ret)
		return
	}

	x.SetType(t)
}

func (c *checker) op(x *ast.OpExpr) {
	lt := c.expr(x.Left)

	if x.Op == ast.OpNot {
		c.setType(x, tp.Not(lt), lt)
		return
	}

	if x.Right == nil {
		c.setType(x, tp.Error{Msg: "missing operand of " + x.Op.String()}, lt)
		return
	}

	rt := c.expr(x.Right)

	var t tp.Type

	switch x.Op {
	case ast.OpAdd:
		t = tp.Add(lt, rt)
	case ast.OpSub:
		t = tp.Sub(lt, rt)
	case ast.OpMul:
		t = tp.Mul(lt, rt)
	case ast.OpDiv:
		t = tp.Div(lt, rt)
	case ast.OpAnd:
		t = tp.And(lt, rt)
	case ast.OpOr:
		t = tp.Or(lt, rt)
	case ast.OpLT, ast.OpLE, ast.OpGT, ast.OpGE, ast.OpEQ, ast.OpNE:
		t = tp.Compare(lt, rt)
	default:
		t = tp.Error{Msg: "invalid operation " + x.Op.String()}
	}

	c.setType(x, t, lt, rt)
}

func anyError(l tp.List) bool {
	for _, t := range l {
		if tp.IsError(t) {
			return true
		}
	}

	return false
}
