package lower

import (
	"context"

	"tlog.app/go/errors"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/ir"
	"github.com/slowlang/crux/compiler/tp"
)

func (fc *funContext) expr(ctx context.Context, x ast.Expr) (r frag, err error) {
	switch x := x.(type) {
	case *ast.LiteralInt:
		v := fc.NewVar(tp.Int{})

		return fc.emit(empty, &ir.Copy{Dst: v, Src: fc.Int(x.Value)}, v)
	case *ast.LiteralBool:
		v := fc.NewVar(tp.Bool{})

		return fc.emit(empty, &ir.Copy{Dst: v, Src: fc.Bool(x.Value)}, v)
	case *ast.VarAccess:
		if v, ok := fc.locals[x.Symbol]; ok {
			return frag{start: ir.Nil, end: ir.Nil, val: v}, nil
		}

		g, ok := fc.globals[x.Symbol]
		if !ok {
			return frag{}, errors.New("%v: unknown variable %v", x.Pos, x.Symbol.Name)
		}

		return fc.load(empty, g, nil)
	case *ast.ArrayAccess:
		g, ok := fc.globals[x.Array]
		if !ok {
			return frag{}, errors.New("%v: unknown array %v", x.Pos, x.Array.Name)
		}

		r, err = fc.expr(ctx, x.Index)
		if err != nil {
			return frag{}, errors.Wrap(err, "index")
		}

		r, off, err := fc.value(r)
		if err != nil {
			return frag{}, errors.Wrap(err, "index")
		}

		return fc.load(r, g, off)
	case *ast.Call:
		r, err = fc.call(ctx, x)
		if err != nil {
			return frag{}, errors.Wrap(err, "call %v", x.Callee.Name)
		}

		return r, nil
	case *ast.OpExpr:
		switch {
		case x.Op == ast.OpAnd || x.Op == ast.OpOr:
			return fc.shortCircuit(ctx, x)
		case x.Op == ast.OpNot:
			return fc.not(ctx, x)
		default:
			return fc.binary(ctx, x)
		}
	default:
		return frag{}, errors.New("unsupported expression: %T", x)
	}
}

// load reads g, or g[off] when off is set, into a fresh value temporary.
func (fc *funContext) load(pre frag, g *ir.Global, off *ir.Var) (r frag, err error) {
	t := elemType(g.Type)
	a := fc.NewAddrVar(t)
	v := fc.NewVar(t)

	r, err = fc.emit(pre, &ir.AddressAt{Dst: a, Base: g, Offset: off}, a)
	if err != nil {
		return
	}

	return fc.emit(r, &ir.Load{Dst: v, Src: a}, v)
}

func (fc *funContext) operand(ctx context.Context, pre frag, x ast.Expr) (frag, *ir.Var, error) {
	r, err := fc.expr(ctx, x)
	if err != nil {
		return frag{}, nil, err
	}

	r, err = fc.then(pre, r)
	if err != nil {
		return frag{}, nil, err
	}

	return fc.value(r)
}

func (fc *funContext) binary(ctx context.Context, x *ast.OpExpr) (r frag, err error) {
	r, l, err := fc.operand(ctx, empty, x.Left)
	if err != nil {
		return frag{}, errors.Wrap(err, "left")
	}

	r, rv, err := fc.operand(ctx, r, x.Right)
	if err != nil {
		return frag{}, errors.Wrap(err, "right")
	}

	var in ir.Instr
	v := fc.NewVar(x.Type())

	switch x.Op {
	case ast.OpAdd:
		in = &ir.BinaryOp{Op: ir.Add, Dst: v, L: l, R: rv}
	case ast.OpSub:
		in = &ir.BinaryOp{Op: ir.Sub, Dst: v, L: l, R: rv}
	case ast.OpMul:
		in = &ir.BinaryOp{Op: ir.Mul, Dst: v, L: l, R: rv}
	case ast.OpDiv:
		in = &ir.BinaryOp{Op: ir.Div, Dst: v, L: l, R: rv}
	case ast.OpLT:
		in = &ir.Compare{Pred: ir.LT, Dst: v, L: l, R: rv}
	case ast.OpLE:
		in = &ir.Compare{Pred: ir.LE, Dst: v, L: l, R: rv}
	case ast.OpGT:
		in = &ir.Compare{Pred: ir.GT, Dst: v, L: l, R: rv}
	case ast.OpGE:
		in = &ir.Compare{Pred: ir.GE, Dst: v, L: l, R: rv}
	case ast.OpEQ:
		in = &ir.Compare{Pred: ir.EQ, Dst: v, L: l, R: rv}
	case ast.OpNE:
		in = &ir.Compare{Pred: ir.NE, Dst: v, L: l, R: rv}
	default:
		return frag{}, errors.New("%v: invalid operator %v", x.Pos, x.Op)
	}

	return fc.emit(r, in, v)
}

func (fc *funContext) not(ctx context.Context, x *ast.OpExpr) (r frag, err error) {
	r, src, err := fc.operand(ctx, empty, x.Left)
	if err != nil {
		return frag{}, err
	}

	v := fc.NewVar(tp.Bool{})

	return fc.emit(r, &ir.Not{Dst: v, Src: src}, v)
}

// shortCircuit lowers && and ||. The left value picks the branch:
// one branch copies the known result, the other evaluates the right operand.
// Both write the same temporary before the shared join Nop.
func (fc *funContext) shortCircuit(ctx context.Context, x *ast.OpExpr) (r frag, err error) {
	r, l, err := fc.operand(ctx, empty, x.Left)
	if err != nil {
		return frag{}, errors.Wrap(err, "left")
	}

	res := fc.NewVar(tp.Bool{})

	jump := fc.Add(&ir.Jump{Cond: l})
	join := fc.Add(&ir.Nop{})

	r, err = fc.then(r, frag{start: jump, end: jump})
	if err != nil {
		return
	}

	right, rv, err := fc.operand(ctx, empty, x.Right)
	if err != nil {
		return frag{}, errors.Wrap(err, "right")
	}

	right, err = fc.emit(right, &ir.Copy{Dst: res, Src: rv}, nil)
	if err != nil {
		return
	}

	known := fc.Add(&ir.Copy{Dst: res, Src: fc.Bool(x.Op == ast.OpOr)})

	fc.SetNext(right.end, 0, join)
	fc.SetNext(known, 0, join)

	if x.Op == ast.OpOr {
		fc.SetNext(jump, 1, known)
		fc.SetNext(jump, 0, right.start)
	} else {
		fc.SetNext(jump, 1, right.start)
		fc.SetNext(jump, 0, known)
	}

	return frag{start: r.start, end: join, val: res}, nil
}
