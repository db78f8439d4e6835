package lower

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/ir"
	"github.com/slowlang/crux/compiler/tp"
)

type (
	pkgContext struct {
		*ir.Program

		globals map[*ast.Symbol]*ir.Global
	}

	funContext struct {
		*pkgContext
		*ir.Function

		locals map[*ast.Symbol]*ir.Var

		loop *loopContext

		tr tlog.Span
	}

	// loopContext holds the targets of break and continue for the innermost loop.
	loopContext struct {
		head ir.Inst
		exit ir.Inst
	}

	// frag is the subgraph built for one node.
	// An empty frag (start == Nil, !dead) emitted no instructions; val may still be set.
	// A dead frag has no normal exit: control left it through return, break or continue.
	frag struct {
		start ir.Inst
		end   ir.Inst
		val   ir.Value
		dead  bool
	}
)

var empty = frag{start: ir.Nil, end: ir.Nil}

// Program lowers a type-checked tree into a control-flow graph per function.
func Program(ctx context.Context, x *ast.DeclarationList) (p *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: program", "decls", len(x.Decls))
	defer tr.Finish("err", &err)

	pc := &pkgContext{
		Program: ir.NewProgram(),
		globals: make(map[*ast.Symbol]*ir.Global),
	}

	for _, d := range x.Decls {
		switch d := d.(type) {
		case *ast.VariableDeclaration:
			pc.global(d.Symbol, 1)
		case *ast.ArrayDeclaration:
			a, ok := d.Symbol.Type.(tp.Array)
			if !ok {
				return nil, errors.New("%v: array %v of type %v", d.Pos, d.Symbol.Name, d.Symbol.Type)
			}

			pc.global(d.Symbol, a.Extent)
		case *ast.FunctionDefinition:
			err = pc.function(ctx, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", d.Symbol.Name)
			}
		default:
			return nil, errors.New("unsupported declaration: %T", d)
		}
	}

	return pc.Program, nil
}

func (pc *pkgContext) global(s *ast.Symbol, n int64) {
	g := &ir.Global{
		Name:  s.Name,
		Type:  s.Type,
		Count: n,
	}

	pc.globals[s] = g
	pc.AddGlobal(g)
}

func (pc *pkgContext) function(ctx context.Context, d *ast.FunctionDefinition) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: function", "name", d.Symbol.Name)
	defer tr.Finish("err", &err)

	ft, ok := d.Symbol.Type.(tp.Func)
	if !ok {
		return errors.New("%v: function of type %v", d.Pos, d.Symbol.Type)
	}

	fc := &funContext{
		pkgContext: pc,
		Function:   ir.NewFunction(d.Symbol.Name, ft),
		locals:     make(map[*ast.Symbol]*ir.Var),
		tr:         tr,
	}

	for _, p := range d.Params {
		v := fc.NewVar(p.Type)

		fc.Params = append(fc.Params, v)
		fc.locals[p] = v
	}

	pc.AddFunc(fc.Function)

	body, err := fc.list(ctx, d.Body)
	if err != nil {
		return err
	}

	if body.start == ir.Nil {
		body.start = fc.Add(&ir.Nop{})
	}

	fc.Start = body.start

	err = fc.Seal()
	if err != nil {
		return errors.Wrap(err, "seal")
	}

	tr.V("lower_func").Printw("function lowered", "insts", len(fc.Code), "vars", fc.NumVars(), "addrs", fc.NumAddrVars())

	return nil
}

// then sequences b after a.
func (fc *funContext) then(a, b frag) (frag, error) {
	if a.dead {
		return frag{}, errors.New("sequence after a dead fragment")
	}

	if a.start == ir.Nil {
		return b, nil
	}

	if b.start == ir.Nil {
		return frag{start: a.start, end: a.end, val: b.val, dead: b.dead}, nil
	}

	fc.SetNext(a.end, 0, b.start)

	return frag{start: a.start, end: b.end, val: b.val, dead: b.dead}, nil
}

// emit appends a single instruction to a.
func (fc *funContext) emit(a frag, x ir.Instr, val ir.Value) (frag, error) {
	i := fc.AddFrom(x, loc.Caller(1))

	if fc.tr.If("lower_frag") {
		fc.tr.Printw("emit", "inst", i, "instr", string(ir.AppendInstr(nil, x)))
	}

	return fc.then(a, frag{start: i, end: i, val: val})
}

// value makes sure the fragment result is a plain value temporary, loading through an address if needed.
func (fc *funContext) value(a frag) (frag, *ir.Var, error) {
	switch v := a.val.(type) {
	case *ir.Var:
		return a, v, nil
	case *ir.AddrVar:
		t := fc.NewVar(v.T)

		a, err := fc.emit(a, &ir.Load{Dst: t, Src: v}, t)

		return a, t, err
	case *ir.IntConst, *ir.BoolConst:
		t := fc.NewVar(v.Type())

		a, err := fc.emit(a, &ir.Copy{Dst: t, Src: v}, t)

		return a, t, err
	default:
		return a, nil, errors.New("expression has no value: %T", a.val)
	}
}

func (fc *funContext) list(ctx context.Context, l *ast.StatementList) (r frag, err error) {
	r = empty

	if l == nil {
		return r, nil
	}

	for i, s := range l.Stmts {
		if r.dead {
			return frag{}, errors.New("%v: unreachable statement", l.Stmts[i].Position())
		}

		x, err := fc.stmt(ctx, s)
		if err != nil {
			return frag{}, errors.Wrap(err, "%v", s.Position())
		}

		r, err = fc.then(r, x)
		if err != nil {
			return frag{}, err
		}
	}

	r.val = nil

	return r, nil
}

func (fc *funContext) stmt(ctx context.Context, s ast.Stmt) (r frag, err error) {
	switch s := s.(type) {
	case *ast.VariableDeclaration:
		fc.locals[s.Symbol] = fc.NewVar(s.Symbol.Type)

		return empty, nil
	case *ast.ArrayDeclaration:
		return frag{}, errors.New("local array %v", s.Symbol.Name)
	case *ast.Assignment:
		return fc.assign(ctx, s)
	case *ast.Call:
		r, err = fc.call(ctx, s)
		r.val = nil

		return r, err
	case *ast.IfElseBranch:
		return fc.ifElse(ctx, s)
	case *ast.Loop:
		return fc.loopStmt(ctx, s)
	case *ast.Break:
		if fc.loop == nil {
			return frag{}, errors.New("break outside of loop")
		}

		return frag{start: fc.loop.exit, end: ir.Nil, dead: true}, nil
	case *ast.Continue:
		if fc.loop == nil {
			return frag{}, errors.New("continue outside of loop")
		}

		return frag{start: fc.loop.head, end: ir.Nil, dead: true}, nil
	case *ast.Return:
		return fc.ret(ctx, s)
	default:
		return frag{}, errors.New("unsupported statement: %T", s)
	}
}

func (fc *funContext) ret(ctx context.Context, s *ast.Return) (r frag, err error) {
	var v *ir.Var

	r = empty

	if s.Value != nil {
		r, err = fc.expr(ctx, s.Value)
		if err != nil {
			return
		}

		r, v, err = fc.value(r)
		if err != nil {
			return
		}
	}

	r, err = fc.emit(r, &ir.Return{Value: v}, nil)
	if err != nil {
		return
	}

	r.end = ir.Nil
	r.dead = true

	return r, nil
}

func (fc *funContext) assign(ctx context.Context, s *ast.Assignment) (r frag, err error) {
	switch to := s.Location.(type) {
	case *ast.VarAccess:
		if v, ok := fc.locals[to.Symbol]; ok {
			r, err = fc.expr(ctx, s.Value)
			if err != nil {
				return
			}

			r, src, err := fc.value(r)
			if err != nil {
				return frag{}, err
			}

			return fc.emit(r, &ir.Copy{Dst: v, Src: src}, nil)
		}

		g, ok := fc.globals[to.Symbol]
		if !ok {
			return frag{}, errors.New("unknown variable %v", to.Symbol.Name)
		}

		return fc.store(ctx, g, empty, nil, s.Value)
	case *ast.ArrayAccess:
		g, ok := fc.globals[to.Array]
		if !ok {
			return frag{}, errors.New("unknown array %v", to.Array.Name)
		}

		idx, err := fc.expr(ctx, to.Index)
		if err != nil {
			return frag{}, errors.Wrap(err, "index")
		}

		idx, off, err := fc.value(idx)
		if err != nil {
			return frag{}, errors.Wrap(err, "index")
		}

		return fc.store(ctx, g, idx, off, s.Value)
	default:
		return frag{}, errors.New("unsupported assignment target: %T", to)
	}
}

// store evaluates value after pre and writes it to g, or to g[off] when off is set.
func (fc *funContext) store(ctx context.Context, g *ir.Global, pre frag, off *ir.Var, value ast.Expr) (r frag, err error) {
	x, err := fc.expr(ctx, value)
	if err != nil {
		return
	}

	r, err = fc.then(pre, x)
	if err != nil {
		return
	}

	r, v, err := fc.value(r)
	if err != nil {
		return
	}

	a := fc.NewAddrVar(elemType(g.Type))

	r, err = fc.emit(r, &ir.AddressAt{Dst: a, Base: g, Offset: off}, nil)
	if err != nil {
		return
	}

	return fc.emit(r, &ir.Store{Src: v, Dst: a}, nil)
}

func (fc *funContext) call(ctx context.Context, c *ast.Call) (r frag, err error) {
	ft, ok := c.Callee.Type.(tp.Func)
	if !ok {
		return frag{}, errors.New("call of %v", c.Callee.Type)
	}

	r = empty
	args := make([]*ir.Var, 0, len(c.Args))

	for i, a := range c.Args {
		x, err := fc.expr(ctx, a)
		if err != nil {
			return frag{}, errors.Wrap(err, "arg %d", i)
		}

		r, err = fc.then(r, x)
		if err != nil {
			return frag{}, err
		}

		var v *ir.Var

		r, v, err = fc.value(r)
		if err != nil {
			return frag{}, errors.Wrap(err, "arg %d", i)
		}

		args = append(args, v)
	}

	var dst *ir.Var

	if _, void := ft.Ret.(tp.Void); !void {
		dst = fc.NewVar(ft.Ret)
	}

	var val ir.Value
	if dst != nil {
		val = dst
	}

	return fc.emit(r, &ir.Call{Dst: dst, Callee: c.Callee.Name, Type: ft, Args: args}, val)
}

func (fc *funContext) ifElse(ctx context.Context, s *ast.IfElseBranch) (r frag, err error) {
	cond, err := fc.expr(ctx, s.Cond)
	if err != nil {
		return frag{}, errors.Wrap(err, "cond")
	}

	cond, cv, err := fc.value(cond)
	if err != nil {
		return frag{}, errors.Wrap(err, "cond")
	}

	jump := fc.Add(&ir.Jump{Cond: cv})

	r, err = fc.then(cond, frag{start: jump, end: jump})
	if err != nil {
		return
	}

	merge := ir.Nil
	join := func(x frag) {
		if x.dead {
			return
		}

		if merge == ir.Nil {
			merge = fc.Add(&ir.Nop{})
		}

		fc.SetNext(x.end, 0, merge)
	}

	then, err := fc.branch(ctx, s.Then)
	if err != nil {
		return frag{}, errors.Wrap(err, "then")
	}

	fc.SetNext(jump, 1, then.start)
	join(then)

	if s.Else == nil || len(s.Else.Stmts) == 0 {
		if merge == ir.Nil {
			merge = fc.Add(&ir.Nop{})
		}

		fc.SetNext(jump, 0, merge)
	} else {
		els, err := fc.branch(ctx, s.Else)
		if err != nil {
			return frag{}, errors.Wrap(err, "else")
		}

		fc.SetNext(jump, 0, els.start)
		join(els)
	}

	if merge == ir.Nil {
		return frag{start: r.start, end: ir.Nil, dead: true}, nil
	}

	return frag{start: r.start, end: merge}, nil
}

// branch lowers a block that must have an entry instruction.
func (fc *funContext) branch(ctx context.Context, l *ast.StatementList) (r frag, err error) {
	r, err = fc.list(ctx, l)
	if err != nil {
		return
	}

	if r.start == ir.Nil {
		nop := fc.Add(&ir.Nop{})
		r = frag{start: nop, end: nop}
	}

	return r, nil
}

func (fc *funContext) loopStmt(ctx context.Context, s *ast.Loop) (r frag, err error) {
	head := fc.Add(&ir.Nop{})
	exit := fc.Add(&ir.Nop{})

	outer := fc.loop
	fc.loop = &loopContext{head: head, exit: exit}

	defer func() {
		fc.loop = outer
	}()

	body, err := fc.list(ctx, s.Body)
	if err != nil {
		return frag{}, errors.Wrap(err, "loop body")
	}

	if body.start == ir.Nil {
		fc.SetNext(head, 0, head)
	} else {
		fc.SetNext(head, 0, body.start)

		if !body.dead {
			fc.SetNext(body.end, 0, head)
		}
	}

	return frag{start: head, end: exit}, nil
}

func elemType(t tp.Type) tp.Type {
	if a, ok := t.(tp.Array); ok {
		return a.Base
	}

	return t
}
