package check

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/tp"
)

type (
	checker struct {
		diags *diag.List

		fn   *funContext
		loop *loopContext
	}

	funContext struct {
		name string
		ret  tp.Type
	}

	// loopContext is replaced on entry to each loop and restored on exit,
	// so a break only marks the loop it belongs to.
	loopContext struct {
		hasBreak bool
	}

	// flow describes how control leaves a statement.
	flow struct {
		returns bool // every path ends in return
		jumps   bool // control never reaches the next statement
	}
)

// Program assigns a type to every expression in x and reports violations into diags.
// It never stops at the first problem.
func Program(ctx context.Context, x *ast.DeclarationList, diags *diag.List) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "check: program", "decls", len(x.Decls))
	defer func() {
		tr.Finish("errors", diags.Len())
	}()

	c := &checker{diags: diags}

	for _, d := range x.Decls {
		c.decl(d)
	}
}

func (c *checker) errorf(n ast.Node, format string, args ...any) {
	c.diags.Add(diag.TypeError, n.Position(), format, args...)
}

// setType records t on x. A fresh Error is reported, one that came from
// an operand was reported already.
func (c *checker) setType(x ast.Expr, t tp.Type, operands ...tp.Type) {
	x.SetType(t)

	e, ok := t.(tp.Error)
	if !ok {
		return
	}

	for _, o := range operands {
		if tp.IsError(o) {
			return
		}
	}

	c.errorf(x, "%s", e.Msg)
}

func (c *checker) decl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.FunctionDefinition:
		c.function(d)
	case *ast.VariableDeclaration:
		c.varDecl(d)
	case *ast.ArrayDeclaration:
		c.arrayDecl(d)
	default:
		c.errorf(d, "unsupported declaration %T", d)
	}
}

func (c *checker) varDecl(d *ast.VariableDeclaration) {
	if d.Symbol.Err != "" {
		return
	}

	if !tp.IsScalar(d.Symbol.Type) {
		c.errorf(d, "variable %s of type %v: only int and bool variables are allowed", d.Symbol.Name, d.Symbol.Type)
	}
}

func (c *checker) arrayDecl(d *ast.ArrayDeclaration) {
	if d.Symbol.Err != "" {
		return
	}

	a, ok := d.Symbol.Type.(tp.Array)
	switch {
	case !ok:
		c.errorf(d, "array %s of type %v", d.Symbol.Name, d.Symbol.Type)
	case !tp.IsScalar(a.Base):
		c.errorf(d, "array %s: base type %v is not int or bool", d.Symbol.Name, a.Base)
	case a.Extent < 0:
		c.errorf(d, "array %s: negative extent %d", d.Symbol.Name, a.Extent)
	}
}

func (c *checker) function(d *ast.FunctionDefinition) {
	ft, ok := d.Symbol.Type.(tp.Func)
	if !ok {
		if d.Symbol.Err == "" {
			c.errorf(d, "function %s of type %v", d.Symbol.Name, d.Symbol.Type)
		}

		ft = tp.Func{Ret: tp.Void{}}
	}

	c.fn = &funContext{name: d.Symbol.Name, ret: ft.Ret}
	c.loop = nil

	defer func() {
		c.fn = nil
	}()

	if d.Symbol.Name == "main" {
		if _, void := ft.Ret.(tp.Void); !void || len(d.Params) != 0 {
			c.errorf(d, "main function definition error")
		}

		c.list(d.Body)

		return
	}

	for _, p := range d.Params {
		if p.Err == "" && !tp.IsScalar(p.Type) {
			c.errorf(d, "function parameter type error")
		}
	}

	f := c.list(d.Body)

	if _, void := ft.Ret.(tp.Void); !void && !f.returns {
		c.errorf(d, "function return statement missing")
	}
}

func (c *checker) list(l *ast.StatementList) (f flow) {
	if l == nil {
		return flow{}
	}

	reported := false

	for _, s := range l.Stmts {
		if f.jumps && !reported {
			c.errorf(s, "unreachable statement")
			reported = true
		}

		sf := c.stmt(s)

		if !f.jumps {
			f = sf
		}
	}

	return f
}

func (c *checker) stmt(s ast.Stmt) flow {
	switch s := s.(type) {
	case *ast.VariableDeclaration:
		c.varDecl(s)
	case *ast.ArrayDeclaration:
		c.errorf(s, "array %s must be declared globally", s.Symbol.Name)
	case *ast.Assignment:
		c.assignment(s)
	case *ast.Call:
		c.expr(s)
	case *ast.IfElseBranch:
		return c.ifElse(s)
	case *ast.Loop:
		return c.loopStmt(s)
	case *ast.Break:
		if c.loop == nil {
			c.errorf(s, "break outside of loop")
		} else {
			c.loop.hasBreak = true
		}

		return flow{jumps: true}
	case *ast.Continue:
		if c.loop == nil {
			c.errorf(s, "continue outside of loop")
		}

		return flow{jumps: true}
	case *ast.Return:
		c.ret(s)

		return flow{returns: true, jumps: true}
	default:
		c.errorf(s, "unsupported statement %T", s)
	}

	return flow{}
}

func (c *checker) assignment(s *ast.Assignment) {
	vt := c.expr(s.Value)
	lt := c.expr(s.Location)

	t := tp.Assign(lt, vt)
	if e, ok := t.(tp.Error); ok && !tp.IsError(lt) && !tp.IsError(vt) {
		c.errorf(s, "%s", e.Msg)
	}
}

func (c *checker) ifElse(s *ast.IfElseBranch) flow {
	ct := c.expr(s.Cond)
	if _, ok := ct.(tp.Bool); !ok && !tp.IsError(ct) {
		c.errorf(s, "if condition not bool type")
	}

	then := c.list(s.Then)

	if s.Else == nil || len(s.Else.Stmts) == 0 {
		return flow{}
	}

	els := c.list(s.Else)

	return flow{
		returns: then.returns && els.returns,
		jumps:   then.jumps && els.jumps,
	}
}

func (c *checker) loopStmt(s *ast.Loop) flow {
	outer := c.loop
	c.loop = &loopContext{}

	defer func() {
		c.loop = outer
	}()

	body := c.list(s.Body)

	if !body.returns && !c.loop.hasBreak {
		c.errorf(s, "infinite loop!")
	}

	if c.loop.hasBreak {
		return flow{}
	}

	return flow{returns: body.returns, jumps: true}
}

func (c *checker) ret(s *ast.Return) {
	var t tp.Type = tp.Void{}

	if s.Value != nil {
		t = c.expr(s.Value)
	}

	if tp.IsError(t) || c.fn == nil {
		return
	}

	if !tp.Equivalent(t, c.fn.ret) {
		c.errorf(s, "return type does not match currentFunctionReturnType")
	}
}
