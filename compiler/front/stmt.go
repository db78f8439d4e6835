package front

import (
	"context"
	"strconv"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/slowlang/crux/compiler/ast"
)

var binOps = map[string]ast.Op{
	"add": ast.OpAdd,
	"sub": ast.OpSub,
	"mul": ast.OpMul,
	"div": ast.OpDiv,
	"and": ast.OpAnd,
	"or":  ast.OpOr,
	"lt":  ast.OpLT,
	"le":  ast.OpLE,
	"gt":  ast.OpGT,
	"ge":  ast.OpGE,
	"eq":  ast.OpEQ,
	"ne":  ast.OpNE,
}

// parseList parses a statement list in its own scope unless scoped is false,
// which is used for function bodies sharing the parameter scope.
func (c *Front) parseList(ctx context.Context, n *yaml.Node, at ast.Pos, scoped bool) (l *ast.StatementList, err error) {
	l = &ast.StatementList{Base: ast.Base{Pos: at}}

	if n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return l, nil
	}

	if n.Kind != yaml.SequenceNode {
		return nil, errorf(n, "statement list expected")
	}

	l.Pos = pos(n)

	if scoped {
		c.st.Enter()
		defer c.st.Exit()
	}

	for _, sn := range n.Content {
		s, err := c.parseStmt(ctx, sn)
		if err != nil {
			return nil, err
		}

		l.Stmts = append(l.Stmts, s)
	}

	return l, nil
}

func (c *Front) parseStmt(ctx context.Context, n *yaml.Node) (ast.Stmt, error) {
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	b := ast.Base{Pos: pos(n)}

	switch key {
	case "let":
		return c.parseVar(v)
	case "array":
		return c.parseArray(v)
	case "assign":
		return c.parseAssign(ctx, n, v)
	case "call":
		return c.parseCall(ctx, n, v)
	case "if":
		return c.parseIf(ctx, n, v)
	case "loop":
		body, err := c.parseList(ctx, v, b.Pos, true)
		if err != nil {
			return nil, errors.Wrap(err, "loop")
		}

		return &ast.Loop{Base: b, Body: body}, nil
	case "break":
		return &ast.Break{Base: b}, nil
	case "continue":
		return &ast.Continue{Base: b}, nil
	case "return":
		s := &ast.Return{Base: b}

		if v == nil || v.Tag == "!!null" {
			return s, nil
		}

		s.Value, err = c.parseExpr(ctx, v)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return s, nil
	default:
		return nil, errorf(n, "unexpected statement: %v", key)
	}
}

func (c *Front) parseAssign(ctx context.Context, n, v *yaml.Node) (s *ast.Assignment, err error) {
	f, err := mapping(v, "to", "value")
	if err != nil {
		return nil, err
	}

	if f["to"] == nil || f["value"] == nil {
		return nil, errorf(n, "assign: to and value required")
	}

	s = &ast.Assignment{Base: ast.Base{Pos: pos(n)}}

	s.Location, err = c.parseExpr(ctx, f["to"])
	if err != nil {
		return nil, errors.Wrap(err, "assign")
	}

	switch s.Location.(type) {
	case *ast.VarAccess, *ast.ArrayAccess:
	default:
		return nil, errorf(f["to"], "assign: variable or array element expected")
	}

	s.Value, err = c.parseExpr(ctx, f["value"])
	if err != nil {
		return nil, errors.Wrap(err, "assign")
	}

	return s, nil
}

func (c *Front) parseIf(ctx context.Context, n, v *yaml.Node) (s *ast.IfElseBranch, err error) {
	f, err := mapping(v, "cond", "then", "else")
	if err != nil {
		return nil, err
	}

	if f["cond"] == nil {
		return nil, errorf(n, "if: cond required")
	}

	s = &ast.IfElseBranch{Base: ast.Base{Pos: pos(n)}}

	s.Cond, err = c.parseExpr(ctx, f["cond"])
	if err != nil {
		return nil, errors.Wrap(err, "if")
	}

	s.Then, err = c.parseList(ctx, f["then"], s.Pos, true)
	if err != nil {
		return nil, errors.Wrap(err, "then")
	}

	s.Else, err = c.parseList(ctx, f["else"], s.Pos, true)
	if err != nil {
		return nil, errors.Wrap(err, "else")
	}

	return s, nil
}

// parseCall accepts `call: f` and `call: {name: f, args: [...]}`.
func (c *Front) parseCall(ctx context.Context, n, v *yaml.Node) (x *ast.Call, err error) {
	if v == nil {
		return nil, errorf(n, "call: callee required")
	}

	x = &ast.Call{}
	x.Pos = pos(n)

	if v.Kind == yaml.ScalarNode {
		x.Callee = c.st.Lookup(x.Pos, v.Value)

		return x, nil
	}

	f, err := mapping(v, "name", "args")
	if err != nil {
		return nil, err
	}

	name, err := str(f, v, "name")
	if err != nil {
		return nil, err
	}

	x.Callee = c.st.Lookup(x.Pos, name)

	if an := f["args"]; an != nil {
		if an.Kind != yaml.SequenceNode {
			return nil, errorf(an, "args: list expected")
		}

		for _, a := range an.Content {
			e, err := c.parseExpr(ctx, a)
			if err != nil {
				return nil, errors.Wrap(err, "call %v", name)
			}

			x.Args = append(x.Args, e)
		}
	}

	return x, nil
}

func (c *Front) parseExpr(ctx context.Context, n *yaml.Node) (ast.Expr, error) {
	if n.Kind == yaml.ScalarNode {
		return c.parseScalar(n, n.Tag)
	}

	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	if v == nil {
		return nil, errorf(n, "%v: operand required", key)
	}

	switch key {
	case "int":
		return c.parseScalar(v, "!!int")
	case "bool":
		return c.parseScalar(v, "!!bool")
	case "var":
		return c.parseScalar(v, "!!str")
	case "call":
		return c.parseCall(ctx, n, v)
	case "index":
		if v.Kind != yaml.SequenceNode || len(v.Content) != 2 || v.Content[0].Kind != yaml.ScalarNode {
			return nil, errorf(v, "index: [array, expr] expected")
		}

		x := &ast.ArrayAccess{}
		x.Pos = pos(n)
		x.Array = c.st.Lookup(x.Pos, v.Content[0].Value)

		x.Index, err = c.parseExpr(ctx, v.Content[1])
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}

		return x, nil
	case "not":
		x := &ast.OpExpr{Op: ast.OpNot}
		x.Pos = pos(n)

		x.Left, err = c.parseExpr(ctx, v)
		if err != nil {
			return nil, errors.Wrap(err, "not")
		}

		return x, nil
	}

	op, ok := binOps[key]
	if !ok {
		return nil, errorf(n, "unexpected expression: %v", key)
	}

	if v.Kind != yaml.SequenceNode || len(v.Content) != 2 {
		return nil, errorf(v, "%v: two operands expected", key)
	}

	x := &ast.OpExpr{Op: op}
	x.Pos = pos(n)

	x.Left, err = c.parseExpr(ctx, v.Content[0])
	if err != nil {
		return nil, errors.Wrap(err, "%v", key)
	}

	x.Right, err = c.parseExpr(ctx, v.Content[1])
	if err != nil {
		return nil, errors.Wrap(err, "%v", key)
	}

	return x, nil
}

func (c *Front) parseScalar(n *yaml.Node, tag string) (ast.Expr, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errorf(n, "scalar expected")
	}

	b := ast.Typed{Base: ast.Base{Pos: pos(n)}}

	switch tag {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, errorf(n, "int literal: %v", err)
		}

		return &ast.LiteralInt{Typed: b, Value: v}, nil
	case "!!bool":
		v, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, errorf(n, "bool literal: %v", err)
		}

		return &ast.LiteralBool{Typed: b, Value: v}, nil
	case "!!str":
		return &ast.VarAccess{Typed: b, Symbol: c.st.Lookup(b.Pos, n.Value)}, nil
	default:
		return nil, errorf(n, "unexpected literal %v", n.Value)
	}
}
