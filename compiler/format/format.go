package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/ir"
	"github.com/slowlang/crux/compiler/tp"
)

// Format appends a readable dump of a syntax tree or an IR program.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.DeclarationList:
		return formatDecls(ctx, b, x, d)
	case *ir.Program:
		return ir.Format(b, x), nil
	case *ir.Function:
		return x.Format(b), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatDecls(ctx context.Context, b []byte, x *ast.DeclarationList, d int) (_ []byte, err error) {
	for i, decl := range x.Decls {
		switch decl := decl.(type) {
		case *ast.VariableDeclaration:
			b = app(b, d, "var %s %v\n", decl.Symbol.Name, decl.Symbol.Type)
		case *ast.ArrayDeclaration:
			b = app(b, d, "var %s %v\n", decl.Symbol.Name, decl.Symbol.Type)
		case *ast.FunctionDefinition:
			if i != 0 {
				b = append(b, '\n')
			}

			b, err = formatFunc(ctx, b, decl, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", decl.Symbol.Name)
			}
		default:
			return nil, errors.New("unsupported decl: %T", decl)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, x *ast.FunctionDefinition, d int) ([]byte, error) {
	b = app(b, d, "func %s(", x.Symbol.Name)

	for i, a := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s %v", a.Name, a.Type)
	}

	b = append(b, ")"...)

	if ft, ok := x.Symbol.Type.(tp.Func); ok {
		if _, void := ft.Ret.(tp.Void); !void {
			b = app(b, 0, " %v", ft.Ret)
		}
	}

	b = app(b, 0, " {\n")

	b, err := formatBlock(ctx, b, x.Body, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, x *ast.StatementList, d int) (_ []byte, err error) {
	if x == nil {
		return b, nil
	}

	for _, s := range x.Stmts {
		switch s := s.(type) {
		case *ast.VariableDeclaration:
			b = app(b, d, "var %s %v\n", s.Symbol.Name, s.Symbol.Type)
		case *ast.ArrayDeclaration:
			b = app(b, d, "var %s %v\n", s.Symbol.Name, s.Symbol.Type)
		case *ast.Assignment:
			b = app(b, d, "")

			b, err = formatExpr(ctx, b, s.Location)
			if err != nil {
				return nil, errors.Wrap(err, "location")
			}

			b = append(b, " = "...)

			b, err = formatExpr(ctx, b, s.Value)
			if err != nil {
				return nil, errors.Wrap(err, "value")
			}

			b = append(b, '\n')
		case *ast.Call:
			b = app(b, d, "")

			b, err = formatExpr(ctx, b, s)
			if err != nil {
				return nil, err
			}

			b = append(b, '\n')
		case *ast.IfElseBranch:
			b = app(b, d, "if ")

			b, err = formatExpr(ctx, b, s.Cond)
			if err != nil {
				return nil, errors.Wrap(err, "cond")
			}

			b = append(b, " {\n"...)

			b, err = formatBlock(ctx, b, s.Then, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "then block")
			}

			if s.Else != nil && len(s.Else.Stmts) != 0 {
				b = app(b, d, "} else {\n")

				b, err = formatBlock(ctx, b, s.Else, d+1)
				if err != nil {
					return nil, errors.Wrap(err, "else block")
				}
			}

			b = app(b, d, "}\n")
		case *ast.Loop:
			b = app(b, d, "for {\n")

			b, err = formatBlock(ctx, b, s.Body, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "loop body")
			}

			b = app(b, d, "}\n")
		case *ast.Break:
			b = app(b, d, "break\n")
		case *ast.Continue:
			b = app(b, d, "continue\n")
		case *ast.Return:
			if s.Value == nil {
				b = app(b, d, "return\n")
				break
			}

			b = app(b, d, "return ")

			b, err = formatExpr(ctx, b, s.Value)
			if err != nil {
				return nil, errors.Wrap(err, "expr")
			}

			b = append(b, '\n')
		default:
			return nil, errors.New("unsupported stmt: %T", s)
		}
	}

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Expr) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.LiteralInt:
		b = hfmt.Appendf(b, "%d", x.Value)
	case *ast.LiteralBool:
		b = hfmt.Appendf(b, "%v", x.Value)
	case *ast.VarAccess:
		b = append(b, x.Symbol.Name...)
	case *ast.ArrayAccess:
		b = append(b, x.Array.Name...)
		b = append(b, '[')

		b, err = formatExpr(ctx, b, x.Index)
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}

		b = append(b, ']')
	case *ast.Call:
		b = append(b, x.Callee.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.OpExpr:
		if x.Op == ast.OpNot {
			b = append(b, "!"...)

			return formatExpr(ctx, b, x.Left)
		}

		b = append(b, '(')

		b, err = formatExpr(ctx, b, x.Left)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %v ", x.Op)

		b, err = formatExpr(ctx, b, x.Right)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		b = append(b, ')')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
