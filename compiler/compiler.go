package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/back"
	"github.com/slowlang/crux/compiler/check"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/front"
	"github.com/slowlang/crux/compiler/ir"
	"github.com/slowlang/crux/compiler/lower"
)

type (
	Options struct {
		// Comments puts the IR form of each instruction into the assembly.
		Comments bool
	}

	// Unit is one compiled document with the results of every finished phase.
	Unit struct {
		Name string

		AST   *ast.DeclarationList
		Diags diag.List
		IR    *ir.Program
		Asm   []byte
	}
)

func ReadFile(ctx context.Context, name string) (text []byte, err error) {
	text, err = os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return text, nil
}

func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}

	return Compile(ctx, name, text)
}

func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	u, err := Options{}.Compile(ctx, name, text)
	if err != nil {
		return nil, err
	}

	return u.Asm, nil
}

// Check parses and type checks text. Diagnostics are returned as a *diag.Error.
func (o Options) Check(ctx context.Context, name string, text []byte) (u *Unit, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: check", "name", name)
	defer tr.Finish("err", &err)

	u = &Unit{Name: name}

	fr := front.New(&u.Diags)

	err = fr.AddFile(ctx, name, text)
	if err != nil {
		return nil, err
	}

	u.AST, err = fr.Parse(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	check.Program(ctx, u.AST, &u.Diags)

	if err = u.Diags.Err(); err != nil {
		return u, err
	}

	return u, nil
}

// Lower checks text and builds its control-flow graphs.
func (o Options) Lower(ctx context.Context, name string, text []byte) (u *Unit, err error) {
	u, err = o.Check(ctx, name, text)
	if err != nil {
		return u, err
	}

	u.IR, err = lower.Program(ctx, u.AST)
	if err != nil {
		return u, errors.Wrap(err, "lower")
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_ir") {
		tr.Printw("ir", "name", name, "dump", ir.Format(nil, u.IR))
	}

	return u, nil
}

// Compile runs every phase and fills u.Asm.
// No code is generated when any diagnostic was reported.
func (o Options) Compile(ctx context.Context, name string, text []byte) (u *Unit, err error) {
	u, err = o.Lower(ctx, name, text)
	if err != nil {
		return u, err
	}

	c := back.New()
	c.Comments = o.Comments

	u.Asm, err = c.CompileProgram(ctx, nil, u.IR)
	if err != nil {
		return u, errors.Wrap(err, "codegen")
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_asm") {
		tr.Printw("asm", "name", name, "text", u.Asm)
	}

	return u, nil
}
