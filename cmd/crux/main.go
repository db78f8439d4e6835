package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler"
	"github.com/slowlang/crux/compiler/asm"
	"github.com/slowlang/crux/compiler/asm/amd64"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/eval"
	"github.com/slowlang/crux/compiler/format"
	"github.com/slowlang/crux/compiler/ir"
)

func main() {
	checkCmd := &cli.Command{
		Name:        "check",
		Description: "parse and type check, print diagnostics",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print the syntax tree as pseudo source",
		Action:      fmtAct,
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print control-flow graphs",
		Action:      irAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("origin", false, "show the lowering call site of every instruction"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "generate x86-64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, stdout by default"),
			cli.NewFlag("comments", false, "annotate assembly with ir"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute main in the emulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("input", "", "program input file, stdin by default"),
			cli.NewFlag("max-steps", 0, "instruction limit, 0 is unlimited"),
		},
	}

	interpCmd := &cli.Command{
		Name:        "interp",
		Description: "interpret the ir of main",
		Action:      interpAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("input", "", "program input file, stdin by default"),
			cli.NewFlag("max-steps", 0, "instruction limit, 0 is unlimited"),
		},
	}

	app := &cli.Command{
		Name:        "crux",
		Description: "crux is a compiler for crux syntax documents",
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics (dump_ir, dump_asm, dump_func, lower_frag, ...)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			checkCmd,
			fmtCmd,
			irCmd,
			compileCmd,
			runCmd,
			interpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) (context.Context, error) {
	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	if len(c.Args) == 0 {
		return nil, errors.New("file argument expected")
	}

	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx, nil
}

// report prints diagnostics one per line.
func report(err error) error {
	var d *diag.Error
	if !errors.As(err, &d) {
		return err
	}

	for _, x := range d.Diags {
		fmt.Println(x)
	}

	return errors.New("%d error(s)", len(d.Diags))
}

func checkAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		text, err := compiler.ReadFile(ctx, a)
		if err != nil {
			return err
		}

		_, err = compiler.Options{}.Check(ctx, a, text)
		if err != nil {
			return errors.Wrap(report(err), "check %v", a)
		}
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		text, err := compiler.ReadFile(ctx, a)
		if err != nil {
			return err
		}

		u, err := compiler.Options{}.Check(ctx, a, text)
		if err != nil {
			return errors.Wrap(report(err), "check %v", a)
		}

		b, err := format.Format(ctx, nil, u.AST)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		os.Stdout.Write(b)
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	pr := ir.Printer{Origin: c.Bool("origin")}

	for _, a := range c.Args {
		text, err := compiler.ReadFile(ctx, a)
		if err != nil {
			return err
		}

		u, err := compiler.Options{}.Lower(ctx, a, text)
		if err != nil {
			return errors.Wrap(report(err), "lower %v", a)
		}

		os.Stdout.Write(pr.Program(nil, u.IR))
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	opts := compiler.Options{
		Comments: c.Bool("comments"),
	}

	var obj []byte

	for _, a := range c.Args {
		text, err := compiler.ReadFile(ctx, a)
		if err != nil {
			return err
		}

		u, err := opts.Compile(ctx, a, text)
		if err != nil {
			return errors.Wrap(report(err), "compile %v", a)
		}

		obj = append(obj, u.Asm...)
	}

	if out := c.String("output"); out != "" {
		err = os.WriteFile(out, obj, 0o644)
		if err != nil {
			return errors.Wrap(err, "write output")
		}

		return nil
	}

	_, err = os.Stdout.Write(obj)

	return err
}

func runAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	in, closeIn, err := input(c)
	if err != nil {
		return err
	}

	defer closeIn()

	u, err := compileArg(ctx, c)
	if err != nil {
		return err
	}

	p, err := asm.Parse(ctx, u.Asm)
	if err != nil {
		return errors.Wrap(err, "parse asm")
	}

	m := amd64.New(p, in, os.Stdout)
	m.MaxSteps = c.Int("max-steps")

	_, err = m.Run(ctx, "main")

	return err
}

func interpAct(c *cli.Command) (err error) {
	ctx, err := setup(c)
	if err != nil {
		return err
	}

	in, closeIn, err := input(c)
	if err != nil {
		return err
	}

	defer closeIn()

	u, err := compileArg(ctx, c)
	if err != nil {
		return err
	}

	m := eval.New(u.IR, in, os.Stdout)
	m.MaxSteps = c.Int("max-steps")

	_, err = m.Run(ctx, "main")

	return err
}

func compileArg(ctx context.Context, c *cli.Command) (*compiler.Unit, error) {
	if len(c.Args) != 1 {
		return nil, errors.New("exactly one file expected")
	}

	a := c.Args[0]

	text, err := compiler.ReadFile(ctx, a)
	if err != nil {
		return nil, err
	}

	u, err := compiler.Options{}.Compile(ctx, a, text)
	if err != nil {
		return nil, errors.Wrap(report(err), "compile %v", a)
	}

	return u, nil
}

func input(c *cli.Command) (io.Reader, func(), error) {
	name := c.String("input")
	if name == "" || name == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input")
	}

	return f, func() { _ = f.Close() }, nil
}
