package eval

import (
	"context"
	"io"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/host"
	"github.com/slowlang/crux/compiler/ir"
)

type (
	// Machine interprets an ir.Program.
	// Every value is a 64-bit word; booleans are 0 and 1.
	Machine struct {
		prog *ir.Program
		env  *host.Env

		mem map[*ir.Global][]int64

		// MaxSteps bounds the number of executed instructions, 0 is unlimited.
		MaxSteps int
		Steps    int
	}

	frame struct {
		vals  []int64
		addrs []addr
	}

	addr struct {
		g *ir.Global
		i int64
	}
)

var (
	ErrDivZero     = errors.New("division by zero")
	ErrSteps       = errors.New("step limit exceeded")
	ErrOutOfBounds = errors.New("index out of bounds")
)

func New(p *ir.Program, in io.Reader, out io.Writer) *Machine {
	m := &Machine{
		prog: p,
		env:  host.New(in, out),
		mem:  make(map[*ir.Global][]int64, len(p.Globals)),
	}

	for _, g := range p.Globals {
		m.mem[g] = make([]int64, g.Count)
	}

	return m
}

// Global returns the storage of the named global.
func (m *Machine) Global(name string) []int64 {
	return m.mem[m.prog.Global(name)]
}

// Run calls name with args and returns its result, 0 for void functions.
func (m *Machine) Run(ctx context.Context, name string, args ...int64) (r int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "eval: run", "func", name, "args", args)
	defer tr.Finish("err", &err)

	m.Steps = 0

	return m.call(ctx, name, args)
}

func (m *Machine) call(ctx context.Context, name string, args []int64) (int64, error) {
	f := m.prog.Func(name)
	if f == nil {
		if host.IsBuiltin(name) {
			return m.env.Call(name, args)
		}

		return 0, errors.New("undefined function: %v", name)
	}

	if len(args) != len(f.Params) {
		return 0, errors.New("func %v: %d args, want %d", name, len(args), len(f.Params))
	}

	fr := &frame{
		vals:  make([]int64, f.NumVars()),
		addrs: make([]addr, f.NumAddrVars()),
	}

	for i, p := range f.Params {
		fr.vals[p.ID] = args[i]
	}

	r, err := m.exec(ctx, f, fr)
	if err != nil {
		return 0, errors.Wrap(err, "func %v", name)
	}

	return r, nil
}

func (m *Machine) exec(ctx context.Context, f *ir.Function, fr *frame) (int64, error) {
	for i := f.Start; i != ir.Nil; {
		m.Steps++

		if m.MaxSteps != 0 && m.Steps > m.MaxSteps {
			return 0, ErrSteps
		}

		next := f.Succ(i, 0)

		switch x := f.Code[i].(type) {
		case *ir.AddressAt:
			a := addr{g: x.Base}

			if x.Offset != nil {
				a.i = fr.vals[x.Offset.ID]
			}

			fr.addrs[x.Dst.ID] = a
		case *ir.BinaryOp:
			l, r := fr.vals[x.L.ID], fr.vals[x.R.ID]

			switch x.Op {
			case ir.Add:
				l += r
			case ir.Sub:
				l -= r
			case ir.Mul:
				l *= r
			case ir.Div:
				if r == 0 {
					return 0, errors.Wrap(ErrDivZero, "inst %d", i)
				}

				l /= r
			}

			fr.vals[x.Dst.ID] = l
		case *ir.Compare:
			fr.vals[x.Dst.ID] = bit(x.Pred.Eval(fr.vals[x.L.ID], fr.vals[x.R.ID]))
		case *ir.Copy:
			fr.vals[x.Dst.ID] = fr.value(x.Src)
		case *ir.Jump:
			if fr.vals[x.Cond.ID] == 1 {
				next = f.Succ(i, 1)
			}
		case *ir.Load:
			p, err := m.ptr(fr.addrs[x.Src.ID])
			if err != nil {
				return 0, errors.Wrap(err, "inst %d", i)
			}

			fr.vals[x.Dst.ID] = *p
		case *ir.Store:
			p, err := m.ptr(fr.addrs[x.Dst.ID])
			if err != nil {
				return 0, errors.Wrap(err, "inst %d", i)
			}

			*p = fr.vals[x.Src.ID]
		case *ir.Nop:
		case *ir.Return:
			if x.Value == nil {
				return 0, nil
			}

			return fr.vals[x.Value.ID], nil
		case *ir.Call:
			args := make([]int64, len(x.Args))

			for j, a := range x.Args {
				args[j] = fr.vals[a.ID]
			}

			r, err := m.call(ctx, x.Callee, args)
			if err != nil {
				return 0, err
			}

			if x.Dst != nil {
				fr.vals[x.Dst.ID] = r
			}
		case *ir.Not:
			fr.vals[x.Dst.ID] = 1 - fr.vals[x.Src.ID]
		default:
			return 0, errors.New("inst %d: unsupported instruction %T", i, x)
		}

		i = next
	}

	return 0, nil
}

func (m *Machine) ptr(a addr) (*int64, error) {
	s, ok := m.mem[a.g]
	if !ok {
		return nil, errors.New("address of unknown global")
	}

	if a.i < 0 || a.i >= int64(len(s)) {
		return nil, errors.Wrap(ErrOutOfBounds, "%v[%d]", a.g.Name, a.i)
	}

	return &s[a.i], nil
}

func (fr *frame) value(v ir.Value) int64 {
	switch v := v.(type) {
	case *ir.Var:
		return fr.vals[v.ID]
	case *ir.IntConst:
		return v.V
	case *ir.BoolConst:
		return bit(v.V)
	}

	panic(v)
}

func bit(v bool) int64 {
	if v {
		return 1
	}

	return 0
}
