package ir

import (
	"fmt"

	"github.com/nikandfor/hacked/hfmt"
)

type Printer struct {
	// Origin adds the lowering call site that created each instruction.
	Origin bool
}

// Format appends a text dump of p: globals, then every function
// with its instructions in handle order.
func Format(b []byte, p *Program) []byte {
	return Printer{}.Program(b, p)
}

func (pr Printer) Program(b []byte, p *Program) []byte {
	for _, g := range p.Globals {
		b = hfmt.Appendf(b, "global %s %v words %d\n", g.Name, g.Type, g.Count)
	}

	for i, f := range p.Funcs {
		if i != 0 || len(p.Globals) != 0 {
			b = append(b, '\n')
		}

		b = pr.Function(b, f)
	}

	return b
}

// Format appends the function dump.
func (f *Function) Format(b []byte) []byte {
	return Printer{}.Function(b, f)
}

// Function appends the dump of f. Instructions not reachable from the entry are marked.
func (pr Printer) Function(b []byte, f *Function) []byte {
	b = hfmt.Appendf(b, "func %s %v params", f.Name, f.Type)

	for _, p := range f.Params {
		b = hfmt.Appendf(b, " %v", p)
	}

	b = hfmt.Appendf(b, " entry %d\n", f.Start)

	r := Reachable(f)

	for i, x := range f.Code {
		in := Inst(i)

		b = hfmt.Appendf(b, "%d: ", i)
		b = AppendInstr(b, x)

		switch f.NumNext(in) {
		case 2:
			b = hfmt.Appendf(b, "  -> %d else %d", f.Next[i][1], f.Next[i][0])
		case 1:
			b = hfmt.Appendf(b, "  -> %d", f.Next[i][0])
		}

		if !r.IsSet(in) {
			b = append(b, "  ; unreachable"...)
		}

		if pr.Origin && i < len(f.From) && f.From[i] != 0 {
			b = fmt.Appendf(b, "  ; %v", f.From[i])
		}

		b = append(b, '\n')
	}

	return b
}

func AppendInstr(b []byte, x Instr) []byte {
	switch x := x.(type) {
	case *AddressAt:
		if x.Offset == nil {
			return hfmt.Appendf(b, "%v = addr %s", x.Dst, x.Base.Name)
		}

		return hfmt.Appendf(b, "%v = addr %s[%v]", x.Dst, x.Base.Name, x.Offset)
	case *BinaryOp:
		return hfmt.Appendf(b, "%v = %v %v, %v", x.Dst, x.Op, x.L, x.R)
	case *Compare:
		return hfmt.Appendf(b, "%v = %v %v, %v", x.Dst, x.Pred, x.L, x.R)
	case *Copy:
		return hfmt.Appendf(b, "%v = %v", x.Dst, x.Src)
	case *Jump:
		return hfmt.Appendf(b, "jump %v", x.Cond)
	case *Load:
		return hfmt.Appendf(b, "%v = load %v", x.Dst, x.Src)
	case *Store:
		return hfmt.Appendf(b, "store %v, %v", x.Src, x.Dst)
	case *Nop:
		return append(b, "nop"...)
	case *Return:
		if x.Value == nil {
			return append(b, "return"...)
		}

		return hfmt.Appendf(b, "return %v", x.Value)
	case *Call:
		if x.Dst != nil {
			b = hfmt.Appendf(b, "%v = ", x.Dst)
		}

		b = hfmt.Appendf(b, "call %s(", x.Callee)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = hfmt.Appendf(b, "%v", a)
		}

		return append(b, ')')
	case *Not:
		return hfmt.Appendf(b, "%v = not %v", x.Dst, x.Src)
	default:
		return hfmt.Appendf(b, "%T", x)
	}
}
