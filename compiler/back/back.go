package back

import (
	"context"
	"fmt"
	"math"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/ir"
	"github.com/slowlang/crux/compiler/set"
)

type (
	// Compiler emits System V x86-64 assembly in AT&T syntax.
	Compiler struct {
		// Comments puts the IR form of each instruction above its code.
		Comments bool
	}

	pkgContext struct {
		*ir.Program

		labels int
	}

	funContext struct {
		*pkgContext
		*ir.Function

		slots map[ir.Value]int
		label []int // by Inst, 0 for none
	}
)

const word = 8

var argRegs = [...]string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

func New() *Compiler {
	return &Compiler{}
}

// CompileProgram appends assembly for p to b: storage for globals, then every function in order.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "globals", len(p.Globals), "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	pc := &pkgContext{Program: p}

	for _, g := range p.Globals {
		b = hfmt.Appendf(b, ".comm %s, %d, 8\n", g.Name, g.Count*word)
	}

	for _, f := range p.Funcs {
		if len(b) != 0 {
			b = append(b, '\n')
		}

		b, err = c.compileFunc(ctx, b, pc, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, pc *pkgContext, f *ir.Function) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", f.Name, "insts", len(f.Code))
	defer tr.Finish("err", &err)

	if f.Start == ir.Nil {
		return nil, errors.New("no entry")
	}

	if tr.If("dump_func") {
		tr.Printw("func", "ir", f.Format(nil))
	}

	fc := &funContext{
		pkgContext: pc,
		Function:   f,
		slots:      make(map[ir.Value]int),
	}

	fc.assignLabels()

	nslots := f.NumVars() + f.NumAddrVars()
	nslots = (nslots + 1) &^ 1

	b = hfmt.Appendf(b, ".globl %s\n%s:\n", f.Name, f.Name)
	b = code(b, "enter $%d, $0", word*nslots)

	for i, p := range f.Params {
		if i < len(argRegs) {
			b = code(b, "movq %s, %d(%%rbp)", argRegs[i], fc.slot(p))
			continue
		}

		b = code(b, "movq %d(%%rbp), %%r10", 2*word+word*(i-len(argRegs)))
		b = code(b, "movq %%r10, %d(%%rbp)", fc.slot(p))
	}

	todo := []ir.Inst{f.Start}
	done := set.MakeBits[ir.Inst](len(f.Code))

	for len(todo) != 0 {
		last := len(todo) - 1
		i := todo[last]
		todo = todo[:last]

		if done.IsSet(i) {
			if fc.label[i] == 0 {
				return nil, errors.New("inst %d: revisited without a label", i)
			}

			b = code(b, "jmp .L%d", fc.label[i])

			continue
		}

		done.Set(i)

		if l := fc.label[i]; l != 0 {
			b = hfmt.Appendf(b, ".L%d:\n", l)
		}

		if c.Comments {
			b = append(b, "\t# "...)
			b = ir.AppendInstr(b, f.Code[i])
			b = append(b, '\n')
		}

		b, err = fc.instr(b, i)
		if err != nil {
			return nil, errors.Wrap(err, "inst %d", i)
		}

		n := f.NumNext(i)
		if n == 0 {
			b = code(b, "leave")
			b = code(b, "ret")

			continue
		}

		for s := n - 1; s >= 0; s-- {
			todo = append(todo, f.Succ(i, s))
		}
	}

	tr.V("back_slots").Printw("slots", "used", len(fc.slots), "frame", nslots, "labels", pc.labels)

	return b, nil
}

// assignLabels numbers every instruction that can be entered other than by falling through:
// true branches of jumps and instructions with more than one incoming edge.
func (fc *funContext) assignLabels() {
	fc.label = make([]int, len(fc.Code))
	preds := ir.Preds(fc.Function)

	need := func(i ir.Inst) {
		if fc.label[i] != 0 {
			return
		}

		fc.labels++
		fc.label[i] = fc.labels
	}

	ir.Walk(fc.Function, func(i ir.Inst) bool {
		if _, ok := fc.Code[i].(*ir.Jump); ok {
			need(fc.Succ(i, 1))
		}

		if preds[i] > 1 {
			need(i)
		}

		return true
	})
}

// slot returns the frame offset of v, allocating slots in first-seen order.
func (fc *funContext) slot(v ir.Value) int {
	k, ok := fc.slots[v]
	if !ok {
		k = len(fc.slots) + 1
		fc.slots[v] = k
	}

	return -word * k
}

func (fc *funContext) instr(b []byte, i ir.Inst) ([]byte, error) {
	switch x := fc.Code[i].(type) {
	case *ir.AddressAt:
		b = code(b, "movq %s@GOTPCREL(%%rip), %%r11", x.Base.Name)

		if x.Offset != nil {
			b = code(b, "movq %d(%%rbp), %%r10", fc.slot(x.Offset))
			b = code(b, "imulq $%d, %%r10", word)
			b = code(b, "addq %%r10, %%r11")
		}

		b = code(b, "movq %%r11, %d(%%rbp)", fc.slot(x.Dst))
	case *ir.BinaryOp:
		return fc.binary(b, x)
	case *ir.Compare:
		cc, ok := condCodes[x.Pred]
		if !ok {
			return nil, errors.New("unsupported predicate: %v", x.Pred)
		}

		b = code(b, "movq $0, %%rax")
		b = code(b, "movq $1, %%r10")
		b = code(b, "movq %d(%%rbp), %%r11", fc.slot(x.L))
		b = code(b, "cmp %d(%%rbp), %%r11", fc.slot(x.R))
		b = code(b, "cmov%s %%r10, %%rax", cc)
		b = code(b, "movq %%rax, %d(%%rbp)", fc.slot(x.Dst))
	case *ir.Copy:
		dst := fc.slot(x.Dst)

		switch src := x.Src.(type) {
		case *ir.IntConst:
			if src.V < math.MinInt32 || src.V > math.MaxInt32 {
				b = code(b, "movabsq $%d, %%r10", src.V)
				b = code(b, "movq %%r10, %d(%%rbp)", dst)

				break
			}

			b = code(b, "movq $%d, %d(%%rbp)", src.V, dst)
		case *ir.BoolConst:
			b = code(b, "movq $%d, %d(%%rbp)", bit(src.V), dst)
		case *ir.Var:
			b = code(b, "movq %d(%%rbp), %%r10", fc.slot(src))
			b = code(b, "movq %%r10, %d(%%rbp)", dst)
		default:
			return nil, errors.New("copy from %T", x.Src)
		}
	case *ir.Jump:
		b = code(b, "movq %d(%%rbp), %%r10", fc.slot(x.Cond))
		b = code(b, "cmp $1, %%r10")
		b = code(b, "je .L%d", fc.label[fc.Succ(i, 1)])
	case *ir.Load:
		b = code(b, "movq %d(%%rbp), %%r10", fc.slot(x.Src))
		b = code(b, "movq 0(%%r10), %%r11")
		b = code(b, "movq %%r11, %d(%%rbp)", fc.slot(x.Dst))
	case *ir.Store:
		b = code(b, "movq %d(%%rbp), %%r10", fc.slot(x.Src))
		b = code(b, "movq %d(%%rbp), %%r11", fc.slot(x.Dst))
		b = code(b, "movq %%r10, 0(%%r11)")
	case *ir.Nop:
	case *ir.Return:
		if x.Value != nil {
			b = code(b, "movq %d(%%rbp), %%rax", fc.slot(x.Value))
		}
	case *ir.Call:
		return fc.call(b, x), nil
	case *ir.Not:
		b = code(b, "movq $1, %%r10")
		b = code(b, "subq %d(%%rbp), %%r10", fc.slot(x.Src))
		b = code(b, "movq %%r10, %d(%%rbp)", fc.slot(x.Dst))
	default:
		return nil, errors.New("unsupported instruction: %T", x)
	}

	return b, nil
}

var condCodes = map[ir.Pred]string{
	ir.GE: "ge",
	ir.GT: "g",
	ir.LE: "le",
	ir.LT: "l",
	ir.EQ: "e",
	ir.NE: "ne",
}

func (fc *funContext) binary(b []byte, x *ir.BinaryOp) ([]byte, error) {
	l, r, dst := fc.slot(x.L), fc.slot(x.R), fc.slot(x.Dst)

	var op string

	switch x.Op {
	case ir.Add:
		op = "addq"
	case ir.Sub:
		op = "subq"
	case ir.Mul:
		op = "imulq"
	case ir.Div:
		b = code(b, "movq %d(%%rbp), %%rax", l)
		b = code(b, "cqto")
		b = code(b, "idivq %d(%%rbp)", r)
		b = code(b, "movq %%rax, %d(%%rbp)", dst)

		return b, nil
	default:
		return nil, errors.New("unsupported operator: %v", x.Op)
	}

	b = code(b, "movq %d(%%rbp), %%r10", l)
	b = code(b, "%s %d(%%rbp), %%r10", op, r)
	b = code(b, "movq %%r10, %d(%%rbp)", dst)

	return b, nil
}

// call passes the first six arguments in registers and the rest on the stack,
// last pushed first, padded so the stack stays 16-byte aligned at the call.
func (fc *funContext) call(b []byte, x *ir.Call) []byte {
	for i, a := range x.Args {
		if i == len(argRegs) {
			break
		}

		b = code(b, "movq %d(%%rbp), %s", fc.slot(a), argRegs[i])
	}

	stack := len(x.Args) - len(argRegs)
	if stack < 0 {
		stack = 0
	}

	pad := stack % 2

	if pad != 0 {
		b = code(b, "subq $%d, %%rsp", word)
	}

	for i := len(x.Args) - 1; i >= len(argRegs); i-- {
		b = code(b, "movq %d(%%rbp), %%r10", fc.slot(x.Args[i]))
		b = code(b, "pushq %%r10")
	}

	b = code(b, "call %s", x.Callee)

	if x.Dst != nil {
		b = code(b, "movq %%rax, %d(%%rbp)", fc.slot(x.Dst))
	}

	if n := stack + pad; n != 0 {
		b = code(b, "addq $%d, %%rsp", word*n)
	}

	return b
}

func code(b []byte, f string, args ...any) []byte {
	b = append(b, '\t')
	b = fmt.Appendf(b, f, args...)
	return append(b, '\n')
}

func bit(v bool) int {
	if v {
		return 1
	}

	return 0
}
