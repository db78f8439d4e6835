package amd64

import (
	"context"
	"io"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crux/compiler/asm"
	"github.com/slowlang/crux/compiler/host"
)

type (
	// Machine executes the x86-64 subset the code generator emits.
	// Memory is a sparse set of 8-byte words.
	Machine struct {
		prog *asm.Program
		env  *host.Env

		regs [asm.NumRegs]int64
		mem  map[int64]int64

		globals map[asm.Sym]int64

		// operands of the last cmp: dst and src
		fl, fr int64

		// MaxSteps bounds the number of executed instructions, 0 is unlimited.
		MaxSteps int
		Steps    int
	}
)

const (
	word = 8

	globalBase = 0x1_0000
	stackTop   = 0x7fff_0000

	retSentinel = -1
)

var (
	ErrSteps     = errors.New("step limit exceeded")
	ErrDivZero   = errors.New("division by zero")
	ErrAlign     = errors.New("stack misaligned at call")
	ErrUnaligned = errors.New("unaligned memory access")
	ErrUndefined = errors.New("undefined symbol")
	ErrEncoding  = errors.New("operands not encodable")
)

var conds = map[asm.Cond]func(l, r int64) bool{
	"e":  func(l, r int64) bool { return l == r },
	"ne": func(l, r int64) bool { return l != r },
	"l":  func(l, r int64) bool { return l < r },
	"le": func(l, r int64) bool { return l <= r },
	"g":  func(l, r int64) bool { return l > r },
	"ge": func(l, r int64) bool { return l >= r },
}

func New(p *asm.Program, in io.Reader, out io.Writer) *Machine {
	m := &Machine{
		prog:    p,
		env:     host.New(in, out),
		mem:     make(map[int64]int64),
		globals: make(map[asm.Sym]int64, len(p.Comms)),
	}

	a := int64(globalBase)

	for _, c := range p.Comms {
		if c.Align > 1 {
			a = (a + c.Align - 1) / c.Align * c.Align
		}

		m.globals[asm.Sym(c.Name)] = a

		a += (c.Size + word - 1) / word * word
	}

	return m
}

// Global returns the current contents of the named .comm storage.
func (m *Machine) Global(name string) []int64 {
	c, ok := m.prog.Comm(name)
	if !ok {
		return nil
	}

	base := m.globals[asm.Sym(name)]
	r := make([]int64, c.Size/word)

	for i := range r {
		r[i] = m.mem[base+int64(i)*word]
	}

	return r
}

// Run calls the function at label name the way a System V caller would and returns %rax.
func (m *Machine) Run(ctx context.Context, name string, args ...int64) (r int64, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "amd64: run", "func", name, "args", args)
	defer tr.Finish("err", &err)

	m.Steps = 0

	pc, ok := m.prog.Labels[asm.Label(name)]
	if !ok {
		return 0, errors.Wrap(ErrUndefined, "%v", name)
	}

	m.regs = [asm.NumRegs]int64{}
	m.regs[asm.RSP] = stackTop

	for i, a := range args {
		if i == len(asm.ArgRegs) {
			break
		}

		m.regs[asm.ArgRegs[i]] = a
	}

	if n := len(args) - len(asm.ArgRegs); n > 0 && n%2 == 1 {
		m.regs[asm.RSP] -= word
	}

	for i := len(args) - 1; i >= len(asm.ArgRegs); i-- {
		m.push(args[i])
	}

	m.push(retSentinel)

	return m.exec(ctx, pc)
}

func (m *Machine) exec(ctx context.Context, pc int) (int64, error) {
	for {
		if pc < 0 || pc >= len(m.prog.Code) {
			return 0, errors.New("pc out of code: %d", pc)
		}

		m.Steps++

		if m.MaxSteps != 0 && m.Steps > m.MaxSteps {
			return 0, ErrSteps
		}

		x := m.prog.Code[pc]

		next, err := m.step(ctx, pc, x)
		if err != nil {
			return 0, errors.Wrap(err, "line %d: %v", x.Line, x)
		}

		if next == retSentinel {
			return m.regs[asm.RAX], nil
		}

		pc = next
	}
}

func (m *Machine) step(ctx context.Context, pc int, x asm.Instr) (next int, err error) {
	next = pc + 1

	err = encodable(x)
	if err != nil {
		return 0, err
	}

	want := func(n int) error {
		if len(x.Args) != n {
			return errors.New("want %d operands, got %d", n, len(x.Args))
		}

		return nil
	}

	arith := func(op func(d, s int64) int64) error {
		if err := want(2); err != nil {
			return err
		}

		s, err := m.read(x.Args[0])
		if err != nil {
			return err
		}

		d, err := m.read(x.Args[1])
		if err != nil {
			return err
		}

		return m.write(x.Args[1], op(d, s))
	}

	switch op := x.Op; op {
	case "movq", "movabsq":
		err = arith(func(d, s int64) int64 { return s })
	case "addq":
		err = arith(func(d, s int64) int64 { return d + s })
	case "subq":
		err = arith(func(d, s int64) int64 { return d - s })
	case "imulq":
		err = arith(func(d, s int64) int64 { return d * s })
	case "cqto":
		m.regs[asm.RDX] = m.regs[asm.RAX] >> 63
	case "idivq":
		err = m.idiv(x)
	case "cmp", "cmpq":
		if err = want(2); err != nil {
			break
		}

		if m.fr, err = m.read(x.Args[0]); err != nil {
			break
		}

		m.fl, err = m.read(x.Args[1])
	case "jmp":
		return m.jump(x)
	case "call":
		return m.call(pc, x)
	case "ret":
		return int(m.pop()), nil
	case "enter":
		if err = want(2); err != nil {
			break
		}

		n, ok := x.Args[0].(asm.Imm)
		if !ok {
			return 0, errors.New("enter: immediate expected")
		}

		m.push(m.regs[asm.RBP])
		m.regs[asm.RBP] = m.regs[asm.RSP]
		m.regs[asm.RSP] -= int64(n)
	case "leave":
		m.regs[asm.RSP] = m.regs[asm.RBP]
		m.regs[asm.RBP] = m.pop()
	case "pushq":
		if err = want(1); err != nil {
			break
		}

		var v int64

		v, err = m.read(x.Args[0])
		m.push(v)
	case "popq":
		if err = want(1); err != nil {
			break
		}

		err = m.write(x.Args[0], m.pop())
	default:
		switch {
		case len(op) > 4 && op[:4] == "cmov":
			f, ok := conds[asm.Cond(op[4:])]
			if !ok {
				return 0, errors.New("unsupported condition: %v", op)
			}

			if !f(m.fl, m.fr) {
				break
			}

			err = arith(func(d, s int64) int64 { return s })
		case len(op) > 1 && op[0] == 'j':
			f, ok := conds[asm.Cond(op[1:])]
			if !ok {
				return 0, errors.New("unsupported condition: %v", op)
			}

			if f(m.fl, m.fr) {
				return m.jump(x)
			}
		default:
			return 0, errors.New("unsupported instruction")
		}
	}

	if err != nil {
		return 0, err
	}

	return next, nil
}

// encodable rejects operand forms x86-64 has no encoding for.
// Immediates are sign-extended 32-bit except in a move to a register,
// and at most one operand addresses memory.
func encodable(x asm.Instr) error {
	var mem int

	for i, a := range x.Args {
		switch a := a.(type) {
		case asm.Mem, asm.Sym:
			mem++
		case asm.Imm:
			if a >= math.MinInt32 && a <= math.MaxInt32 {
				break
			}

			if (x.Op == "movq" || x.Op == "movabsq") && i == 0 && len(x.Args) == 2 {
				if _, ok := x.Args[1].(asm.Reg); ok {
					break
				}
			}

			return errors.Wrap(ErrEncoding, "immediate %d", int64(a))
		}
	}

	if mem > 1 {
		return errors.Wrap(ErrEncoding, "memory to memory")
	}

	if x.Op != "movabsq" {
		return nil
	}

	if len(x.Args) != 2 {
		return errors.New("want 2 operands, got %d", len(x.Args))
	}

	_, imm := x.Args[0].(asm.Imm)
	_, reg := x.Args[1].(asm.Reg)

	if !imm || !reg {
		return errors.Wrap(ErrEncoding, "movabsq wants immediate to register")
	}

	return nil
}

func (m *Machine) idiv(x asm.Instr) error {
	if len(x.Args) != 1 {
		return errors.New("want 1 operand")
	}

	d, err := m.read(x.Args[0])
	if err != nil {
		return err
	}

	if d == 0 {
		return ErrDivZero
	}

	a := m.regs[asm.RAX]

	if m.regs[asm.RDX] != a>>63 {
		return errors.New("dividend does not fit in 64 bits")
	}

	m.regs[asm.RAX] = a / d
	m.regs[asm.RDX] = a % d

	return nil
}

func (m *Machine) jump(x asm.Instr) (int, error) {
	if len(x.Args) != 1 {
		return 0, errors.New("want 1 operand")
	}

	l, ok := x.Args[0].(asm.Label)
	if !ok {
		return 0, errors.New("label expected")
	}

	pc, ok := m.prog.Labels[l]
	if !ok {
		return 0, errors.Wrap(ErrUndefined, "%v", l)
	}

	return pc, nil
}

// call checks the stack is 16-byte aligned and transfers control.
// Names without a label are host built-ins taking their argument in %rdi.
func (m *Machine) call(pc int, x asm.Instr) (int, error) {
	if len(x.Args) != 1 {
		return 0, errors.New("want 1 operand")
	}

	if m.regs[asm.RSP]%16 != 0 {
		return 0, errors.Wrap(ErrAlign, "rsp %#x", m.regs[asm.RSP])
	}

	l, ok := x.Args[0].(asm.Label)
	if !ok {
		return 0, errors.New("label expected")
	}

	if to, ok := m.prog.Labels[l]; ok {
		m.push(int64(pc + 1))

		return to, nil
	}

	if !host.IsBuiltin(string(l)) {
		return 0, errors.Wrap(ErrUndefined, "%v", l)
	}

	r, err := m.env.Call(string(l), []int64{m.regs[asm.RDI]})
	if err != nil {
		return 0, errors.Wrap(err, "builtin %v", l)
	}

	m.regs[asm.RAX] = r

	return pc + 1, nil
}

func (m *Machine) read(a asm.Operand) (int64, error) {
	switch a := a.(type) {
	case asm.Reg:
		return m.regs[a], nil
	case asm.Imm:
		return int64(a), nil
	case asm.Sym:
		addr, ok := m.globals[a]
		if !ok {
			return 0, errors.Wrap(ErrUndefined, "%v", string(a))
		}

		return addr, nil
	case asm.Mem:
		addr := m.regs[a.Base] + a.Off
		if addr%word != 0 {
			return 0, errors.Wrap(ErrUnaligned, "%#x", addr)
		}

		return m.mem[addr], nil
	}

	return 0, errors.New("bad source operand: %T", a)
}

func (m *Machine) write(a asm.Operand, v int64) error {
	switch a := a.(type) {
	case asm.Reg:
		m.regs[a] = v
	case asm.Mem:
		addr := m.regs[a.Base] + a.Off
		if addr%word != 0 {
			return errors.Wrap(ErrUnaligned, "%#x", addr)
		}

		m.mem[addr] = v
	default:
		return errors.New("bad destination operand: %T", a)
	}

	return nil
}

func (m *Machine) push(v int64) {
	m.regs[asm.RSP] -= word
	m.mem[m.regs[asm.RSP]] = v
}

func (m *Machine) pop() int64 {
	v := m.mem[m.regs[asm.RSP]]
	m.regs[asm.RSP] += word

	return v
}
