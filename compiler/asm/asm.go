package asm

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"
)

type (
	Reg  int
	Cond string

	// Label is a jump target or a function name.
	Label string

	// Imm is an immediate operand: $42.
	Imm int64

	// Mem is a memory operand: Off(Base).
	Mem struct {
		Base Reg
		Off  int64
	}

	// Sym is the address of a global: name@GOTPCREL(%rip).
	Sym string

	// Operand is one of Reg, Imm, Mem, Sym, Label.
	Operand any

	Instr struct {
		Op   string
		Args []Operand

		Line int
	}

	// Comm reserves zeroed storage for a global.
	Comm struct {
		Name  string
		Size  int64
		Align int64
	}

	Program struct {
		Comms []Comm
		Globl []string

		// Labels maps names to indexes in Code.
		Labels map[Label]int

		Code []Instr
	}
)

const (
	RAX Reg = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RBP
	RSP
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	RIP

	NumRegs
)

var regNames = [...]string{
	RAX: "rax",
	RBX: "rbx",
	RCX: "rcx",
	RDX: "rdx",
	RSI: "rsi",
	RDI: "rdi",
	RBP: "rbp",
	RSP: "rsp",
	R8:  "r8",
	R9:  "r9",
	R10: "r10",
	R11: "r11",
	R12: "r12",
	R13: "r13",
	R14: "r14",
	R15: "r15",
	RIP: "rip",
}

// ArgRegs are the System V integer argument registers in order.
var ArgRegs = [...]Reg{RDI, RSI, RDX, RCX, R8, R9}

func (r Reg) String() string {
	if r >= 0 && int(r) < len(regNames) {
		return "%" + regNames[r]
	}

	return "%reg" + strconv.Itoa(int(r))
}

func (r Reg) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	return e.AppendString(b, r.String())
}

func (x Instr) String() string {
	b := []byte(x.Op)

	for i, a := range x.Args {
		if i == 0 {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		b = AppendOperand(b, a)
	}

	return string(b)
}

func AppendOperand(b []byte, a Operand) []byte {
	switch a := a.(type) {
	case Reg:
		return append(b, a.String()...)
	case Imm:
		b = append(b, '$')
		return strconv.AppendInt(b, int64(a), 10)
	case Mem:
		b = strconv.AppendInt(b, a.Off, 10)
		b = append(b, '(')
		b = append(b, a.Base.String()...)
		return append(b, ')')
	case Sym:
		b = append(b, a...)
		return append(b, "@GOTPCREL(%rip)"...)
	case Label:
		return append(b, a...)
	}

	return append(b, "<bad>"...)
}

func (p *Program) Comm(name string) (Comm, bool) {
	for _, c := range p.Comms {
		if c.Name == name {
			return c, true
		}
	}

	return Comm{}, false
}
