package ir

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/crux/compiler/tp"
)

type (
	// Inst is a handle into the instruction arena of one Function.
	Inst int

	// Instr is one of the instruction structs below.
	Instr interface {
		instr()
	}

	Value interface {
		fmt.Stringer
		Type() tp.Type
	}

	// Var is a stack-resident value temporary or a named local.
	// Many instructions may write the same Var.
	Var struct {
		ID   int
		Name string
		T    tp.Type
	}

	// AddrVar holds an address. It is only loaded from or stored through.
	AddrVar struct {
		ID   int
		Name string
		T    tp.Type
	}

	IntConst struct {
		V int64
	}

	BoolConst struct {
		V bool
	}

	BinOp int
	Pred  int

	// AddressAt computes the address of Base, or of Base[Offset] when Offset is set.
	AddressAt struct {
		Dst    *AddrVar
		Base   *Global
		Offset *Var
	}

	BinaryOp struct {
		Op   BinOp
		Dst  *Var
		L, R *Var
	}

	Compare struct {
		Pred Pred
		Dst  *Var
		L, R *Var
	}

	Copy struct {
		Dst *Var
		Src Value
	}

	// Jump goes to successor 1 when Cond is true, to successor 0 otherwise.
	Jump struct {
		Cond *Var
	}

	Load struct {
		Dst *Var
		Src *AddrVar
	}

	Nop struct{}

	Store struct {
		Src *Var
		Dst *AddrVar
	}

	// Return with a nil Value returns from a void function.
	Return struct {
		Value *Var
	}

	// Call with a nil Dst discards the result.
	Call struct {
		Dst    *Var
		Callee string
		Type   tp.Func
		Args   []*Var
	}

	Not struct {
		Dst *Var
		Src *Var
	}
)

const Nil Inst = -1

const (
	Add BinOp = iota
	Sub
	Mul
	Div
)

const (
	GE Pred = iota
	GT
	LE
	LT
	EQ
	NE
)

func (*AddressAt) instr() {}
func (*BinaryOp) instr()  {}
func (*Compare) instr()   {}
func (*Copy) instr()      {}
func (*Jump) instr()      {}
func (*Load) instr()      {}
func (*Nop) instr()       {}
func (*Store) instr()     {}
func (*Return) instr()    {}
func (*Call) instr()      {}
func (*Not) instr()       {}

func (v *Var) Type() tp.Type     { return v.T }
func (v *AddrVar) Type() tp.Type { return v.T }
func (*IntConst) Type() tp.Type  { return tp.Int{} }
func (*BoolConst) Type() tp.Type { return tp.Bool{} }

func (v *Var) String() string     { return v.Name }
func (v *AddrVar) String() string { return v.Name }
func (c *IntConst) String() string {
	return fmt.Sprintf("%d", c.V)
}

func (c *BoolConst) String() string {
	if c.V {
		return "true"
	}

	return "false"
}

func (op BinOp) String() string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	}

	return fmt.Sprintf("BinOp(%d)", int(op))
}

func (p Pred) String() string {
	switch p {
	case GE:
		return "ge"
	case GT:
		return "gt"
	case LE:
		return "le"
	case LT:
		return "lt"
	case EQ:
		return "eq"
	case NE:
		return "ne"
	}

	return fmt.Sprintf("Pred(%d)", int(p))
}

// Eval applies the predicate to two integers.
func (p Pred) Eval(x, y int64) bool {
	switch p {
	case GE:
		return x >= y
	case GT:
		return x > y
	case LE:
		return x <= y
	case LT:
		return x < y
	case EQ:
		return x == y
	case NE:
		return x != y
	}

	panic(p)
}

func (i Inst) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if i == Nil {
		return e.AppendNil(b)
	}

	return e.AppendInt(b, int(i))
}
