package ast

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpNot
	OpLT
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
)

var opNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpAnd: "&&",
	OpOr:  "||",
	OpNot: "!",
	OpLT:  "<",
	OpLE:  "<=",
	OpGT:  ">",
	OpGE:  ">=",
	OpEQ:  "==",
	OpNE:  "!=",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "?"
	}

	return opNames[op]
}

func (op Op) Arith() bool { return op >= OpAdd && op <= OpDiv }

func (op Op) Logic() bool { return op == OpAnd || op == OpOr }

func (op Op) Relational() bool { return op >= OpLT && op <= OpNE }
