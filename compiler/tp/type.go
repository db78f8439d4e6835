package tp

import (
	"fmt"
	"strings"
)

type (
	// Type is one of Int, Bool, Void, Array, Func, Error or List.
	// The set is closed: operators switch over it exhaustively.
	Type interface {
		fmt.Stringer

		tp()
	}

	Int  struct{}
	Bool struct{}
	Void struct{}

	Array struct {
		Base   Type
		Extent int64
	}

	Func struct {
		Args List
		Ret  Type
	}

	// Error is the type of an ill-typed expression.
	// It carries the diagnostic message instead of failing.
	Error struct {
		Msg string
	}

	// List is an argument signature.
	List []Type
)

func (Int) tp()   {}
func (Bool) tp()  {}
func (Void) tp()  {}
func (Array) tp() {}
func (Func) tp()  {}
func (Error) tp() {}
func (List) tp()  {}

func (Int) String() string  { return "int" }
func (Bool) String() string { return "bool" }
func (Void) String() string { return "void" }

func (x Array) String() string {
	return fmt.Sprintf("array[%d,%v]", x.Extent, x.Base)
}

func (x Func) String() string {
	return fmt.Sprintf("func(%v):%v", x.Args, x.Ret)
}

func (x Error) String() string {
	return fmt.Sprintf("ErrorType(%s)", x.Msg)
}

func (l List) String() string {
	var b strings.Builder

	b.WriteString("TypeList(")

	for i, t := range l {
		if i != 0 {
			b.WriteString(",")
		}

		b.WriteString(t.String())
	}

	b.WriteString(")")

	return b.String()
}

// IsError reports whether t is nil or an Error.
func IsError(t Type) bool {
	if t == nil {
		return true
	}

	_, ok := t.(Error)

	return ok
}

// IsScalar reports whether t is Int or Bool, the only types a variable or an array element may have.
func IsScalar(t Type) bool {
	switch t.(type) {
	case Int, Bool:
		return true
	}

	return false
}

// Equivalent reports structural equality.
// Types of different kinds are never equivalent.
func Equivalent(x, y Type) bool {
	switch x := x.(type) {
	case Int:
		_, ok := y.(Int)
		return ok
	case Bool:
		_, ok := y.(Bool)
		return ok
	case Void:
		_, ok := y.(Void)
		return ok
	case Array:
		y, ok := y.(Array)
		return ok && x.Extent == y.Extent && Equivalent(x.Base, y.Base)
	case Func:
		y, ok := y.(Func)
		return ok && Equivalent(x.Args, y.Args) && Equivalent(x.Ret, y.Ret)
	case List:
		y, ok := y.(List)
		if !ok || len(x) != len(y) {
			return false
		}

		for i := range x {
			if !Equivalent(x[i], y[i]) {
				return false
			}
		}

		return true
	}

	return false
}
