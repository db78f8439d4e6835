package tp

import "fmt"

func errorf(format string, args ...any) Error {
	return Error{Msg: fmt.Sprintf(format, args...)}
}

// poisoned returns the first operand that is already an Error.
func poisoned(ts ...Type) (Error, bool) {
	for _, t := range ts {
		if t == nil {
			return Error{Msg: "missing type"}, true
		}

		if e, ok := t.(Error); ok {
			return e, true
		}
	}

	return Error{}, false
}

func arith(op string, x, y Type) Type {
	if e, ok := poisoned(x, y); ok {
		return e
	}

	if _, ok := x.(Int); ok {
		if _, ok := y.(Int); ok {
			return Int{}
		}
	}

	return errorf("cannot %s %v with %v", op, x, y)
}

func Add(x, y Type) Type { return arith("add", x, y) }
func Sub(x, y Type) Type { return arith("subtract", x, y) }
func Mul(x, y Type) Type { return arith("multiply", x, y) }
func Div(x, y Type) Type { return arith("divide", x, y) }

func logic(op string, x, y Type) Type {
	if e, ok := poisoned(x, y); ok {
		return e
	}

	if _, ok := x.(Bool); ok {
		if _, ok := y.(Bool); ok {
			return Bool{}
		}
	}

	return errorf("cannot %s %v with %v", op, x, y)
}

func And(x, y Type) Type { return logic("and", x, y) }
func Or(x, y Type) Type  { return logic("or", x, y) }

func Not(x Type) Type {
	if e, ok := poisoned(x); ok {
		return e
	}

	if _, ok := x.(Bool); ok {
		return Bool{}
	}

	return errorf("cannot negate %v", x)
}

// Compare is the type of any of the six relational operators.
func Compare(x, y Type) Type {
	if e, ok := poisoned(x, y); ok {
		return e
	}

	if _, ok := x.(Int); ok {
		if _, ok := y.(Int); ok {
			return Bool{}
		}
	}

	return errorf("cannot compare %v with %v", x, y)
}

// Assign is Void when src may be stored into a location of type dst.
func Assign(dst, src Type) Type {
	if e, ok := poisoned(dst, src); ok {
		return e
	}

	if IsScalar(dst) && Equivalent(dst, src) {
		return Void{}
	}

	return errorf("cannot assign %v to %v", src, dst)
}

func Call(fn Type, args List) Type {
	if e, ok := poisoned(fn); ok {
		return e
	}

	if e, ok := poisoned(args...); ok {
		return e
	}

	if f, ok := fn.(Func); ok && Equivalent(f.Args, args) {
		return f.Ret
	}

	return errorf("cannot call %v using %v", fn, args)
}

func Index(arr, idx Type) Type {
	if e, ok := poisoned(arr, idx); ok {
		return e
	}

	if a, ok := arr.(Array); ok {
		if _, ok := idx.(Int); ok {
			return a.Base
		}
	}

	return errorf("cannot index %v with %v", arr, idx)
}
