package ir

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/slowlang/crux/compiler/tp"
)

type (
	Program struct {
		Globals []*Global
		Funcs   []*Function

		ints  map[int64]*IntConst
		bools [2]*BoolConst
	}

	// Global owns Count 8-byte words of static storage.
	Global struct {
		Name  string
		Type  tp.Type
		Count int64
	}

	Function struct {
		Name   string
		Type   tp.Func
		Params []*Var

		Start Inst

		// Code, Next and From are parallel, indexed by Inst.
		Code []Instr
		Next [][2]Inst
		From []loc.PC

		nvars  int
		naddrs int

		sealed bool
	}
)

func NewProgram() *Program {
	return &Program{
		ints: make(map[int64]*IntConst),
	}
}

func (p *Program) AddGlobal(g *Global) {
	p.Globals = append(p.Globals, g)
}

func (p *Program) AddFunc(f *Function) {
	p.Funcs = append(p.Funcs, f)
}

func (p *Program) Func(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func (p *Program) Global(name string) *Global {
	for _, g := range p.Globals {
		if g.Name == name {
			return g
		}
	}

	return nil
}

// Int returns the interned integer constant.
func (p *Program) Int(v int64) *IntConst {
	if c, ok := p.ints[v]; ok {
		return c
	}

	if p.ints == nil {
		p.ints = make(map[int64]*IntConst)
	}

	c := &IntConst{V: v}
	p.ints[v] = c

	return c
}

// Bool returns the interned boolean constant.
func (p *Program) Bool(v bool) *BoolConst {
	i := 0
	if v {
		i = 1
	}

	if p.bools[i] == nil {
		p.bools[i] = &BoolConst{V: v}
	}

	return p.bools[i]
}

func NewFunction(name string, typ tp.Func) *Function {
	return &Function{
		Name:  name,
		Type:  typ,
		Start: Nil,
	}
}

func (f *Function) NewVar(t tp.Type) *Var {
	v := &Var{ID: f.nvars, Name: fmt.Sprintf("$t%d", f.nvars), T: t}
	f.nvars++

	return v
}

func (f *Function) NewAddrVar(t tp.Type) *AddrVar {
	v := &AddrVar{ID: f.naddrs, Name: fmt.Sprintf("$a%d", f.naddrs), T: t}
	f.naddrs++

	return v
}

func (f *Function) NumVars() int     { return f.nvars }
func (f *Function) NumAddrVars() int { return f.naddrs }

// Add puts x into the arena. The caller's location is remembered for dumps.
func (f *Function) Add(x Instr) Inst {
	return f.AddFrom(x, loc.Caller(1))
}

// AddFrom is Add with an explicit origin for helpers minting instructions on behalf of their callers.
func (f *Function) AddFrom(x Instr, from loc.PC) Inst {
	if f.sealed {
		panic(fmt.Sprintf("add to sealed function %v", f.Name))
	}

	id := Inst(len(f.Code))

	f.Code = append(f.Code, x)
	f.Next = append(f.Next, [2]Inst{Nil, Nil})
	f.From = append(f.From, from)

	return id
}

func (f *Function) Instr(i Inst) Instr { return f.Code[i] }

// SetNext links successor slot of i to j.
func (f *Function) SetNext(i Inst, slot int, j Inst) {
	if f.sealed {
		panic(fmt.Sprintf("link in sealed function %v", f.Name))
	}

	f.Next[i][slot] = j
}

func (f *Function) Succ(i Inst, slot int) Inst { return f.Next[i][slot] }

// NumNext is the number of successor slots in use: 2 for a Jump, 0 for the last instruction of a path.
func (f *Function) NumNext(i Inst) int {
	switch {
	case f.Next[i][1] != Nil:
		return 2
	case f.Next[i][0] != Nil:
		return 1
	default:
		return 0
	}
}

func (f *Function) Sealed() bool { return f.sealed }

// Seal checks the graph shape and freezes successor links.
func (f *Function) Seal() error {
	if f.Start == Nil {
		return errors.New("func %v: no entry", f.Name)
	}

	for i, x := range f.Code {
		n := f.Next[i]

		switch x.(type) {
		case *Jump:
			if n[0] == Nil || n[1] == Nil {
				return errors.New("func %v: jump %d: missing branch", f.Name, i)
			}
		case *Return:
			if n[0] != Nil || n[1] != Nil {
				return errors.New("func %v: return %d: has successors", f.Name, i)
			}
		default:
			if n[1] != Nil {
				return errors.New("func %v: %T %d: branch on non-jump", f.Name, x, i)
			}
		}
	}

	f.sealed = true

	return nil
}
