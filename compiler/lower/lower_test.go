package lower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/check"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/front"
	"github.com/slowlang/crux/compiler/ir"
)

func lowerText(t *testing.T, text string) *ir.Program {
	t.Helper()

	ctx := context.Background()

	var d diag.List
	f := front.New(&d)

	err := f.AddFile(ctx, "test.yaml", []byte(text))
	require.NoError(t, err)

	x, err := f.Parse(ctx)
	require.NoError(t, err)

	check.Program(ctx, x, &d)
	require.Equal(t, 0, d.Len(), "%v", d.Strings())

	p, err := Program(ctx, x)
	require.NoError(t, err)

	for _, fn := range p.Funcs {
		require.True(t, fn.Sealed(), fn.Name)
	}

	return p
}

func count[T ir.Instr](f *ir.Function, only set) int {
	n := 0

	for i, x := range f.Code {
		if _, ok := x.(T); ok && (only == nil || only[ir.Inst(i)]) {
			n++
		}
	}

	return n
}

type set map[ir.Inst]bool

func reachable(f *ir.Function) set {
	r := set{}

	ir.Walk(f, func(i ir.Inst) bool {
		r[i] = true
		return true
	})

	return r
}

func TestSingleReturn(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: one
      ret: int
      body: [{return: 1}]
  - func:
      name: main
      body: []
`)

	f := p.Func("one")
	r := reachable(f)

	assert.Len(t, r, len(f.Code), "no unreachable instructions")
	assert.Equal(t, 1, count[*ir.Return](f, r))
	assert.Equal(t, 0, count[*ir.Nop](f, nil))

	main := p.Func("main")
	require.Len(t, main.Code, 1)
	assert.IsType(t, &ir.Nop{}, main.Code[main.Start])
}

func TestIfElseBothReturn(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: pick
      params: [{name: c, type: bool}]
      ret: int
      body:
        - if:
            cond: c
            then: [{return: 1}]
            else: [{return: 2}]
`)

	f := p.Func("pick")

	assert.Equal(t, 0, count[*ir.Nop](f, nil), "merge node must be absent")
	assert.Equal(t, 2, count[*ir.Return](f, nil))
	assert.Len(t, reachable(f), len(f.Code))

	j, ok := f.Code[f.Start].(*ir.Jump)
	require.True(t, ok)
	assert.Same(t, f.Params[0], j.Cond)
}

func TestIfWithoutElse(t *testing.T) {
	p := lowerText(t, `
decls:
  - var: {name: g, type: int}
  - func:
      name: main
      body:
        - if:
            cond: {lt: [g, 0]}
            then:
              - assign: {to: g, value: 0}
        - call: {name: printInt, args: [g]}
`)

	f := p.Func("main")
	preds := ir.Preds(f)

	merges := 0

	for i, x := range f.Code {
		if _, ok := x.(*ir.Nop); ok && preds[i] == 2 {
			merges++
		}
	}

	assert.Equal(t, 1, merges)
	assert.Equal(t, 1, count[*ir.Store](f, nil))
	assert.Equal(t, 2, count[*ir.Load](f, nil))
	assert.Equal(t, 1, count[*ir.Call](f, nil))
}

func TestLoopBreak(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: main
      body:
        - let: {name: i, type: int}
        - assign: {to: i, value: 0}
        - loop:
            - if:
                cond: {ge: [i, 3]}
                then: [break]
            - assign: {to: i, value: {add: [i, 1]}}
        - call: {name: printInt, args: [i]}
`)

	f := p.Func("main")
	r := reachable(f)

	var call ir.Inst = ir.Nil

	for i, x := range f.Code {
		if _, ok := x.(*ir.Call); ok {
			call = ir.Inst(i)
		}
	}

	require.NotEqual(t, ir.Nil, call)
	assert.True(t, r[call], "code after the loop is reachable through break")

	// head has the entry edge from before the loop and the back edge
	preds := ir.Preds(f)
	heads := 0

	for i, x := range f.Code {
		if _, ok := x.(*ir.Nop); ok && preds[i] == 2 && r[ir.Inst(i)] {
			heads++
		}
	}

	assert.Equal(t, 1, heads)
}

func TestNestedLoops(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: main
      body:
        - loop:
            - loop:
                - break
            - break
        - return
`)

	f := p.Func("main")
	r := reachable(f)

	// outer head, inner head, inner exit, outer exit
	assert.Equal(t, 4, count[*ir.Nop](f, r))
	assert.Equal(t, 1, count[*ir.Return](f, r))

	outer := f.Start
	inner := f.Succ(outer, 0)
	innerExit := f.Succ(inner, 0)
	outerExit := f.Succ(innerExit, 0)

	assert.IsType(t, &ir.Nop{}, f.Code[inner])
	assert.NotEqual(t, outer, innerExit)
	assert.IsType(t, &ir.Return{}, f.Code[f.Succ(outerExit, 0)])
}

func TestShortCircuit(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: f
      params: [{name: a, type: bool}, {name: b, type: bool}]
      ret: bool
      body:
        - return: {or: [a, {and: [b, {not: a}]}]}
`)

	f := p.Func("f")

	assert.Equal(t, 2, count[*ir.Jump](f, nil))
	assert.Equal(t, 1, count[*ir.Not](f, nil))
	assert.Len(t, reachable(f), len(f.Code))

	j := f.Code[f.Start].(*ir.Jump)
	assert.Same(t, f.Params[0], j.Cond)

	known := f.Code[f.Succ(f.Start, 1)].(*ir.Copy)
	assert.Equal(t, "true", known.Src.String())
}

func TestArrays(t *testing.T) {
	p := lowerText(t, `
decls:
  - array: {name: a, type: int, extent: 8}
  - func:
      name: main
      body:
        - assign: {to: {index: [a, 2]}, value: {index: [a, 1]}}
`)

	require.Len(t, p.Globals, 1)
	assert.Equal(t, int64(8), p.Globals[0].Count)

	f := p.Func("main")

	assert.Equal(t, 2, count[*ir.AddressAt](f, nil))
	assert.Equal(t, 1, count[*ir.Load](f, nil))
	assert.Equal(t, 1, count[*ir.Store](f, nil))

	for _, x := range f.Code {
		if a, ok := x.(*ir.AddressAt); ok {
			assert.Same(t, p.Globals[0], a.Base)
			assert.NotNil(t, a.Offset)
		}
	}
}

func TestCalls(t *testing.T) {
	p := lowerText(t, `
decls:
  - func:
      name: add3
      params: [{name: a, type: int}, {name: b, type: int}, {name: c, type: int}]
      ret: int
      body: [{return: {add: [{add: [a, b]}, c]}}]
  - func:
      name: main
      body:
        - call: {name: printInt, args: [{call: {name: add3, args: [1, 2, {call: readInt}]}}]}
`)

	f := p.Func("main")

	var calls []*ir.Call

	ir.Walk(f, func(i ir.Inst) bool {
		if c, ok := f.Code[i].(*ir.Call); ok {
			calls = append(calls, c)
		}

		return true
	})

	require.Len(t, calls, 3)

	names := map[string]*ir.Call{}
	for _, c := range calls {
		names[c.Callee] = c
	}

	assert.Nil(t, names["printInt"].Dst)
	assert.NotNil(t, names["add3"].Dst)
	assert.Len(t, names["add3"].Args, 3)
	assert.Same(t, names["readInt"].Dst, names["add3"].Args[2])
	assert.Same(t, names["add3"].Dst, names["printInt"].Args[0])
}
