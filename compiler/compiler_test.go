package compiler

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/asm"
	"github.com/slowlang/crux/compiler/asm/amd64"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/eval"
)

func TestCheckStopsPipeline(t *testing.T) {
	u, err := Options{}.Compile(context.Background(), "bad.yaml", []byte(`
decls:
  - func:
      name: main
      body:
        - call: {name: printInt, args: [true]}
        - call: {name: printInt, args: [undefined]}
`))

	var de *diag.Error
	require.ErrorAs(t, err, &de)

	assert.Equal(t, []string{
		"TypeError(6:11)[cannot call func(TypeList(int)):void using TypeList(bool)]",
		"ResolveSymbolError(7:41)[Could not find undefined.]",
	}, u.Diags.Strings())

	assert.Len(t, de.Diags, 2)
	assert.Nil(t, u.IR)
	assert.Nil(t, u.Asm)
}

func TestCompileComments(t *testing.T) {
	text := []byte(`
decls:
  - func:
      name: main
      body: [{call: println}]
`)

	u, err := Options{Comments: true}.Compile(context.Background(), "main.yaml", text)
	require.NoError(t, err)

	assert.Contains(t, string(u.Asm), "\t# call println()\n\tcall println\n")

	obj, err := Compile(context.Background(), "main.yaml", text)
	require.NoError(t, err)
	assert.NotContains(t, string(obj), "#")
}

const program = `
decls:
  - array: {name: sq, type: int, extent: 6}
  - var: {name: sum, type: int}
  - func:
      name: fact
      params: [{name: n, type: int}]
      ret: int
      body:
        - if:
            cond: {le: [n, 1]}
            then: [{return: 1}]
        - return: {mul: [n, {call: {name: fact, args: [{sub: [n, 1]}]}}]}
  - func:
      name: pick
      params:
        - {name: a, type: int}
        - {name: b, type: int}
        - {name: c, type: int}
        - {name: d, type: int}
        - {name: e, type: int}
        - {name: f, type: int}
        - {name: g, type: int}
        - {name: h, type: int}
        - {name: i, type: int}
      ret: int
      body:
        - return: {sub: [{mul: [g, 100]}, {add: [{mul: [h, 10]}, i]}]}
  - func:
      name: main
      body:
        - let: {name: n, type: int}
        - let: {name: k, type: int}
        - let: {name: odd, type: bool}
        - assign: {to: n, value: {call: readInt}}
        - assign: {to: k, value: 0}
        - loop:
            - if:
                cond: {ge: [k, n]}
                then: [break]
            - assign: {to: {index: [sq, k]}, value: {mul: [k, k]}}
            - assign: {to: sum, value: {add: [sum, {index: [sq, k]}]}}
            - assign: {to: odd, value: {ne: [{mul: [{div: [k, 2]}, 2]}, k]}}
            - if:
                cond: {and: [odd, {gt: [k, 1]}]}
                then:
                  - call: {name: printInt, args: [{call: {name: fact, args: [k]}}]}
                  - call: {name: printChar, args: [32]}
                else:
                  - call: {name: printBool, args: [{or: [odd, {eq: [k, 0]}]}]}
                  - call: {name: printChar, args: [32]}
            - assign: {to: k, value: {add: [k, 1]}}
        - call: {name: printInt, args: [sum]}
        - call: println
        - call: {name: printInt, args: [{call: {name: pick, args: [1, 2, 3, 4, 5, 6, 7, 8, 9]}}]}
        - call: println
`

func emulate(t *testing.T, obj []byte, in string, fn string, args ...int64) (int64, string) {
	t.Helper()

	p, err := asm.Parse(context.Background(), obj)
	require.NoError(t, err)

	var out bytes.Buffer

	m := amd64.New(p, strings.NewReader(in), &out)
	m.MaxSteps = 1_000_000

	r, err := m.Run(context.Background(), fn, args...)
	require.NoError(t, err, "%s", obj)

	return r, out.String()
}

func TestProgramAgreement(t *testing.T) {
	ctx := context.Background()

	u, err := Options{}.Compile(ctx, "prog.yaml", []byte(program))
	require.NoError(t, err)

	var want bytes.Buffer

	m := eval.New(u.IR, strings.NewReader("6"), &want)

	_, err = m.Run(ctx, "main")
	require.NoError(t, err)

	assert.Equal(t, "true true false 6 false 120 55\n611\n", want.String())

	_, got := emulate(t, u.Asm, "6", "main")
	assert.Equal(t, want.String(), got)
}

// gen returns a random integer expression over params a, b, c and its value computed by Go.
func gen(rnd *rand.Rand, depth int) (string, func(p []int64) int64) {
	if depth == 0 || rnd.Intn(4) == 0 {
		if rnd.Intn(2) == 0 {
			i := rnd.Intn(3)

			return string(rune('a' + i)), func(p []int64) int64 { return p[i] }
		}

		v := int64(rnd.Intn(41) - 20)

		return strconv.FormatInt(v, 10), func(p []int64) int64 { return v }
	}

	l, lf := gen(rnd, depth-1)

	switch op := rnd.Intn(4); op {
	case 3:
		k := int64(rnd.Intn(9) + 1)
		if rnd.Intn(2) == 0 {
			k = -k
		}

		return fmt.Sprintf("{div: [%s, %d]}", l, k), func(p []int64) int64 { return lf(p) / k }
	default:
		r, rf := gen(rnd, depth-1)
		name := [...]string{"add", "sub", "mul"}[op]

		return fmt.Sprintf("{%s: [%s, %s]}", name, l, r), func(p []int64) int64 {
			x, y := lf(p), rf(p)

			switch op {
			case 0:
				return x + y
			case 1:
				return x - y
			}

			return x * y
		}
	}
}

func TestRandomArithmetic(t *testing.T) {
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(7))

	for n := 0; n < 40; n++ {
		e, f := gen(rnd, 4)

		text := `
decls:
  - func:
      name: f
      params: [{name: a, type: int}, {name: b, type: int}, {name: c, type: int}]
      ret: int
      body:
        - return: ` + e + "\n"

		u, err := Options{}.Compile(ctx, "rand.yaml", []byte(text))
		require.NoError(t, err, "%s", text)

		for k := 0; k < 5; k++ {
			args := []int64{int64(rnd.Intn(201) - 100), int64(rnd.Intn(201) - 100), int64(rnd.Intn(201) - 100)}
			want := f(args)

			got, err := eval.New(u.IR, nil, nil).Run(ctx, "f", args...)
			require.NoError(t, err)
			assert.Equal(t, want, got, "eval %v %v", e, args)

			got, _ = emulate(t, u.Asm, "", "f", args...)
			assert.Equal(t, want, got, "asm %v %v", e, args)
		}
	}
}

func TestWideLiteral(t *testing.T) {
	ctx := context.Background()

	u, err := Options{}.Compile(ctx, "wide.yaml", []byte(`
decls:
  - func:
      name: big
      params: [{name: a, type: int}]
      ret: int
      body:
        - return: {sub: [5000000000, {add: [a, -9000000000]}]}
`))
	require.NoError(t, err)

	assert.Contains(t, string(u.Asm), "\tmovabsq $5000000000, %r10\n")
	assert.NotContains(t, string(u.Asm), "movq $5000000000")

	got, err := eval.New(u.IR, nil, nil).Run(ctx, "big", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(13999999997), got)

	got, _ = emulate(t, u.Asm, "", "big", 3)
	assert.Equal(t, int64(13999999997), got)
}
