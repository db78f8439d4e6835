package check

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/front"
	"github.com/slowlang/crux/compiler/tp"
)

func checkText(t *testing.T, text string) (*ast.DeclarationList, []string) {
	t.Helper()

	ctx := context.Background()

	var d diag.List
	f := front.New(&d)

	err := f.AddFile(ctx, "test.yaml", []byte(text))
	require.NoError(t, err)

	x, err := f.Parse(ctx)
	require.NoError(t, err)

	Program(ctx, x, &d)

	return x, d.Strings()
}

func TestValidProgram(t *testing.T) {
	x, diags := checkText(t, `
decls:
  - var: {name: total, type: int}
  - array: {name: seen, type: bool, extent: 10}
  - func:
      name: sum
      params: [{name: n, type: int}]
      ret: int
      body:
        - let: {name: i, type: int}
        - let: {name: s, type: int}
        - assign: {to: i, value: 0}
        - assign: {to: s, value: 0}
        - loop:
            - if:
                cond: {or: [{ge: [i, n]}, {index: [seen, i]}]}
                then: [break]
            - assign: {to: s, value: {add: [s, i]}}
            - assign: {to: i, value: {add: [i, 1]}}
        - return: s
  - func:
      name: main
      body:
        - assign: {to: total, value: {call: {name: sum, args: [{call: readInt}]}}}
        - call: {name: printInt, args: [total]}
        - call: println
`)

	assert.Empty(t, diags)

	sum := x.Decls[2].(*ast.FunctionDefinition)
	loop := sum.Body.Stmts[4].(*ast.Loop)
	cond := loop.Body.Stmts[0].(*ast.IfElseBranch).Cond.(*ast.OpExpr)

	assert.Equal(t, tp.Bool{}, cond.Type())
	assert.Equal(t, tp.Bool{}, cond.Right.Type())

	main := x.Decls[3].(*ast.FunctionDefinition)
	call := main.Body.Stmts[0].(*ast.Assignment).Value.(*ast.Call)
	assert.Equal(t, tp.Int{}, call.Type())
	assert.Equal(t, tp.Void{}, main.Body.Stmts[1].(*ast.Call).Type())
}

func TestMainSignature(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - func:
      name: main
      params: [{name: a, type: int}]
      body: []
`)

	assert.Equal(t, []string{"TypeError(4:7)[main function definition error]"}, diags)

	_, diags = checkText(t, `
decls:
  - func:
      name: main
      ret: int
      body: [{return: 1}]
`)

	assert.Equal(t, []string{"TypeError(4:7)[main function definition error]"}, diags)
}

func TestCallArgumentMismatch(t *testing.T) {
	x, diags := checkText(t, `
decls:
  - func:
      name: f
      params: [{name: a, type: int}, {name: b, type: bool}]
      ret: int
      body: [{return: a}]
  - func:
      name: main
      body:
        - call: {name: printInt, args: [{add: [{call: {name: f, args: [true, 1]}}, 2]}]}
`)

	assert.Equal(t, []string{
		"TypeError(11:48)[cannot call func(TypeList(int,bool)):int using TypeList(bool,int)]",
	}, diags)

	main := x.Decls[1].(*ast.FunctionDefinition)
	add := main.Body.Stmts[0].(*ast.Call).Args[0].(*ast.OpExpr)

	assert.Equal(t, tp.Int{}, add.Left.Type())
	assert.Equal(t, tp.Int{}, add.Type())
}

func TestErrorsDoNotCascade(t *testing.T) {
	x, diags := checkText(t, `
decls:
  - func:
      name: main
      body:
        - let: {name: b, type: bool}
        - call: {name: printInt, args: [{mul: [{add: [b, 1]}, 2]}]}
`)

	require.Len(t, diags, 1)
	assert.Equal(t, "TypeError(7:48)[cannot add bool with int]", diags[0])

	main := x.Decls[0].(*ast.FunctionDefinition)
	mul := main.Body.Stmts[1].(*ast.Call).Args[0].(*ast.OpExpr)
	assert.True(t, tp.IsError(mul.Type()))
}

func TestStatementRules(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - var: {name: g, type: int}
  - array: {name: a, type: int, extent: 4}
  - func:
      name: f
      ret: int
      body:
        - if:
            cond: 1
            then: [{return: 1}]
        - assign: {to: g, value: true}
        - assign: {to: a, value: 1}
        - return: false
  - func:
      name: main
      body:
        - break
        - call: {name: f}
`)

	assert.Equal(t, []string{
		"TypeError(9:11)[if condition not bool type]",
		"TypeError(12:11)[cannot assign bool to int]",
		"TypeError(13:24)[cannot use a of type array[4,int] as a value]",
		"TypeError(14:11)[return type does not match currentFunctionReturnType]",
		"TypeError(18:11)[break outside of loop]",
		"TypeError(19:11)[unreachable statement]",
	}, diags)
}

func TestReturnPaths(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - func:
      name: both
      params: [{name: c, type: bool}]
      ret: int
      body:
        - if:
            cond: c
            then: [{return: 1}]
            else: [{return: 2}]
  - func:
      name: half
      params: [{name: c, type: bool}]
      ret: int
      body:
        - if:
            cond: c
            then: [{return: 1}]
  - func:
      name: spin
      ret: int
      body:
        - loop:
            - return: 3
  - func:
      name: main
      body: []
`)

	assert.Equal(t, []string{
		"TypeError(13:7)[function return statement missing]",
	}, diags)
}

func TestLoops(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - func:
      name: main
      body:
        - loop:
            - loop:
                - break
            - call: println
        - call: println
`)

	assert.Equal(t, []string{
		"TypeError(6:11)[infinite loop!]",
		"TypeError(10:11)[unreachable statement]",
	}, diags)
}

func TestUnreachableAfterReturn(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - func:
      name: f
      ret: int
      body:
        - return: 1
        - call: println
        - call: println
  - func:
      name: main
      body:
        - loop:
            - break
            - continue
`)

	assert.Equal(t, []string{
		"TypeError(8:11)[unreachable statement]",
		"TypeError(15:15)[unreachable statement]",
	}, diags)
}

func TestLocalArray(t *testing.T) {
	_, diags := checkText(t, `
decls:
  - func:
      name: main
      body:
        - array: {name: buf, type: int, extent: 3}
`)

	assert.Equal(t, []string{"TypeError(6:18)[array buf must be declared globally]"}, diags)
}
