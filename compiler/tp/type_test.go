package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds() []Type {
	return []Type{
		Int{},
		Bool{},
		Void{},
		Array{Base: Int{}, Extent: 4},
		Func{Args: List{Int{}}, Ret: Bool{}},
	}
}

func TestOperatorsTotal(t *testing.T) {
	binary := map[string]func(x, y Type) Type{
		"add":     Add,
		"sub":     Sub,
		"mul":     Mul,
		"div":     Div,
		"and":     And,
		"or":      Or,
		"compare": Compare,
		"assign":  Assign,
		"index":   Index,
		"call": func(x, y Type) Type {
			return Call(x, List{y})
		},
	}

	for name, op := range binary {
		n := 0

		for _, x := range kinds() {
			for _, y := range kinds() {
				var r Type

				require.NotPanics(t, func() { r = op(x, y) }, "%v %v %v", name, x, y)
				require.NotNil(t, r, "%v %v %v", name, x, y)

				n++
			}
		}

		assert.Equal(t, 25, n, name)
	}

	for _, x := range kinds() {
		r := Not(x)
		require.NotNil(t, r)

		_, isBool := x.(Bool)
		assert.Equal(t, !isBool, IsError(r), "not %v", x)
	}
}

func TestOperatorResults(t *testing.T) {
	assert.Equal(t, Int{}, Add(Int{}, Int{}))
	assert.Equal(t, Int{}, Div(Int{}, Int{}))
	assert.Equal(t, Bool{}, Compare(Int{}, Int{}))
	assert.Equal(t, Bool{}, And(Bool{}, Bool{}))
	assert.Equal(t, Void{}, Assign(Int{}, Int{}))
	assert.Equal(t, Void{}, Assign(Bool{}, Bool{}))
	assert.Equal(t, Bool{}, Index(Array{Base: Bool{}, Extent: 2}, Int{}))
	assert.Equal(t, Bool{}, Call(Func{Args: List{Int{}}, Ret: Bool{}}, List{Int{}}))

	assert.True(t, IsError(Add(Int{}, Bool{})))
	assert.True(t, IsError(Or(Int{}, Int{})))
	assert.True(t, IsError(Compare(Bool{}, Bool{})))
	assert.True(t, IsError(Assign(Int{}, Bool{})))
	assert.True(t, IsError(Assign(Array{Base: Int{}, Extent: 1}, Array{Base: Int{}, Extent: 1})))
	assert.True(t, IsError(Index(Int{}, Int{})))
	assert.True(t, IsError(Index(Array{Base: Int{}, Extent: 2}, Bool{})))
	assert.True(t, IsError(Call(Func{Args: List{Int{}}, Ret: Void{}}, List{})))
	assert.True(t, IsError(Call(Func{Args: List{Int{}}, Ret: Void{}}, List{Bool{}})))

	assert.Equal(t, Error{Msg: "cannot add int with bool"}, Add(Int{}, Bool{}))
}

func TestErrorPropagates(t *testing.T) {
	e := Error{Msg: "first"}

	assert.Equal(t, e, Add(e, Bool{}))
	assert.Equal(t, e, Add(Int{}, e))
	assert.Equal(t, e, Not(e))
	assert.Equal(t, e, Call(Func{Args: List{Int{}}, Ret: Int{}}, List{e}))
	assert.Equal(t, e, Index(Array{Base: Int{}, Extent: 1}, e))
}

func TestEquivalent(t *testing.T) {
	a := Array{Base: Int{}, Extent: 3}

	assert.True(t, Equivalent(a, Array{Base: Int{}, Extent: 3}))
	assert.False(t, Equivalent(a, Array{Base: Int{}, Extent: 4}))
	assert.False(t, Equivalent(a, Array{Base: Bool{}, Extent: 3}))

	f := Func{Args: List{Int{}, Bool{}}, Ret: Void{}}

	assert.True(t, Equivalent(f, Func{Args: List{Int{}, Bool{}}, Ret: Void{}}))
	assert.False(t, Equivalent(f, Func{Args: List{Int{}}, Ret: Void{}}))
	assert.False(t, Equivalent(f, Func{Args: List{Int{}, Bool{}}, Ret: Int{}}))

	assert.True(t, Equivalent(List(nil), List{}))

	for i, x := range kinds() {
		for j, y := range kinds() {
			assert.Equal(t, i == j, Equivalent(x, y), "%v %v", x, y)
		}
	}

	assert.False(t, Equivalent(Error{Msg: "x"}, Error{Msg: "x"}))
}

func TestString(t *testing.T) {
	assert.Equal(t, "array[3,int]", Array{Base: Int{}, Extent: 3}.String())
	assert.Equal(t, "func(TypeList(int,bool)):void", Func{Args: List{Int{}, Bool{}}, Ret: Void{}}.String())
}
