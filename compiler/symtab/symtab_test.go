package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/ast"
	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/tp"
)

func TestScopes(t *testing.T) {
	var d diag.List

	st := New(&d)

	g := st.Declare(ast.Pos{Line: 1}, "x", tp.Int{})
	require.Empty(t, g.Err)

	st.Enter()

	l := st.Declare(ast.Pos{Line: 2}, "x", tp.Bool{})
	require.Empty(t, l.Err)

	assert.Same(t, l, st.Lookup(ast.Pos{Line: 3}, "x"))

	st.Exit()

	assert.Same(t, g, st.Lookup(ast.Pos{Line: 4}, "x"))
	assert.Equal(t, 0, d.Len())

	p := st.Lookup(ast.Pos{Line: 5}, "printInt")
	assert.Equal(t, tp.Func{Args: tp.List{tp.Int{}}, Ret: tp.Void{}}, p.Type)
}

func TestErrors(t *testing.T) {
	var d diag.List

	st := New(&d)

	st.Declare(ast.Pos{Line: 1, Col: 1}, "x", tp.Int{})
	dup := st.Declare(ast.Pos{Line: 2, Col: 1}, "x", tp.Int{})
	miss := st.Lookup(ast.Pos{Line: 3, Col: 7}, "y")

	assert.Equal(t, "DeclarationError", dup.Err)
	assert.True(t, tp.IsError(dup.Type))
	assert.Equal(t, "ResolveSymbolError", miss.Err)

	assert.Equal(t, []string{
		"DeclarationError(2:1)[Symbol x is already defined.]",
		"ResolveSymbolError(3:7)[Could not find y.]",
	}, d.Strings())

	assert.Panics(t, func() { st.Exit() })
	assert.True(t, IsBuiltin("println"))
	assert.False(t, IsBuiltin("main"))
}
