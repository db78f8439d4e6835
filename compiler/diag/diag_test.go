package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/ast"
)

func TestList(t *testing.T) {
	var l List

	require.NoError(t, l.Err())

	l.Add(TypeError, ast.Pos{Line: 3, Col: 5}, "cannot add %v with %v", "int", "bool")
	l.Add(DeclarationError, ast.Pos{Line: 1, Col: 1}, "Symbol %s is already defined.", "x")

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{
		"TypeError(3:5)[cannot add int with bool]",
		"DeclarationError(1:1)[Symbol x is already defined.]",
	}, l.Strings())

	err := l.Err()
	require.Error(t, err)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Diags, 2)
	assert.Contains(t, err.Error(), "2 error(s)")
}
