package host

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	var out bytes.Buffer

	e := New(strings.NewReader("  42\n-7 x"), &out)

	v, err := e.Call("readInt", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = e.Call("readInt", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	v, err = e.Call("readChar", nil)
	require.NoError(t, err)
	assert.Equal(t, int64('x'), v)

	v, err = e.Call("readChar", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)

	_, err = e.Call("readInt", nil)
	assert.Error(t, err)

	for _, c := range []struct {
		name string
		arg  int64
	}{
		{"printInt", -15},
		{"printChar", ' '},
		{"printBool", 1},
		{"printChar", ' '},
		{"printBool", 0},
		{"println", 0},
	} {
		_, err = e.Call(c.name, []int64{c.arg})
		require.NoError(t, err)
	}

	assert.Equal(t, "-15 true false\n", out.String())

	_, err = e.Call("exit", nil)
	assert.ErrorIs(t, err, ErrUnknown)

	assert.True(t, IsBuiltin("printChar"))
}
