package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crux/compiler/diag"
	"github.com/slowlang/crux/compiler/front"
)

func TestFormatAST(t *testing.T) {
	ctx := context.Background()

	var d diag.List
	f := front.New(&d)

	err := f.AddFile(ctx, "test.yaml", []byte(`
decls:
  - var: {name: n, type: int}
  - array: {name: a, type: bool, extent: 4}
  - func:
      name: f
      params: [{name: x, type: int}]
      ret: int
      body:
        - if:
            cond: {and: [{index: [a, x]}, {not: {eq: [x, 0]}}]}
            then: [{return: {div: [n, x]}}]
            else:
              - loop: [break]
        - return: {call: {name: readInt}}
  - func:
      name: main
      body:
        - assign: {to: n, value: {call: {name: f, args: [-3]}}}
        - call: println
        - return
`))
	require.NoError(t, err)

	x, err := f.Parse(ctx)
	require.NoError(t, err)

	b, err := Format(ctx, nil, x)
	require.NoError(t, err)

	assert.Equal(t, `var n int
var a array[4,bool]

func f(x int) int {
	if (a[x] && !(x == 0)) {
		return (n / x)
	} else {
		for {
			break
		}
	}
	return readInt()
}

func main() {
	n = f(-3)
	println()
	return
}
`, string(b))

	_, err = Format(ctx, nil, 5)
	assert.Error(t, err)
}
