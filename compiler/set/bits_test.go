package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits[int]

	assert.False(t, s.IsSet(3))
	assert.Equal(t, 0, s.Size())

	for _, k := range []int{0, 3, 64, 130, 3} {
		s.Set(k)
	}

	assert.True(t, s.IsSet(0))
	assert.True(t, s.IsSet(130))
	assert.False(t, s.IsSet(129))
	assert.False(t, s.IsSet(-1))
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int{0, 3, 64, 130}, s.Slice())

	s.Clear(64)
	assert.Equal(t, []int{0, 3, 130}, s.Slice())

	var first []int

	s.Range(func(k int) bool {
		first = append(first, k)
		return false
	})

	assert.Equal(t, []int{0}, first)

	s.Reset()
	assert.Equal(t, 0, s.Size())
}

func TestMakeBits(t *testing.T) {
	s := MakeBits[int64](300)

	s.Set(299)
	assert.True(t, s.IsSet(299))
	assert.Equal(t, 1, s.Size())
}
