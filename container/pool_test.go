package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAddRemoveCount(t *testing.T) {
	p := NewPool[int](4, false)
	i0, v0, ok := p.Reserve()
	require.True(t, ok)
	*v0 = 10
	i1, v1, ok := p.Reserve()
	require.True(t, ok)
	*v1 = 20
	assert.Equal(t, 2, p.Count())

	p.Remove(i0)
	assert.Equal(t, 1, p.Count())
	assert.Equal(t, 20, *p.Get(i1))
	assert.Nil(t, p.Get(i0))

	// Property 1: count == adds - removes, after any sequence.
	i2, _, ok := p.Reserve()
	require.True(t, ok)
	i3, _, ok := p.Reserve()
	require.True(t, ok)
	assert.Equal(t, 3, p.Count())
	p.Remove(i2)
	p.Remove(i3)
	p.Remove(i1)
	assert.Equal(t, 0, p.Count())
}

func TestPoolFreeListReuse(t *testing.T) {
	p := NewPool[int](2, false)
	i0, _, _ := p.Reserve()
	_, _, _ = p.Reserve()
	p.Remove(i0)
	reused, _, ok := p.Reserve()
	require.True(t, ok)
	assert.Equal(t, i0, reused, "freed slot should be reused before growing")
}

func TestPoolGrowable(t *testing.T) {
	p := NewPool[int](1, true)
	idx := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		id, v, ok := p.Reserve()
		require.True(t, ok)
		*v = i
		idx = append(idx, id)
	}
	// All previously returned indices remain valid after growth.
	for i, id := range idx {
		assert.Equal(t, i, *p.Get(id))
	}
}

func TestPoolNonGrowableExhaustion(t *testing.T) {
	p := NewPool[int](2, false)
	p.Reserve()
	p.Reserve()
	_, _, ok := p.Reserve()
	assert.False(t, ok)
}

func TestPoolFlush(t *testing.T) {
	p := NewPool[int](4, false)
	p.Reserve()
	p.Reserve()
	p.Flush()
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, 0, p.MaxCount())
}
