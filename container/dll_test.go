package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLLAddIsUnlinked(t *testing.T) {
	d := NewDLL[int](4, false)
	idx, v, ok := d.Add()
	require.True(t, ok)
	*v = 7
	assert.Equal(t, Null, d.Next(idx))
	assert.Equal(t, Null, d.Prev(idx))
}

func TestDLLPrependAppend(t *testing.T) {
	d := NewDLL[string](4, false)
	a, va, _ := d.Add()
	*va = "a"
	b, vb, _ := d.Prepend(a)
	*vb = "b"
	c, vc, _ := d.Append(a)
	*vc = "c"

	// order should be: b <-> a <-> c
	assert.Equal(t, a, d.Next(b))
	assert.Equal(t, b, d.Prev(a))
	assert.Equal(t, c, d.Next(a))
	assert.Equal(t, a, d.Prev(c))
	assert.Equal(t, Null, d.Prev(b))
	assert.Equal(t, Null, d.Next(c))
}

func TestDLLUnlinkAndPrepend(t *testing.T) {
	d := NewDLL[int](4, false)
	a, _, _ := d.Add()
	b, _, _ := d.Append(a)
	c, _, _ := d.Append(b)
	// list: a <-> b <-> c
	d.UnlinkAndPrepend(c, a)
	// list should become: c <-> a <-> b
	assert.Equal(t, a, d.Next(c))
	assert.Equal(t, c, d.Prev(a))
	assert.Equal(t, b, d.Next(a))
	assert.Equal(t, Null, d.Next(b))
	assert.Equal(t, Null, d.Prev(c))
}

func TestDLLRemoveAndReuse(t *testing.T) {
	d := NewDLL[int](2, false)
	a, _, _ := d.Add()
	require.Equal(t, uint32(1), d.Count())
	d.Remove(a)
	assert.Equal(t, uint32(0), d.Count())
	reused, _, ok := d.Add()
	require.True(t, ok)
	assert.Equal(t, a, reused)
}

func TestDLLRemoveStubPanics(t *testing.T) {
	d := NewDLL[int](2, false)
	assert.Panics(t, func() { d.Remove(Stub) })
}
