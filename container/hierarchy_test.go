package container

import (
	"testing"

	"github.com/kasp-editor/kaspcore/arena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S4 — hierarchy removal.
func TestHierarchyRemoveSubtree(t *testing.T) {
	h := NewHierarchy(16, false)
	r, ok := h.Add(HierarchyRoot)
	require.True(t, ok)
	a, _ := h.Add(r)
	h.Add(a) // a1
	h.Add(a) // a2
	h.Add(a) // a3
	b, _ := h.Add(r)
	c, _ := h.Add(r)
	c1, _ := h.Add(c)

	h.Remove(a, arena.New(4096))

	// r, a, a1, a2, a3, b, c, c1 were added (8 slots); removing a's
	// subtree (a, a1, a2, a3) frees 4, leaving r, b, c, c1 live. Count
	// includes the root stub on top of that.
	assert.Equal(t, 5, h.Count())

	var visited []uint32
	h.Walk(r, func(idx uint32) { visited = append(visited, idx) })
	assert.Equal(t, []uint32{b, c, c1}, visited)
}

func TestHierarchyRemoveFallsBackToHeapOnArenaExhaustion(t *testing.T) {
	h := NewHierarchy(16, false)
	r, _ := h.Add(HierarchyRoot)
	a, _ := h.Add(r)
	h.Add(a)
	h.Add(a)

	tiny := arena.New(0) // immediately exhausted
	h.Remove(a, tiny)

	assert.True(t, h.ForcedMalloc)
	var visited []uint32
	h.Walk(r, func(idx uint32) { visited = append(visited, idx) })
	assert.Empty(t, visited)
}

func TestHierarchyWalkInsertionOrder(t *testing.T) {
	h := NewHierarchy(16, false)
	r, _ := h.Add(HierarchyRoot)
	x, _ := h.Add(r)
	y, _ := h.Add(r)
	x1, _ := h.Add(x)
	x2, _ := h.Add(x)

	var visited []uint32
	h.Walk(r, func(idx uint32) { visited = append(visited, idx) })
	assert.Equal(t, []uint32{x, x1, x2, y}, visited)
}
