package container

import "github.com/kasp-editor/kaspcore/arena"

// HierarchyNull marks "no node" (slot 0). HierarchyRoot is the fixed
// root stub every top-level node's parent resolves to (slot 1).
const (
	HierarchyNull uint32 = 0
	HierarchyRoot uint32 = 1
)

type hierarchyNode struct {
	parent, prevSibling, nextSibling, firstChild, lastChild uint32
}

// Hierarchy is a slotted array where each slot holds a
// {parent, prev, next, first, last} quintuple. Iteration is
// depth-first with an explicit stack; Remove walks the removed
// subtree and returns every slot in it to the free list.
type Hierarchy struct {
	nodes    []hierarchyNode
	occupied []bool
	free     []uint32
	maxCount uint32
	count    uint32
	growable bool

	// ForcedMalloc is set when a Remove traversal exhausted its arena
	// scratch space and fell back to a heap-allocated stack (spec §7).
	// The caller reads and logs it; it is never set back to false by
	// Hierarchy itself.
	ForcedMalloc bool
}

// NewHierarchy creates a hierarchy with room for capacity nodes plus
// the reserved root stub.
func NewHierarchy(capacity int, growable bool) *Hierarchy {
	h := &Hierarchy{growable: growable}
	h.nodes = make([]hierarchyNode, capacity+2)
	h.occupied = make([]bool, capacity+2)
	h.occupied[HierarchyRoot] = true
	h.maxCount = 1 // root stub counts as used
	return h
}

func (h *Hierarchy) reserve() (uint32, bool) {
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.occupied[idx] = true
		h.count++
		h.nodes[idx] = hierarchyNode{}
		return idx, true
	}
	if int(h.maxCount)+1 >= len(h.nodes) {
		if !h.growable {
			return 0, false
		}
		h.grow()
	}
	idx := h.maxCount + 1
	h.maxCount++
	h.occupied[idx] = true
	h.count++
	return idx, true
}

func (h *Hierarchy) grow() {
	newLen := len(h.nodes) * 2
	nodes := make([]hierarchyNode, newLen)
	occupied := make([]bool, newLen)
	copy(nodes, h.nodes)
	copy(occupied, h.occupied)
	h.nodes, h.occupied = nodes, occupied
}

// Add creates a new child appended at parent.last. A parent of
// HierarchyNull is treated as HierarchyRoot.
func (h *Hierarchy) Add(parent uint32) (index uint32, ok bool) {
	if parent == HierarchyNull {
		parent = HierarchyRoot
	}
	idx, ok := h.reserve()
	if !ok {
		return 0, false
	}
	h.nodes[idx].parent = parent
	h.nodes[idx].prevSibling = HierarchyNull
	h.nodes[idx].nextSibling = HierarchyNull

	p := &h.nodes[parent]
	if p.lastChild != HierarchyNull {
		h.nodes[p.lastChild].nextSibling = idx
		h.nodes[idx].prevSibling = p.lastChild
		p.lastChild = idx
	} else {
		p.firstChild = idx
		p.lastChild = idx
	}
	return idx, true
}

// Parent, FirstChild, NextSibling expose the raw links for callers
// that need to walk the tree without paying for a full traversal.
func (h *Hierarchy) Parent(index uint32) uint32      { return h.nodes[index].parent }
func (h *Hierarchy) FirstChild(index uint32) uint32  { return h.nodes[index].firstChild }
func (h *Hierarchy) NextSibling(index uint32) uint32 { return h.nodes[index].nextSibling }

// Count returns the number of occupied slots, including the root stub.
func (h *Hierarchy) Count() int { return int(h.count) + 1 }

// Remove detaches index from its siblings, then frees index and every
// descendant via a depth-first walk. The walk's scratch stack comes
// from scratch if non-nil; on exhaustion it silently falls back to a
// heap slice and sets ForcedMalloc.
func (h *Hierarchy) Remove(index uint32, scratch *arena.Arena) {
	if index == HierarchyNull || index == HierarchyRoot {
		return
	}
	h.detach(index)
	h.freeSubtree(index, scratch)
}

func (h *Hierarchy) detach(index uint32) {
	n := h.nodes[index]
	if n.prevSibling != HierarchyNull {
		h.nodes[n.prevSibling].nextSibling = n.nextSibling
	} else if n.parent != HierarchyNull {
		h.nodes[n.parent].firstChild = n.nextSibling
	}
	if n.nextSibling != HierarchyNull {
		h.nodes[n.nextSibling].prevSibling = n.prevSibling
	} else if n.parent != HierarchyNull {
		h.nodes[n.parent].lastChild = n.prevSibling
	}
}

const stackSlotSize = 4 // bytes per uint32 frame on the scratch arena

func (h *Hierarchy) freeSubtree(root uint32, scratch *arena.Arena) {
	var stack []uint32
	usingHeap := false
	push := func(v uint32) {
		if !usingHeap && scratch != nil {
			if buf := scratch.Push(stackSlotSize); buf != nil {
				buf[0], buf[1], buf[2], buf[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
				stack = append(stack, v)
				return
			}
			usingHeap = true
			h.ForcedMalloc = true
		}
		stack = append(stack, v)
	}
	push(root)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := h.nodes[cur]
		if n.firstChild != HierarchyNull {
			for c := n.firstChild; c != HierarchyNull; c = h.nodes[c].nextSibling {
				push(c)
			}
		}
		h.free = append(h.free, cur)
		h.occupied[cur] = false
		h.count--
		h.nodes[cur] = hierarchyNode{}
	}
}

// Walk performs a depth-first traversal from root (HierarchyRoot for
// the whole tree), visiting siblings in insertion order, invoking fn
// for each visited index.
func (h *Hierarchy) Walk(root uint32, fn func(index uint32)) {
	var stack []uint32
	for c := h.nodes[root].firstChild; c != HierarchyNull; c = h.nodes[c].nextSibling {
		stack = append(stack, c)
	}
	// Reverse so children are visited in insertion order with a LIFO stack.
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)

		var children []uint32
		for c := h.nodes[cur].firstChild; c != HierarchyNull; c = h.nodes[c].nextSibling {
			children = append(children, c)
		}
		for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
			children[i], children[j] = children[j], children[i]
		}
		stack = append(stack, children...)
	}
}
