package ui

// layout runs the three deterministic autolayout passes described in
// the package doc and spec §9: (1) immediate PIXEL/UNIT/TEXT and
// non-deferred PERC_PARENT sizes (TEXT layouts themselves were built
// at NodeAlloc time in refresh), (2) post-order CHILDSUM resolution
// plus deferred PERC_PARENT, then (3) violation solving and final
// pixel positions, top-down from Root.
func (f *Frame) layout() {
	f.resolveImmediateSizes(Root)
	f.WalkPostOrder(Root, func(idx uint32, n *Node) {
		f.resolveChildSum(idx, n)
	})
	root := &f.nodes[Root]
	root.PixelPos = [AxisCount]float32{0, 0}
	root.PixelSize = root.computedSize
	root.pixelVisibleLow = [AxisCount]float32{0, 0}
	root.pixelVisibleHigh = root.computedSize
	f.solveSubtree(Root)
}

// resolveImmediateSizes fills PIXEL/UNIT sizes (trivial) and marks
// PERC_PARENT axes whose parent is CHILDSUM on that axis as postponed,
// so the post-order pass below can resolve them once the parent's own
// CHILDSUM size is known. TEXT nodes were already sized in refresh.
func (f *Frame) resolveImmediateSizes(root uint32) {
	f.Walk(root, func(idx uint32, n *Node) {
		parent := f.nodes[n.parent]
		for axis := AxisX; axis < AxisCount; axis++ {
			switch n.Size[axis].Type {
			case SizePixel:
				n.computedSize[axis] = n.Size[axis].Value
			case SizeUnit:
				lo, hi := n.Size[axis].UnitLow, n.Size[axis].UnitHigh
				n.computedSize[axis] = hi - lo
			case SizeText:
				if n.TextLayout != nil {
					n.computedSize[axis] = n.TextLayout.Size[axis]
				}
			case SizePercParent:
				if parent.ChildLayoutAxis == axis && parent.Size[axis].Type == SizeChildSum {
					n.Flags.setPercPostponed(axis)
				} else {
					n.computedSize[axis] = parent.computedSize[axis] * n.Size[axis].Value
				}
			}
		}
	})
}

// resolveChildSum computes CHILDSUM sizes bottom-up (children are
// visited before parents by WalkPostOrder) and then resolves every
// child PERC_PARENT axis that was postponed because this node is
// CHILDSUM on that axis, against this node's now-known size.
func (f *Frame) resolveChildSum(idx uint32, n *Node) {
	for axis := AxisX; axis < AxisCount; axis++ {
		if n.Size[axis].Type != SizeChildSum {
			continue
		}
		var sum float32
		for c := n.firstChild; c != Null; c = f.nodes[c].nextSibling {
			child := &f.nodes[c]
			if axis == n.ChildLayoutAxis {
				sum += child.computedSize[axis]
			} else if child.computedSize[axis] > sum {
				sum = child.computedSize[axis]
			}
		}
		n.computedSize[axis] = sum
	}

	for c := n.firstChild; c != Null; c = f.nodes[c].nextSibling {
		child := &f.nodes[c]
		for axis := AxisX; axis < AxisCount; axis++ {
			if child.Flags.percPostponed(axis) {
				child.computedSize[axis] = n.computedSize[axis] * child.Size[axis].Value
			}
		}
	}
}

// solveSubtree runs violation solving for parent's direct children on
// each axis, then recurses with each child's now-final PixelPos/Size
// as the next level's parent box. Order is top-down so a cascading
// shrink at one level is visible to the next level's solve.
func (f *Frame) solveSubtree(parent uint32) {
	p := &f.nodes[parent]
	var children []uint32
	for c := p.firstChild; c != Null; c = f.nodes[c].nextSibling {
		children = append(children, c)
	}
	if len(children) == 0 {
		return
	}

	sizes := make([][AxisCount]float32, len(children))
	for i, c := range children {
		sizes[i] = f.nodes[c].computedSize
	}

	for axis := AxisX; axis < AxisCount; axis++ {
		if axis != p.ChildLayoutAxis {
			continue
		}
		solveViolations(f, children, sizes, axis, p.computedSize[axis])
	}

	// Position layout: compact along ChildLayoutAxis in order, except
	// FLOATING children (absolute pushed position) and FIXED children
	// (excluded from compaction but still occupy their solved size).
	var cursor float32
	for i, c := range children {
		n := &f.nodes[c]
		for axis := AxisX; axis < AxisCount; axis++ {
			n.PixelSize[axis] = sizes[i][axis]
		}

		for axis := AxisX; axis < AxisCount; axis++ {
			switch {
			case n.Flags.floating(axis):
				n.localPos[axis] = n.FloatingPos[axis]
			case axis == p.ChildLayoutAxis && !n.Flags.fixed(axis):
				n.localPos[axis] = cursor
			default:
				n.localPos[axis] = 0
			}
			n.PixelPos[axis] = p.PixelPos[axis] + n.localPos[axis]
		}
		if p.ChildLayoutAxis == AxisX || p.ChildLayoutAxis == AxisY {
			if !n.Flags.floating(p.ChildLayoutAxis) && !n.Flags.fixed(p.ChildLayoutAxis) {
				cursor += sizes[i][p.ChildLayoutAxis]
			}
		}

		n.pixelVisibleLow, n.pixelVisibleHigh = clipVisible(p, n)
	}

	for _, c := range children {
		f.solveSubtree(c)
	}
}

// clipVisible intersects a child's own box with its parent's visible
// interval, so nested overflow clips correctly even when a deeper
// ancestor is the one that overflowed (spec §4.G: "the parent's
// pixel_visible interval clips drawing accordingly").
func clipVisible(p, n *Node) (low, high [2]float32) {
	for axis := AxisX; axis < AxisCount; axis++ {
		nl := n.PixelPos[axis]
		nh := n.PixelPos[axis] + n.PixelSize[axis]
		if nl < p.pixelVisibleLow[axis] {
			nl = p.pixelVisibleLow[axis]
		}
		if nh > p.pixelVisibleHigh[axis] {
			nh = p.pixelVisibleHigh[axis]
		}
		if nh < nl {
			nh = nl
		}
		low[axis], high[axis] = nl, nh
	}
	return low, high
}

// solveViolations shrinks children's sizes (in place, via sizes) along
// axis in proportion to (1 - strictness) when their sum exceeds
// available; children with ALLOW_VIOLATION are excluded from shrinking
// entirely. The loop runs at most once per non-strict child, matching
// the spec's "iterates up to the number of non-strict children" bound.
func solveViolations(f *Frame, children []uint32, sizes [][AxisCount]float32, axis Axis, available float32) {
	shrinkable := make([]bool, len(children))
	nonStrict := 0
	for i, c := range children {
		n := &f.nodes[c]
		if n.Flags.allowViolation(axis) {
			continue
		}
		shrinkable[i] = true
		nonStrict++
	}

	for iter := 0; iter < nonStrict; iter++ {
		var sum float32
		for _, s := range sizes {
			sum += s[axis]
		}
		overflow := sum - available
		if overflow <= 0 {
			return
		}

		var weight float32
		for i, c := range children {
			if !shrinkable[i] {
				continue
			}
			n := &f.nodes[c]
			weight += (1 - n.Size[axis].Strictness) * sizes[i][axis]
		}
		if weight <= 0 {
			return // every remaining child is at its strictness floor
		}

		anyShrunk := false
		for i, c := range children {
			if !shrinkable[i] {
				continue
			}
			n := &f.nodes[c]
			share := (1 - n.Size[axis].Strictness) * sizes[i][axis] / weight * overflow
			floor := n.Size[axis].Strictness * sizes[i][axis]
			newSize := sizes[i][axis] - share
			if newSize < floor {
				newSize = floor
				shrinkable[i] = false
			}
			if newSize != sizes[i][axis] {
				anyShrunk = true
			}
			sizes[i][axis] = newSize
		}
		if !anyShrunk {
			return
		}
	}
}
