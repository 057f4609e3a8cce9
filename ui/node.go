// Package ui implements the immediate-mode-flavored, retained-storage
// UI engine: a keyed per-frame node tree, semantic per-axis sizing,
// a three-pass autolayout with violation solving, hit-testing and an
// interaction state machine, text layout and editing, and draw bucket
// emission feeding the render frame pipeline.
//
// The original drives node creation through global push/pop attribute
// stacks (stack_ui_size, stack_flags, stack_child_layout_axis, ...) —
// natural in a single-threaded C immediate-mode library, but global
// mutable stack state has no idiomatic Go equivalent and would fight
// the rest of this module's explicit-parameter style. NodeAlloc here
// takes a NodeConfig value instead; callers compose it the way the
// original's macros compose pushed attributes. See DESIGN.md.
package ui

import "math"

// Axis indexes the two layout axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisCount
)

// SizeType is a node's semantic size kind for one axis.
type SizeType int

const (
	SizeNone SizeType = iota
	SizePixel
	SizePercParent
	SizeUnit
	SizeChildSum
	SizeText
)

// Size is the semantic size of one node axis.
type Size struct {
	Type       SizeType
	Strictness float32 // lower bound of final size, as a fraction of computed size
	Value      float32 // pixels, percentage (0..1), or line width, depending on Type
	UnitLow    float32 // UI_SIZE_UNIT: viewable unit interval
	UnitHigh   float32
}

func SizePixelOf(pixels, strictness float32) Size {
	return Size{Type: SizePixel, Value: pixels, Strictness: strictness}
}
func SizePercOf(percentage float32) Size { return Size{Type: SizePercParent, Value: percentage} }
func SizeChildSumOf(strictness float32) Size {
	return Size{Type: SizeChildSum, Strictness: strictness}
}
func SizeUnitOf(low, high float32) Size { return Size{Type: SizeUnit, UnitLow: low, UnitHigh: high} }
func SizeTextOf(lineWidth, strictness float32) Size {
	return Size{Type: SizeText, Value: lineWidth, Strictness: strictness}
}

// Flag bits, a subset of UI_* chosen to cover the spec's described
// behavior: draw flags, interaction flags, and layout control flags.
type Flag uint64

const (
	FlagNone Flag = 0

	DrawBackground Flag = 1 << 0
	DrawBorder     Flag = 1 << 1
	DrawText       Flag = 1 << 2

	InterHover      Flag = 1 << 10
	InterLeftClick  Flag = 1 << 11
	InterDoubleClick Flag = 1 << 12
	InterDrag       Flag = 1 << 13
	InterScroll     Flag = 1 << 14
	InterFlags      = InterHover | InterLeftClick | InterDoubleClick | InterDrag | InterScroll

	TextAllowOverflow Flag = 1 << 20

	AllowViolationX Flag = 1 << 30
	AllowViolationY Flag = 1 << 31
	FloatingX       Flag = 1 << 32
	FloatingY       Flag = 1 << 33
	FixedX          Flag = 1 << 34
	FixedY          Flag = 1 << 35

	// percPostponedX/Y are implicit: set by the layout pass itself when
	// a PERC_PARENT axis is waiting on a CHILDSUM parent. Callers never
	// set these.
	percPostponedX Flag = 1 << 50
	percPostponedY Flag = 1 << 51
)

func (f Flag) floating(axis Axis) bool {
	if axis == AxisX {
		return f&FloatingX != 0
	}
	return f&FloatingY != 0
}
func (f Flag) fixed(axis Axis) bool {
	if axis == AxisX {
		return f&FixedX != 0
	}
	return f&FixedY != 0
}
func (f Flag) allowViolation(axis Axis) bool {
	if axis == AxisX {
		return f&AllowViolationX != 0
	}
	return f&AllowViolationY != 0
}
func (f *Flag) setPercPostponed(axis Axis) {
	if axis == AxisX {
		*f |= percPostponedX
	} else {
		*f |= percPostponedY
	}
}
func (f Flag) percPostponed(axis Axis) bool {
	if axis == AxisX {
		return f&percPostponedX != 0
	}
	return f&percPostponedY != 0
}

// Null is the reserved "no node" index; Root is the fixed root stub
// every frame reuses.
const (
	Null uint32 = 0
	Root uint32 = 1
)

// Node is one element of the UI tree. Its hierarchy links are inlined
// (see proxy.Proxy for the same rationale).
type Node struct {
	parent, prevSibling, nextSibling, firstChild, lastChild uint32

	Key   uint64 // hash of ID, used for the persistent node map
	ID    string // stable identity (after "###", or the whole string if absent)
	Label string // display text (before "###")

	Flags           Flag
	Size            [AxisCount]Size
	ChildLayoutAxis Axis

	// FloatingPos is read only for a FLOATING axis: the absolute
	// position pushed by the caller at alloc time.
	FloatingPos [AxisCount]float32

	// computedSize/localPos are layout outputs.
	computedSize [AxisCount]float32
	localPos     [AxisCount]float32 // offset within the parent, post-violation
	PixelPos     [AxisCount]float32 // final world position, post-violation
	PixelSize    [AxisCount]float32 // final world size, post-violation

	pixelVisibleLow, pixelVisibleHigh [AxisCount]float32

	Text       string
	TextLayout *TextLayout

	BackgroundColor [4]float32
	BorderColor     [4]float32
	SpriteID        uint32

	touchedFrame uint64
	depth        int
}

// NodeConfig seeds NodeAlloc; see the package doc for why this
// replaces the original's push/pop attribute stacks.
type NodeConfig struct {
	Parent          uint32
	Flags           Flag
	FormattedID     string // "Label###stable_id", or just "stable_id"
	Size            [AxisCount]Size
	ChildLayoutAxis Axis
	FloatingPos     [AxisCount]float32
	BackgroundColor [4]float32
	BorderColor     [4]float32
	SpriteID        uint32
	Font            *Font // for SizeText nodes
}

// splitFormattedID splits "display###stable" into (display, stable).
// With no "###", the whole string is both the label and the id.
func splitFormattedID(formatted string) (label, id string) {
	for i := 0; i+2 < len(formatted); i++ {
		if formatted[i] == '#' && formatted[i+1] == '#' && formatted[i+2] == '#' {
			return formatted[:i], formatted[i+3:]
		}
	}
	return formatted, formatted
}

func hashID(id string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= 1099511628211
	}
	return h
}

// Frame is a per-window UI tree, persistent across frames: node
// identity survives frame to frame by hashed id, so widgets can carry
// local state (hover, scroll offset, text cursor) without the caller
// threading it through explicitly.
type Frame struct {
	nodes    []Node
	occupied []bool
	free     []uint32
	maxCount uint32

	byKey map[uint64]uint32

	frame      uint64
	WindowSize [2]float32

	Interaction Interaction
	TextEdit    TextEditState

	Buckets []DrawBucket
}

// NewFrame creates an empty UI frame tree with room for capacity nodes
// plus the reserved root stub.
func NewFrame(capacity int) *Frame {
	f := &Frame{byKey: make(map[uint64]uint32)}
	f.nodes = make([]Node, capacity+2)
	f.occupied = make([]bool, capacity+2)
	f.occupied[Root] = true
	f.maxCount = 1
	return f
}

func (f *Frame) reserve() (uint32, bool) {
	if n := len(f.free); n > 0 {
		idx := f.free[n-1]
		f.free = f.free[:n-1]
		f.occupied[idx] = true
		f.nodes[idx] = Node{}
		return idx, true
	}
	if int(f.maxCount)+1 >= len(f.nodes) {
		f.grow()
	}
	idx := f.maxCount + 1
	f.maxCount++
	f.occupied[idx] = true
	return idx, true
}

func (f *Frame) grow() {
	newLen := len(f.nodes)*2 + 1
	nodes := make([]Node, newLen)
	occupied := make([]bool, newLen)
	copy(nodes, f.nodes)
	copy(occupied, f.occupied)
	f.nodes, f.occupied = nodes, occupied
}

// FrameBegin resets the root node for a new frame. Window size becomes
// the root's size. Root keeps its child links; children not touched
// this frame are unlinked by FrameEnd's prune.
func (f *Frame) FrameBegin(windowSize [2]float32) {
	f.frame++
	f.WindowSize = windowSize
	root := &f.nodes[Root]
	root.touchedFrame = f.frame
	root.computedSize = [AxisCount]float32{windowSize[0], windowSize[1]}
	root.PixelSize = root.computedSize
}

// NodeAlloc looks config.FormattedID's stable id up in the persistent
// node map. On hit, the existing node is refreshed (parent link,
// flags, size, text) and marked touched. On miss, a new node is
// allocated and linked under config.Parent (Root if zero).
func (f *Frame) NodeAlloc(config NodeConfig) uint32 {
	label, id := splitFormattedID(config.FormattedID)
	key := hashID(id)
	parent := config.Parent
	if parent == Null {
		parent = Root
	}

	if idx, ok := f.byKey[key]; ok && f.occupied[idx] {
		n := &f.nodes[idx]
		if n.parent != parent {
			f.unlinkFromParent(idx)
			f.linkUnderParent(idx, parent)
		}
		f.refresh(n, label, id, config)
		return idx
	}

	idx, _ := f.reserve()
	n := &f.nodes[idx]
	*n = Node{Key: key}
	f.linkUnderParent(idx, parent)
	f.refresh(n, label, id, config)
	f.byKey[key] = idx
	return idx
}

func (f *Frame) linkUnderParent(idx, parent uint32) {
	f.nodes[idx].parent = parent
	f.nodes[idx].depth = f.nodes[parent].depth + 1
	p := &f.nodes[parent]
	if p.lastChild != Null {
		f.nodes[p.lastChild].nextSibling = idx
		f.nodes[idx].prevSibling = p.lastChild
		p.lastChild = idx
	} else {
		p.firstChild = idx
		p.lastChild = idx
	}
}

func (f *Frame) unlinkFromParent(idx uint32) {
	n := &f.nodes[idx]
	if n.prevSibling != Null {
		f.nodes[n.prevSibling].nextSibling = n.nextSibling
	} else if n.parent != Null {
		f.nodes[n.parent].firstChild = n.nextSibling
	}
	if n.nextSibling != Null {
		f.nodes[n.nextSibling].prevSibling = n.prevSibling
	} else if n.parent != Null {
		f.nodes[n.parent].lastChild = n.prevSibling
	}
	n.prevSibling, n.nextSibling = Null, Null
}

func (f *Frame) refresh(n *Node, label, id string, config NodeConfig) {
	n.ID = id
	n.Label = label
	n.Text = label
	n.Flags = config.Flags
	n.Size = config.Size
	n.ChildLayoutAxis = config.ChildLayoutAxis
	n.FloatingPos = config.FloatingPos
	n.BackgroundColor = config.BackgroundColor
	n.BorderColor = config.BorderColor
	n.SpriteID = config.SpriteID
	n.touchedFrame = f.frame

	if config.Size[AxisX].Type == SizeText || config.Size[AxisY].Type == SizeText {
		maxWidth := float32(math.MaxFloat32)
		if n.Flags&TextAllowOverflow == 0 {
			if w := config.Size[AxisX].Value; w > 0 {
				maxWidth = w
			}
		}
		n.TextLayout = LayoutText(config.Font, n.Text, maxWidth)
	}
}

// PixelVisible returns the node's final visible interval, clipped
// against every ancestor's own visible interval and violation-solved
// size.
func (n *Node) PixelVisible() (low, high [2]float32) {
	return n.pixelVisibleLow, n.pixelVisibleHigh
}

// Node returns the node at index, or nil if it is out of range.
func (f *Frame) Node(index uint32) *Node {
	if index == Null || int(index) >= len(f.occupied) || !f.occupied[index] {
		return nil
	}
	return &f.nodes[index]
}

// Walk visits nodes depth-first from root, siblings in insertion order.
func (f *Frame) Walk(root uint32, fn func(index uint32, n *Node)) {
	var stack []uint32
	push := func(parent uint32) {
		var kids []uint32
		for c := f.nodes[parent].firstChild; c != Null; c = f.nodes[c].nextSibling {
			kids = append(kids, c)
		}
		for i, j := 0, len(kids)-1; i < j; i, j = i+1, j-1 {
			kids[i], kids[j] = kids[j], kids[i]
		}
		stack = append(stack, kids...)
	}
	push(root)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur, &f.nodes[cur])
		push(cur)
	}
}

// WalkPostOrder visits nodes depth-first, children before parent.
func (f *Frame) WalkPostOrder(root uint32, fn func(index uint32, n *Node)) {
	var children []uint32
	for c := f.nodes[root].firstChild; c != Null; c = f.nodes[c].nextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		f.WalkPostOrder(c, fn)
	}
	if root != Root {
		fn(root, &f.nodes[root])
	}
}

// FrameEnd prunes nodes not touched this frame, runs autolayout, hit
// testing, and draw bucket emission.
func (f *Frame) FrameEnd() {
	f.prune()
	f.layout()
	f.hitTest()
	f.emitBuckets()
}

func (f *Frame) prune() {
	for key, idx := range f.byKey {
		if !f.occupied[idx] {
			delete(f.byKey, key)
			continue
		}
		if f.nodes[idx].touchedFrame != f.frame {
			f.unlinkFromParent(idx)
			f.free = append(f.free, idx)
			f.occupied[idx] = false
			delete(f.byKey, key)
		}
	}
}
