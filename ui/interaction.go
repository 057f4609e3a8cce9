package ui

// MouseButton indexes the interaction model's tracked buttons.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseButtonCount
)

// ButtonState is one mouse button's per-frame edge/level state.
type ButtonState struct {
	Pressed      bool // level: currently held
	Clicked      bool // edge: pressed this frame
	Released     bool // edge: released this frame
	DoubleClicked bool // edge: second click landed within NsDoubleClick
}

// KeyEdge is one keyboard key's per-frame edge/level state, read from
// the platform once per frame (spec §4.G: "input state ... is read
// once per frame").
type KeyEdge struct {
	Pressed  bool
	Clicked  bool
	Released bool
}

// MouseState is the raw per-frame input the caller supplies to
// Interaction.Update; windowing and input delivery are out of this
// core's scope (spec §1), so the shape here is a plain struct the
// front end fills from its own event loop.
type MouseState struct {
	Position    [2]float32
	Delta       [2]float32
	Buttons     [MouseButtonCount]bool
	ScrollUp    uint32
	ScrollDown  uint32
}

// KeyboardState is the raw per-frame keyboard input.
type KeyboardState struct {
	Pressed map[int]bool // keycode -> currently held
}

// Interaction is the persistent+per-frame interaction model: hover,
// active, click/double-click detection, drag accumulation, and the
// input snapshot read once per frame.
type Interaction struct {
	NsDoubleClick uint64 // window, in ns, for double-click recognition

	Mouse    MouseState
	Keyboard KeyboardState

	Hovered uint32 // node index, Null if none
	Active  uint32 // node index held down since last left click

	dragOrigin   [2]float32
	DragDelta    [2]float32

	nsLastClick [MouseButtonCount]uint64
	buttonState [MouseButtonCount]ButtonState

	FloatingStack []uint32 // nodes pushed during Build, hit-tested first
}

// Update ingests one frame's raw input and the current wall-clock
// time (ns), refreshing click/double-click/release edges ahead of
// FrameEnd's hit test.
func (in *Interaction) Update(mouse MouseState, keyboard KeyboardState, nowNs uint64) {
	for b := MouseLeft; b < MouseButtonCount; b++ {
		wasPressed := in.buttonState[b].Pressed
		isPressed := mouse.Buttons[b]
		st := ButtonState{Pressed: isPressed}
		if isPressed && !wasPressed {
			st.Clicked = true
			if in.nsLastClick[b] != 0 && nowNs-in.nsLastClick[b] <= in.NsDoubleClick {
				st.DoubleClicked = true
			}
			in.nsLastClick[b] = nowNs
		}
		if !isPressed && wasPressed {
			st.Released = true
		}
		in.buttonState[b] = st
	}
	in.Mouse = mouse
	in.Keyboard = keyboard
}

func (in *Interaction) button(b MouseButton) ButtonState { return in.buttonState[b] }

// hitTest performs a top-down traversal prioritizing floating nodes
// (those pushed during Build), selecting the first node whose visible
// rect contains the cursor and whose flags include an INTER_* bit as
// hovered, then propagates click/active/drag state onto it.
func (f *Frame) hitTest() {
	cursor := f.Interaction.Mouse.Position
	var hit uint32 = Null

	for i := len(f.Interaction.FloatingStack) - 1; i >= 0 && hit == Null; i-- {
		hit = f.testNode(f.Interaction.FloatingStack[i], cursor)
	}
	if hit == Null {
		hit = f.testNode(Root, cursor)
	}

	f.Interaction.Hovered = hit
	left := f.Interaction.button(MouseLeft)

	if hit != Null && left.Clicked {
		f.Interaction.Active = hit
		f.Interaction.dragOrigin = cursor
		f.Interaction.DragDelta = [2]float32{0, 0}
	}
	if f.Interaction.Active != Null {
		if left.Pressed {
			f.Interaction.DragDelta = [2]float32{
				cursor[0] - f.Interaction.dragOrigin[0],
				cursor[1] - f.Interaction.dragOrigin[1],
			}
		}
		if left.Released {
			f.Interaction.Active = Null
			f.Interaction.DragDelta = [2]float32{0, 0}
		}
	}
}

// testNode walks root's subtree depth-first looking for the deepest,
// last-drawn node under cursor with an INTER_* flag; children are
// preferred over their parent since they draw on top.
func (f *Frame) testNode(root uint32, cursor [2]float32) uint32 {
	n := f.Node(root)
	if n == nil {
		return Null
	}

	for c := n.lastChild; c != Null; c = f.nodes[c].prevSibling {
		if hit := f.testNode(c, cursor); hit != Null {
			return hit
		}
	}

	if n.Flags&InterFlags == 0 {
		return Null
	}
	lo, hi := n.PixelVisible()
	if cursor[0] >= lo[0] && cursor[0] <= hi[0] && cursor[1] >= lo[1] && cursor[1] <= hi[1] {
		return root
	}
	return Null
}

// TextEditState points at the node currently holding keyboard focus
// for text editing: an owning node id, its text buffer, and a
// selection expressed as [cursor, mark) in either order.
type TextEditState struct {
	NodeID string
	Text   []rune
	Cursor uint32
	Mark   uint32
}

// TextOp is the result of one text-input command: a clipboard copy
// request and/or a replacement of [Low, High) with Replace, plus the
// resulting cursor/mark. Mirrors struct text_op.
type TextOp struct {
	Copy    string
	Replace string
	Low     uint32
	High    uint32
	Cursor  uint32
	Mark    uint32
}

// Apply performs a text_op against the edit state's buffer: the
// half-open range [op.Low, op.High) is replaced by op.Replace (which
// may be empty), and cursor/mark are set from the op.
func (s *TextEditState) Apply(op TextOp) {
	if op.High > uint32(len(s.Text)) {
		op.High = uint32(len(s.Text))
	}
	if op.Low > op.High {
		op.Low = op.High
	}
	replacement := []rune(op.Replace)
	out := make([]rune, 0, len(s.Text)-int(op.High-op.Low)+len(replacement))
	out = append(out, s.Text[:op.Low]...)
	out = append(out, replacement...)
	out = append(out, s.Text[op.High:]...)
	s.Text = out
	s.Cursor = op.Cursor
	s.Mark = op.Mark
}

func (s *TextEditState) String() string { return string(s.Text) }
