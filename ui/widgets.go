package ui

// List is a thin state struct driving node allocation for a
// virtualized entry list: only entries whose axis-size position
// intersects the visible pixel interval are materialized as nodes,
// matching ui_list's visible-interval gating.
type List struct {
	Axis           Axis
	AxisPixelSize  float32
	EntryPixelSize float32
	ScrollOffset   float32
}

// NewList mirrors ui_list_init.
func NewList(axis Axis, axisPixelSize, entryPixelSize float32) *List {
	return &List{Axis: axis, AxisPixelSize: axisPixelSize, EntryPixelSize: entryPixelSize}
}

// VisibleRange returns the half-open [low, high) entry indices that
// intersect the list's current visible interval, out of entryCount
// total entries.
func (l *List) VisibleRange(entryCount int) (low, high int) {
	if l.EntryPixelSize <= 0 || entryCount == 0 {
		return 0, 0
	}
	low = int(l.ScrollOffset / l.EntryPixelSize)
	high = low + int(l.AxisPixelSize/l.EntryPixelSize) + 2 // partial row plus one extra row of slop past the far edge
	if low < 0 {
		low = 0
	}
	if high > entryCount {
		high = entryCount
	}
	if low > high {
		low = high
	}
	return low, high
}

// EntryAlloc allocates (or refreshes) the node for one visible list
// entry, positioned via a FLOATING offset along the list axis derived
// from index and scroll offset — entries outside VisibleRange are
// simply never allocated, so they cost nothing this frame.
func (f *Frame) EntryAlloc(l *List, parent uint32, formattedID string, index int) uint32 {
	pos := float32(index)*l.EntryPixelSize - l.ScrollOffset
	var floating [AxisCount]float32
	floating[l.Axis] = pos
	flags := FloatingX
	if l.Axis == AxisY {
		flags = FloatingY
	}
	return f.NodeAlloc(NodeConfig{
		Parent:      parent,
		Flags:       flags,
		FormattedID: formattedID,
		FloatingPos: floating,
		Size: [AxisCount]Size{
			AxisX: SizePixelOf(l.AxisPixelSize, 1),
			AxisY: SizePixelOf(l.EntryPixelSize, 1),
		},
	})
}

// Tick is one labeled subdivision of a Timeline's interval.
type Tick struct {
	Value float32
	Label string
}

// Timeline subdivides [Low, High] into evenly spaced tick marks,
// chosen so that approximately PreferredTickCount ticks appear,
// matching ui_timeline's unit-line subdivision.
type Timeline struct {
	Low, High         float32
	PreferredTickCount int
}

// Ticks returns evenly spaced tick values covering the timeline's
// interval at a 1, 2 or 5 times 10^n step (see niceStep), chosen so the
// resulting count is close to PreferredTickCount. Tick.Label is left
// empty.
func (t *Timeline) Ticks() []Tick {
	span := t.High - t.Low
	if span <= 0 || t.PreferredTickCount <= 0 {
		return nil
	}
	rawStep := span / float32(t.PreferredTickCount)
	step := niceStep(rawStep)

	var ticks []Tick
	start := float32(int(t.Low/step)) * step
	for v := start; v <= t.High+step*0.5; v += step {
		if v < t.Low {
			continue
		}
		ticks = append(ticks, Tick{Value: v})
	}
	return ticks
}

// niceStep rounds raw up to the nearest 1/2/5 * 10^n, the classic
// "nice numbers" axis-tick heuristic.
func niceStep(raw float32) float32 {
	if raw <= 0 {
		return 1
	}
	exp := float32(1)
	for raw >= 10 {
		raw /= 10
		exp *= 10
	}
	for raw < 1 {
		raw *= 10
		exp /= 10
	}
	switch {
	case raw <= 1:
		return 1 * exp
	case raw <= 2:
		return 2 * exp
	case raw <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

// PopupState is a popup's finite-state machine state.
type PopupState int

const (
	PopupNull PopupState = iota
	PopupRunning
	PopupPendingVerification
	PopupCompleted
)

// Popup is a modal dialog's state machine; the owning caller drives
// transitions by calling Begin/Verify/Complete and reads State to
// decide whether to keep showing the dialog.
type Popup struct {
	State  PopupState
	Result any
}

// Begin transitions an idle popup to Running; a no-op if already
// running or pending.
func (p *Popup) Begin() {
	if p.State == PopupNull || p.State == PopupCompleted {
		p.State = PopupRunning
		p.Result = nil
	}
}

// RequestVerification moves a running popup to
// PendingVerification — e.g. the user submitted a form that needs an
// async check before the popup can close.
func (p *Popup) RequestVerification() {
	if p.State == PopupRunning {
		p.State = PopupPendingVerification
	}
}

// Complete finalizes a pending (or running) popup with a result.
func (p *Popup) Complete(result any) {
	if p.State == PopupRunning || p.State == PopupPendingVerification {
		p.State = PopupCompleted
		p.Result = result
	}
}

// Reset returns the popup to its idle state.
func (p *Popup) Reset() { *p = Popup{} }

// CommandConsole is a text input whose commit hands a parsed line to
// an external handler; command lookup/completion/registration live
// outside the core (spec §4.G, §6).
type CommandConsole struct {
	History []string
	Input   string
	OnCommit func(line string)
}

// Commit appends Input to history and invokes OnCommit, then clears
// Input for the next line.
func (c *CommandConsole) Commit() {
	if c.Input == "" {
		return
	}
	c.History = append(c.History, c.Input)
	if c.OnCommit != nil {
		c.OnCommit(c.Input)
	}
	c.Input = ""
}
