// Package proxy implements the render-proxy forest: a hierarchy of
// transformable nodes carrying authoritative transform/motion state
// plus a per-frame speculatively extrapolated pose, so that rendering
// can run at a frame rate decoupled from a fixed-step simulation.
package proxy

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/kasp-editor/kaspcore/arena"
)

// Flag bits, mirroring the PROXY3D_* bitfield.
type Flag uint32

const (
	FlagNone            Flag = 0
	FlagMoving          Flag = 1 << 0
	FlagSpeculateNone   Flag = 1 << 1
	FlagSpeculateLinear Flag = 1 << 2
	FlagRelative        Flag = 1 << 3
)

// Null and Root are the fixed indices the original reserves for "no
// node" and "the forest's single root stub" respectively.
const (
	Null uint32 = 0
	Root uint32 = 1
)

// Config seeds a newly allocated proxy.
type Config struct {
	NsTime          uint64
	Parent          uint32
	Position        mgl32.Vec3
	Rotation        mgl32.Quat
	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Color           mgl32.Vec4
	Blend           float32
	Mesh            int // strtable handle
}

// Proxy is a single forest node. It carries its own hierarchy links
// inline (mirroring the original's hierarchy_index_node header
// embedded at the top of r_proxy3d) rather than through a separate
// container, so one index always addresses both the node's place in
// the tree and its transform/motion state.
type Proxy struct {
	parent, prevSibling, nextSibling, firstChild, lastChild uint32

	Flags Flag

	// SpecPosition/SpecRotation are derived: recomputed in full by
	// every Extrapolate call from Position/Rotation/velocities plus
	// the current time and, for RELATIVE nodes, the parent's spec
	// pose. They are never read back as authoritative state.
	SpecPosition mgl32.Vec3
	SpecRotation mgl32.Quat

	NsAtUpdate uint64
	Position   mgl32.Vec3
	Rotation   mgl32.Quat

	LinearVelocity  mgl32.Vec3
	AngularVelocity mgl32.Vec3

	Mesh  int
	Color mgl32.Vec4
	Blend float32
}

// Forest is a slotted array of Proxy nodes linked into a tree rooted
// at Root. It follows the same free-list-over-a-flat-array shape as
// container.Hierarchy, specialized so the forest's payload lives
// inline with its links instead of in a second, separately indexed
// pool.
type Forest struct {
	nodes    []Proxy
	occupied []bool
	free     []uint32
	maxCount uint32
	growable bool

	// ForcedMalloc is set the first time a Dealloc's subtree walk
	// exhausts its arena scratch space and falls back to a heap stack.
	ForcedMalloc bool
}

// NewForest creates a forest with room for capacity proxies plus the
// reserved root stub.
func NewForest(capacity int, growable bool) *Forest {
	f := &Forest{growable: growable}
	f.nodes = make([]Proxy, capacity+2)
	f.occupied = make([]bool, capacity+2)
	f.occupied[Root] = true
	f.maxCount = 1
	return f
}

func (f *Forest) reserve() (uint32, bool) {
	if n := len(f.free); n > 0 {
		idx := f.free[n-1]
		f.free = f.free[:n-1]
		f.occupied[idx] = true
		f.nodes[idx] = Proxy{}
		return idx, true
	}
	if int(f.maxCount)+1 >= len(f.nodes) {
		if !f.growable {
			return 0, false
		}
		f.grow()
	}
	idx := f.maxCount + 1
	f.maxCount++
	f.occupied[idx] = true
	return idx, true
}

func (f *Forest) grow() {
	newLen := len(f.nodes) * 2
	nodes := make([]Proxy, newLen)
	occupied := make([]bool, newLen)
	copy(nodes, f.nodes)
	copy(occupied, f.occupied)
	f.nodes, f.occupied = nodes, occupied
}

// Alloc creates a node under config.Parent (Root for a top-level
// node), copies mesh/color/blend, and seeds motion state.
func (f *Forest) Alloc(config Config) (handle uint32, ok bool) {
	parent := config.Parent
	if parent == Null {
		parent = Root
	}
	idx, ok := f.reserve()
	if !ok {
		return 0, false
	}

	flags := FlagNone
	if parent != Root {
		flags |= FlagRelative
	}
	if config.LinearVelocity.Dot(config.LinearVelocity) > 0 || config.AngularVelocity.Dot(config.AngularVelocity) > 0 {
		flags |= FlagMoving
	}

	f.nodes[idx] = Proxy{
		parent:          parent,
		Flags:           flags,
		SpecPosition:    config.Position,
		SpecRotation:    config.Rotation,
		NsAtUpdate:      config.NsTime,
		Position:        config.Position,
		Rotation:        config.Rotation,
		LinearVelocity:  config.LinearVelocity,
		AngularVelocity: config.AngularVelocity,
		Mesh:            config.Mesh,
		Color:           config.Color,
		Blend:           config.Blend,
	}

	p := &f.nodes[parent]
	if p.lastChild != Null {
		f.nodes[p.lastChild].nextSibling = idx
		f.nodes[idx].prevSibling = p.lastChild
		p.lastChild = idx
	} else {
		p.firstChild = idx
		p.lastChild = idx
	}
	return idx, true
}

func (f *Forest) detach(index uint32) {
	n := f.nodes[index]
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
}

const stackSlotSize = 4

// Dealloc detaches handle from its parent/siblings and frees handle
// plus its entire subtree. scratch backs the traversal stack; on
// exhaustion the walk silently falls back to a heap slice and sets
// ForcedMalloc.
func (f *Forest) Dealloc(handle uint32, scratch *arena.Arena) {
	if handle == Null || handle == Root {
		return
	}
	f.detach(handle)

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
			f.ForcedMalloc = true
		}
		stack = append(stack, v)
	}
	push(handle)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.nodes[cur]
		for c := n.firstChild; c != Null; c = f.nodes[c].nextSibling {
			push(c)
		}
		f.free = append(f.free, cur)
		f.occupied[cur] = false
		f.nodes[cur] = Proxy{}
	}
}

// Address returns the proxy at handle, or nil if handle is not live.
func (f *Forest) Address(handle uint32) *Proxy {
	if handle == Null || int(handle) >= len(f.occupied) || !f.occupied[handle] {
		return nil
	}
	return &f.nodes[handle]
}

// Parent returns handle's parent index.
func (f *Forest) Parent(handle uint32) uint32 { return f.nodes[handle].parent }

// SetLinearSpeculation updates a proxy's authoritative transform and
// motion, clearing FlagMoving and then setting it back iff the new
// velocities are non-zero.
func (f *Forest) SetLinearSpeculation(handle uint32, position mgl32.Vec3, rotation mgl32.Quat, linearVelocity, angularVelocity mgl32.Vec3, nsTime uint64) {
	p := f.Address(handle)
	if p == nil {
		return
	}
	p.Position = position
	p.Rotation = rotation
	p.LinearVelocity = linearVelocity
	p.AngularVelocity = angularVelocity
	p.NsAtUpdate = nsTime
	p.Flags &^= FlagMoving
	if linearVelocity.Dot(linearVelocity) > 0 || angularVelocity.Dot(angularVelocity) > 0 {
		p.Flags |= FlagMoving
	}
}

// Walk performs a depth-first traversal from root, visiting siblings
// in insertion order.
func (f *Forest) Walk(root uint32, fn func(index uint32)) {
	var stack []uint32
	var children []uint32
	for c := f.nodes[root].firstChild; c != Null; c = f.nodes[c].nextSibling {
		children = append(children, c)
	}
	for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
		children[i], children[j] = children[j], children[i]
	}
	stack = append(stack, children...)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)

		var kids []uint32
		for c := f.nodes[cur].firstChild; c != Null; c = f.nodes[c].nextSibling {
			kids = append(kids, c)
		}
		for i, j := 0, len(kids)-1; i < j; i, j = i+1, j-1 {
			kids[i], kids[j] = kids[j], kids[i]
		}
		stack = append(stack, kids...)
	}
}

// Extrapolate walks the forest depth-first from the root and
// recomputes every node's SpecPosition/SpecRotation from authoritative
// state, current time nowNs, and (for RELATIVE nodes) the parent's
// just-recomputed spec pose.
func (f *Forest) Extrapolate(nowNs uint64) {
	f.Walk(Root, func(idx uint32) {
		p := &f.nodes[idx]
		if p.Flags&FlagMoving != 0 {
			dt := float32(nowNs-p.NsAtUpdate) / 1e9
			p.SpecPosition = p.Position.Add(p.LinearVelocity.Mul(dt))
			omega := mgl32.Quat{W: 0, V: p.AngularVelocity}
			deriv := omega.Mul(p.Rotation)
			sum := mgl32.Quat{
				W: p.Rotation.W + 0.5*dt*deriv.W,
				V: p.Rotation.V.Add(deriv.V.Mul(0.5 * dt)),
			}
			p.SpecRotation = sum.Normalize()
		} else {
			p.SpecPosition = p.Position
			p.SpecRotation = p.Rotation
		}

		if p.Flags&FlagRelative != 0 {
			if pp := f.Address(p.parent); pp != nil {
				p.SpecPosition = p.SpecPosition.Add(pp.SpecPosition)
				p.SpecRotation = p.SpecRotation.Mul(pp.SpecRotation).Normalize()
			}
		}
	})
}
