package entity

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/kasp-editor/kaspcore/arena"
	"github.com/kasp-editor/kaspcore/proxy"
	"github.com/kasp-editor/kaspcore/strtable"
)

// NodeDatabase composes a proxy.Forest with a strtable of node names,
// so editor-facing code can address a spawned object by its name
// instead of carrying the raw forest handle around.
type NodeDatabase struct {
	Forest      *proxy.Forest
	names       *strtable.Table
	byNode      map[uint32]int // forest handle -> name handle, for despawn
	nameHandles map[int]uint32 // name handle -> forest handle
}

// NewNodeDatabase creates a node database over capacity proxies.
func NewNodeDatabase(capacity int, growable bool) *NodeDatabase {
	return &NodeDatabase{
		Forest:      proxy.NewForest(capacity, growable),
		names:       strtable.New(growable),
		byNode:      make(map[uint32]int),
		nameHandles: make(map[int]uint32),
	}
}

// Spawn interns name and allocates a proxy node for it. A known
// parentName overrides config.Parent with that node's handle; an empty
// or unknown parentName leaves config.Parent as given.
func (d *NodeDatabase) Spawn(name string, parentName string, config proxy.Config) (uint32, bool) {
	if parent, ok := d.names.Lookup(parentName); ok {
		if parentHandle, ok := d.resolveHandle(parent); ok {
			config.Parent = parentHandle
		}
	}

	handle, ok := d.Forest.Alloc(config)
	if !ok {
		return 0, false
	}

	if _, exists := d.names.Lookup(name); !exists {
		nameHandle, _ := d.names.Add(name)
		d.nameToHandle(nameHandle, handle)
	}
	return handle, true
}

// nameToHandle records the bidirectional name<->forest handle link;
// names and forest handles are allocated from independent handle
// spaces so both directions need their own map.
func (d *NodeDatabase) nameToHandle(nameHandle int, forestHandle uint32) {
	d.nameHandles[nameHandle] = forestHandle
	d.byNode[forestHandle] = nameHandle
}

func (d *NodeDatabase) resolveHandle(nameHandle int) (uint32, bool) {
	h, ok := d.nameHandles[nameHandle]
	return h, ok
}

// ByName returns the forest handle for a previously spawned name.
func (d *NodeDatabase) ByName(name string) (uint32, bool) {
	nameHandle, ok := d.names.Lookup(name)
	if !ok {
		return 0, false
	}
	return d.resolveHandle(nameHandle)
}

// Despawn frees handle's subtree (and every descendant) and releases
// its interned name. scratch backs the hierarchy-removal traversal
// stack; pass a throwaway arena when the caller has no per-frame one.
func (d *NodeDatabase) Despawn(handle uint32, scratch *arena.Arena) {
	d.Forest.Dealloc(handle, scratch)
	if nameHandle, ok := d.byNode[handle]; ok {
		if name, ok := d.names.Value(nameHandle); ok {
			d.names.Remove(name)
		}
		delete(d.nameHandles, nameHandle)
		delete(d.byNode, handle)
	}
}

// SetPose updates handle's authoritative transform and motion, for
// example after a simulation step, keyed by the world-space pose the
// proxy forest extrapolates from.
func (d *NodeDatabase) SetPose(handle uint32, position mgl32.Vec3, rotation mgl32.Quat, linearVelocity, angularVelocity mgl32.Vec3, nsTime uint64) {
	d.Forest.SetLinearSpeculation(handle, position, rotation, linearVelocity, angularVelocity, nsTime)
}
