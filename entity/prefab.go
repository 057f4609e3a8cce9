package entity

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/kasp-editor/kaspcore/proxy"
	"github.com/kasp-editor/kaspcore/strtable"
)

// Prefab is a named template for spawning proxies: a shape plus the
// default color/blend an instance gets when no override is supplied,
// mirroring teacher's VoxelObjectDef.
type Prefab struct {
	ShapeHandle int
	Color       mgl32.Vec4
	Blend       float32
}

// PrefabDatabase interns prefab names and composes NodeDatabase +
// ShapeDatabase so the editor can spawn an object by prefab name
// instead of filling in a proxy.Config by hand each time, the same
// "def -> spawned instance" shape teacher's mod_presets.go uses for
// SceneDef/VoxelObjectDef.
type PrefabDatabase struct {
	names   *strtable.Table
	prefabs map[int]Prefab
	Nodes   *NodeDatabase
	Shapes  *ShapeDatabase
}

// NewPrefabDatabase creates a prefab database spawning into nodes,
// referencing shapes registered in shapes.
func NewPrefabDatabase(nodes *NodeDatabase, shapes *ShapeDatabase) *PrefabDatabase {
	return &PrefabDatabase{
		names:   strtable.New(true),
		prefabs: make(map[int]Prefab),
		Nodes:   nodes,
		Shapes:  shapes,
	}
}

// Define registers a prefab under name, or replaces its definition if
// name is already registered. shapeName must already be registered in
// Shapes.
func (p *PrefabDatabase) Define(name, shapeName string, color mgl32.Vec4, blend float32) bool {
	shapeHandle, ok := p.Shapes.Lookup(shapeName)
	if !ok {
		return false
	}
	handle, exists := p.names.Lookup(name)
	if !exists {
		handle, _ = p.names.Add(name)
	}
	p.prefabs[handle] = Prefab{ShapeHandle: shapeHandle, Color: color, Blend: blend}
	return true
}

// Spawn instantiates prefabName as a named node under parentName at
// position/rotation, interned as instanceName. It returns the forest
// handle, or false if prefabName is unknown or node allocation fails.
func (p *PrefabDatabase) Spawn(prefabName, instanceName, parentName string, position mgl32.Vec3, rotation mgl32.Quat, nsTime uint64) (uint32, bool) {
	handle, ok := p.names.Lookup(prefabName)
	if !ok {
		return 0, false
	}
	def, ok := p.prefabs[handle]
	if !ok {
		return 0, false
	}
	config := proxy.Config{
		NsTime:   nsTime,
		Position: position,
		Rotation: rotation,
		Color:    def.Color,
		Blend:    def.Blend,
		Mesh:     def.ShapeHandle,
	}
	return p.Nodes.Spawn(instanceName, parentName, config)
}
