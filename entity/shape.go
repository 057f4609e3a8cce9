// Package entity is the thin front-end glue that composes strtable,
// proxy, and mesh into a single spawn/extrapolate path for a scene of
// named objects. It does not register anything with a render.Scene;
// drawing a spawned object is left to the caller. It is the editor's
// attach point, not a new
// algorithmic surface, mirroring the teacher's SceneDef/VoxelObjectDef
// composition in scene.go and mod_presets.go.
package entity

import (
	"github.com/kasp-editor/kaspcore/mesh"
	"github.com/kasp-editor/kaspcore/strtable"
)

// ShapeDatabase interns mesh names behind small integer handles and
// keeps the mesh data addressable by that same handle, so a Prefab can
// reference a shape by name without re-resolving it every spawn.
type ShapeDatabase struct {
	names  *strtable.Table
	meshes map[int]*mesh.Mesh
}

// NewShapeDatabase creates an empty shape database.
func NewShapeDatabase() *ShapeDatabase {
	return &ShapeDatabase{
		names:  strtable.New(true),
		meshes: make(map[int]*mesh.Mesh),
	}
}

// Register interns name (or returns its existing handle) and
// associates m with it.
func (s *ShapeDatabase) Register(name string, m *mesh.Mesh) int {
	if handle, ok := s.names.Lookup(name); ok {
		s.meshes[handle] = m
		return handle
	}
	handle, _ := s.names.Add(name)
	s.meshes[handle] = m
	return handle
}

// Lookup returns name's shape handle, if registered.
func (s *ShapeDatabase) Lookup(name string) (handle int, ok bool) {
	return s.names.Lookup(name)
}

// Mesh returns the mesh data registered under handle, or nil.
func (s *ShapeDatabase) Mesh(handle int) *mesh.Mesh {
	return s.meshes[handle]
}
