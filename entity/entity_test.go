package entity

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/kasp-editor/kaspcore/arena"
	"github.com/kasp-editor/kaspcore/mesh"
	"github.com/kasp-editor/kaspcore/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDatabaseSpawnByNameAndParent(t *testing.T) {
	d := NewNodeDatabase(8, false)

	root, ok := d.Spawn("root", "", proxy.Config{Parent: proxy.Root})
	require.True(t, ok)

	child, ok := d.Spawn("child", "root", proxy.Config{})
	require.True(t, ok)

	require.NotNil(t, d.Forest.Address(child))
	assert.Equal(t, root, d.Forest.Parent(child))

	handle, ok := d.ByName("child")
	require.True(t, ok)
	assert.Equal(t, child, handle)
}

func TestNodeDatabaseDespawnReleasesName(t *testing.T) {
	d := NewNodeDatabase(8, false)
	handle, ok := d.Spawn("thing", "", proxy.Config{Parent: proxy.Root})
	require.True(t, ok)

	d.Despawn(handle, arena.New(4096))

	assert.Nil(t, d.Forest.Address(handle))
	_, ok = d.ByName("thing")
	assert.False(t, ok, "despawning must release the interned name")
}

func TestShapeDatabaseRegisterAndLookup(t *testing.T) {
	s := NewShapeDatabase()
	box := mesh.NewBox(mgl32.Vec3{1, 1, 1})

	handle := s.Register("box", box)
	got, ok := s.Lookup("box")
	require.True(t, ok)
	assert.Equal(t, handle, got)
	assert.Same(t, box, s.Mesh(handle))
}

func TestPrefabDatabaseSpawnsNamedInstance(t *testing.T) {
	shapes := NewShapeDatabase()
	shapes.Register("box", mesh.NewBox(mgl32.Vec3{1, 1, 1}))

	nodes := NewNodeDatabase(8, false)
	prefabs := NewPrefabDatabase(nodes, shapes)

	ok := prefabs.Define("crate", "box", mgl32.Vec4{1, 1, 1, 1}, 0)
	require.True(t, ok)

	handle, ok := prefabs.Spawn("crate", "crate_1", "", mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent(), 0)
	require.True(t, ok)

	p := nodes.Forest.Address(handle)
	require.NotNil(t, p)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, p.SpecPosition)

	resolved, ok := nodes.ByName("crate_1")
	require.True(t, ok)
	assert.Equal(t, handle, resolved)
}

func TestPrefabDatabaseSpawnUnknownPrefabFails(t *testing.T) {
	nodes := NewNodeDatabase(8, false)
	prefabs := NewPrefabDatabase(nodes, NewShapeDatabase())

	_, ok := prefabs.Spawn("missing", "x", "", mgl32.Vec3{}, mgl32.QuatIdent(), 0)
	assert.False(t, ok)
}
