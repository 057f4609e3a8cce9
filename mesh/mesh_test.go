package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxHasSixFacesWithOutwardNormals(t *testing.T) {
	m := NewBox(mgl32.Vec3{1, 1, 1})
	require.Len(t, m.Vertices, 24) // 4 verts * 6 faces
	require.Len(t, m.Indices, 36)  // 2 tris * 6 faces * 3

	for i := 0; i < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]]
		b := m.Vertices[m.Indices[i+1]]
		c := m.Vertices[m.Indices[i+2]]
		n := ccwNormal(a.Position, b.Position, c.Position)
		assert.InDelta(t, 1.0, n.Dot(a.Normal), 1e-3, "triangle winding must produce the face's outward normal")
	}
}

func TestNewSphereVerticesOnRadius(t *testing.T) {
	radius := float32(2.5)
	m := NewSphere(radius, 8)
	require.NotEmpty(t, m.Vertices)
	for _, v := range m.Vertices {
		assert.InDelta(t, radius, v.Position.Len(), 1e-3)
	}
	assert.Equal(t, m.IndexMaxUsed, uint32(len(m.Vertices)-1), "every vertex should be referenced by the triangulation")
}

func TestNewTriMeshUnpacksSoup(t *testing.T) {
	tris := []Triangle{
		{A: mgl32.Vec3{0, 0, 0}, B: mgl32.Vec3{1, 0, 0}, C: mgl32.Vec3{0, 1, 0}},
	}
	m := NewTriMesh(tris)
	require.Len(t, m.Vertices, 3)
	require.Len(t, m.Indices, 3)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, m.Vertices[0].Normal)
}

func distToSegment(p, a, b mgl32.Vec3) float32 {
	ab := b.Sub(a)
	t := p.Sub(a).Dot(ab) / ab.Dot(ab)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	closest := a.Add(ab.Mul(t))
	return p.Sub(closest).Len()
}

func TestNewCapsuleWeldsPoleAndSeamDuplicates(t *testing.T) {
	radius := float32(1)
	p1 := mgl32.Vec3{0, 0, 0}
	axisLen := float32(2)
	refinement := uint32(4)
	m := NewCapsule(p1, radius, mgl32.QuatIdent(), axisLen, refinement)

	sectors := refinement * 2
	rings := refinement
	naive := 2 * (rings + 1) * (sectors + 1)
	assert.Less(t, len(m.Vertices), int(naive), "welding must collapse the hemispheres' duplicated pole/seam vertices")

	p2 := p1.Add(mgl32.Vec3{0, axisLen, 0})
	for _, v := range m.Vertices {
		assert.InDelta(t, radius, distToSegment(v.Position, p1, p2), 1e-3)
	}
	assert.Equal(t, uint32(len(m.Vertices)-1), m.IndexMaxUsed, "welding must leave every surviving vertex referenced")
}

func TestNewHullFanTriangulatesPolygon(t *testing.T) {
	square := Face{Vertices: []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	}}
	m := NewHull([]Face{square})
	require.Len(t, m.Vertices, 4)
	require.Len(t, m.Indices, 6) // 2 triangles from a fan over 4 verts
}
