// Package mesh implements parametric mesh generation for primitive
// shapes: boxes, spheres, capsules, and triangulation of hulls and
// loose triangle soups. Every generator fills vertex/index slices the
// renderer can hand straight to a GPU buffer.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// Vertex is the mesh package's vertex layout: position, a CCW face
// normal, and a UV coordinate.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// Mesh is a fixed vertex/index buffer pair ready for GPU upload.
type Mesh struct {
	Vertices     []Vertex
	Indices      []uint32
	IndexMaxUsed uint32
	LocalStride  uint64
}

func (m *Mesh) addTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
	if a > m.IndexMaxUsed {
		m.IndexMaxUsed = a
	}
	if b > m.IndexMaxUsed {
		m.IndexMaxUsed = b
	}
	if c > m.IndexMaxUsed {
		m.IndexMaxUsed = c
	}
}

// ccwNormal returns the CCW face normal of triangle (a, b, c).
func ccwNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

const vertexStride = 8 * 4 // position + normal + uv, float32

// NewBox generates a unit box scaled by halfExtents, centered at the
// origin, with one quad (two triangles) per face and flat per-face
// normals.
func NewBox(halfExtents mgl32.Vec3) *Mesh {
	m := &Mesh{LocalStride: vertexStride}

	type face struct {
		normal       mgl32.Vec3
		u, v         mgl32.Vec3 // tangent axes spanning the face
	}
	faces := []face{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}},
	}

	for _, f := range faces {
		center := mgl32.Vec3{f.normal[0] * halfExtents[0], f.normal[1] * halfExtents[1], f.normal[2] * halfExtents[2]}
		u := mgl32.Vec3{f.u[0] * halfExtents[0], f.u[1] * halfExtents[1], f.u[2] * halfExtents[2]}
		v := mgl32.Vec3{f.v[0] * halfExtents[0], f.v[1] * halfExtents[1], f.v[2] * halfExtents[2]}

		p0 := center.Sub(u).Sub(v)
		p1 := center.Add(u).Sub(v)
		p2 := center.Add(u).Add(v)
		p3 := center.Sub(u).Add(v)

		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices,
			Vertex{Position: p0, Normal: f.normal, UV: mgl32.Vec2{0, 0}},
			Vertex{Position: p1, Normal: f.normal, UV: mgl32.Vec2{1, 0}},
			Vertex{Position: p2, Normal: f.normal, UV: mgl32.Vec2{1, 1}},
			Vertex{Position: p3, Normal: f.normal, UV: mgl32.Vec2{0, 1}},
		)
		// Winding chosen so ccwNormal(p0,p1,p2) agrees with f.normal.
		m.addTriangle(base, base+1, base+2)
		m.addTriangle(base, base+2, base+3)
	}
	return m
}

// NewSphere generates strips of latitude rings with seamless wrap at
// the seam longitude. refinement controls both latitude and longitude
// subdivision.
func NewSphere(radius float32, refinement uint32) *Mesh {
	if refinement < 2 {
		refinement = 2
	}
	m := &Mesh{LocalStride: vertexStride}
	rings := refinement
	sectors := refinement * 2

	for ring := uint32(0); ring <= rings; ring++ {
		phi := float32(ring) / float32(rings) * pi // 0 at north pole, pi at south pole
		y := radius * cos(phi)
		ringRadius := radius * sin(phi)
		for sector := uint32(0); sector <= sectors; sector++ {
			theta := float32(sector) / float32(sectors) * 2 * pi
			x := ringRadius * cos(theta)
			z := ringRadius * sin(theta)
			pos := mgl32.Vec3{x, y, z}
			m.Vertices = append(m.Vertices, Vertex{
				Position: pos,
				Normal:   pos.Normalize(),
				UV:       mgl32.Vec2{float32(sector) / float32(sectors), float32(ring) / float32(rings)},
			})
		}
	}

	stride := sectors + 1
	for ring := uint32(0); ring < rings; ring++ {
		for sector := uint32(0); sector < sectors; sector++ {
			a := ring*stride + sector
			b := a + stride
			c := a + 1
			d := b + 1
			m.addTriangle(a, b, c)
			m.addTriangle(c, b, d)
		}
	}
	return m
}

// NewCapsule generates hemisphere caps plus a cylindrical body between
// p1 and p1+axisLen*rotation.Rotate(up), oriented by rotation. A
// sphere of the same refinement backs each cap.
func NewCapsule(p1 mgl32.Vec3, radius float32, rotation mgl32.Quat, axisLen float32, refinement uint32) *Mesh {
	if refinement < 2 {
		refinement = 2
	}
	m := &Mesh{LocalStride: vertexStride}
	sectors := refinement * 2
	up := rotation.Rotate(mgl32.Vec3{0, 1, 0})
	p2 := p1.Add(up.Mul(axisLen))

	// Bottom hemisphere (rings from equator down to the south pole).
	bottomBase := appendHemisphere(m, p1, radius, rotation, refinement, sectors, true)
	// Cylinder body: one equator ring at each end, already the first
	// ring of each hemisphere, reused by offsetting into the top
	// hemisphere's equator.
	topBase := appendHemisphere(m, p2, radius, rotation, refinement, sectors, false)

	for sector := uint32(0); sector < sectors; sector++ {
		a := bottomBase + sector // bottom equator ring
		b := topBase + sector    // top equator ring
		c := a + 1
		d := b + 1
		m.addTriangle(a, b, c)
		m.addTriangle(c, b, d)
	}

	weldVertices(m, capsuleWeldEpsilon)
	return m
}

// capsuleWeldEpsilon bounds how close two vertex positions must be to
// collapse into one during welding.
const capsuleWeldEpsilon = 1e-5

// weldVertices is the convex-hull reduction pass: it collapses every
// group of vertices occupying the same point in space (within eps)
// into one survivor and remaps m.Indices accordingly. NewCapsule's two
// independently generated hemispheres each carry their own pole ring —
// 2*refinement+1 vertices coincident at the same pole point, one per
// sector column, plus the longitude-0/longitude-2π seam duplicated the same
// way around every ring — and this pass merges them the way a hull
// reduction would merge coincident hull points, leaving a handful of
// degenerate (zero-area) triangles at each pole where welding pulled
// two of a triangle's three corners together.
func weldVertices(m *Mesh, eps float32) {
	type key struct{ x, y, z int64 }
	quant := func(v float32) int64 { return int64(v / eps) }
	keyOf := func(p mgl32.Vec3) key { return key{quant(p[0]), quant(p[1]), quant(p[2])} }

	remap := make([]uint32, len(m.Vertices))
	seen := make(map[key]uint32, len(m.Vertices))
	verts := make([]Vertex, 0, len(m.Vertices))

	for i, v := range m.Vertices {
		k := keyOf(v.Position)
		if dst, ok := seen[k]; ok {
			remap[i] = dst
			continue
		}
		dst := uint32(len(verts))
		verts = append(verts, v)
		seen[k] = dst
		remap[i] = dst
	}

	indices := make([]uint32, len(m.Indices))
	var maxUsed uint32
	for i, idx := range m.Indices {
		ni := remap[idx]
		indices[i] = ni
		if ni > maxUsed {
			maxUsed = ni
		}
	}

	m.Vertices = verts
	m.Indices = indices
	m.IndexMaxUsed = maxUsed
}

// appendHemisphere appends one hemisphere's worth of rings (equator to
// pole) around center, oriented by rotation, and returns the vertex
// index of its equator ring's first vertex. south=true generates the
// bottom half (equator to south pole); false generates the top half
// (equator to north pole).
func appendHemisphere(m *Mesh, center mgl32.Vec3, radius float32, rotation mgl32.Quat, refinement, sectors uint32, south bool) uint32 {
	equatorBase := uint32(len(m.Vertices))
	rings := refinement
	for ring := uint32(0); ring <= rings; ring++ {
		t := float32(ring) / float32(rings) * (pi / 2)
		if !south {
			t = -t
		}
		y := radius * sin(-t)
		ringRadius := radius * cos(t)
		for sector := uint32(0); sector <= sectors; sector++ {
			theta := float32(sector) / float32(sectors) * 2 * pi
			x := ringRadius * cos(theta)
			z := ringRadius * sin(theta)
			local := mgl32.Vec3{x, y, z}
			pos := center.Add(rotation.Rotate(local))
			m.Vertices = append(m.Vertices, Vertex{
				Position: pos,
				Normal:   rotation.Rotate(local.Normalize()),
				UV:       mgl32.Vec2{float32(sector) / float32(sectors), float32(ring) / float32(rings)},
			})
		}
	}

	stride := sectors + 1
	for ring := uint32(0); ring < rings; ring++ {
		for sector := uint32(0); sector < sectors; sector++ {
			a := equatorBase + ring*stride + sector
			b := a + stride
			c := a + 1
			d := b + 1
			m.addTriangle(a, b, c)
			m.addTriangle(c, b, d)
		}
	}
	return equatorBase
}

// Face is one polygonal face of a doubly-connected-edge-list hull:
// its vertices in CCW winding order.
type Face struct {
	Vertices []mgl32.Vec3
}

// NewHull triangulates each face of a convex hull fan-wise from its
// first vertex, matching set_hull's dcel-to-mesh conversion.
func NewHull(faces []Face) *Mesh {
	m := &Mesh{LocalStride: vertexStride}
	for _, f := range faces {
		if len(f.Vertices) < 3 {
			continue
		}
		normal := ccwNormal(f.Vertices[0], f.Vertices[1], f.Vertices[2])
		base := uint32(len(m.Vertices))
		for _, v := range f.Vertices {
			m.Vertices = append(m.Vertices, Vertex{Position: v, Normal: normal})
		}
		for i := 1; i+1 < len(f.Vertices); i++ {
			m.addTriangle(base, base+uint32(i), base+uint32(i+1))
		}
	}
	return m
}

// Triangle is one triangle of a loose triangle soup.
type Triangle struct {
	A, B, C mgl32.Vec3
}

// NewTriMesh trivially unpacks a triangle soup into a mesh, computing
// each triangle's CCW face normal.
func NewTriMesh(tris []Triangle) *Mesh {
	m := &Mesh{LocalStride: vertexStride}
	for _, tri := range tris {
		normal := ccwNormal(tri.A, tri.B, tri.C)
		base := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices,
			Vertex{Position: tri.A, Normal: normal},
			Vertex{Position: tri.B, Normal: normal},
			Vertex{Position: tri.C, Normal: normal},
		)
		m.addTriangle(base, base+1, base+2)
	}
	return m
}
