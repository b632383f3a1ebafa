// Package models provides 3D model storage and loading for softrast.
package models

import (
	"github.com/softrast/softrast/pkg/math3d"
)

// Vertex holds all per-vertex attributes. Immutable once loaded.
type Vertex struct {
	Position  math3d.Vec3
	Normal    math3d.Vec3
	UV        math3d.Vec2
	Tangent   math3d.Vec3
	Bitangent math3d.Vec3
}

// Face is a triangle: three indices into the owning mesh's vertex list
// plus a material reference (-1 for none).
type Face struct {
	V        [3]int
	Material int
}

// Mesh is an ordered vertex list plus triangle faces.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []Face

	// Bounding box, valid after CalculateBounds.
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// Model groups the meshes and materials of one renderable object.
type Model struct {
	Name      string
	Meshes    []*Mesh
	Materials []*Material

	// Transform places the model in world space.
	Transform math3d.Mat4
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// NewModel creates an empty model with an identity transform.
func NewModel(name string) *Model {
	return &Model{Name: name, Transform: math3d.Identity()}
}

// Material returns the material at index i, or nil for -1/out of range.
func (m *Model) Material(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return m.Materials[i]
}

// TriangleCount returns the total triangle count over all meshes.
func (m *Model) TriangleCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.Faces)
	}
	return n
}

// VertexCount returns the total vertex count over all meshes.
func (m *Model) VertexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.Vertices)
	}
	return n
}

// Bounds returns the union bounding box over all meshes.
func (m *Model) Bounds() (min, max math3d.Vec3) {
	first := true
	for _, mesh := range m.Meshes {
		if len(mesh.Vertices) == 0 {
			continue
		}
		if first {
			min, max = mesh.BoundsMin, mesh.BoundsMax
			first = false
			continue
		}
		min = min.Min(mesh.BoundsMin)
		max = max.Max(mesh.BoundsMax)
	}
	return min, max
}

// Center returns the center of the union bounding box.
func (m *Model) Center() math3d.Vec3 {
	lo, hi := m.Bounds()
	return lo.Add(hi).Scale(0.5)
}

// Size returns the dimensions of the union bounding box.
func (m *Model) Size() math3d.Vec3 {
	lo, hi := m.Bounds()
	return hi.Sub(lo)
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		// Unnormalized cross weights larger faces more heavily.
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		m.Vertices[f.V[0]].Normal = m.Vertices[f.V[0]].Normal.Add(normal)
		m.Vertices[f.V[1]].Normal = m.Vertices[f.V[1]].Normal.Add(normal)
		m.Vertices[f.V[2]].Normal = m.Vertices[f.V[2]].Normal.Add(normal)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// HasNormals reports whether any vertex carries a non-zero normal.
func (m *Mesh) HasNormals() bool {
	for _, v := range m.Vertices {
		if v.Normal.LenSq() > 1e-6 {
			return true
		}
	}
	return false
}

// CalculateTangents derives per-vertex tangent/bitangent frames from UVs,
// for normal mapping. Faces with degenerate UVs contribute nothing; vertices
// that end up without a frame get an arbitrary one perpendicular to the
// normal.
func (m *Mesh) CalculateTangents() {
	tan := make([]math3d.Vec3, len(m.Vertices))
	bitan := make([]math3d.Vec3, len(m.Vertices))

	for _, f := range m.Faces {
		i0, i1, i2 := f.V[0], f.V[1], f.V[2]
		p0 := m.Vertices[i0].Position
		p1 := m.Vertices[i1].Position
		p2 := m.Vertices[i2].Position
		uv0 := m.Vertices[i0].UV
		uv1 := m.Vertices[i1].UV
		uv2 := m.Vertices[i2].UV

		e1 := p1.Sub(p0)
		e2 := p2.Sub(p0)
		du1, dv1 := uv1.X-uv0.X, uv1.Y-uv0.Y
		du2, dv2 := uv2.X-uv0.X, uv2.Y-uv0.Y

		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		r := 1.0 / det

		t := e1.Scale(dv2 * r).Sub(e2.Scale(dv1 * r))
		b := e2.Scale(du1 * r).Sub(e1.Scale(du2 * r))

		for _, i := range f.V {
			tan[i] = tan[i].Add(t)
			bitan[i] = bitan[i].Add(b)
		}
	}

	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		t := tan[i]

		if t.LenSq() < 1e-12 {
			// No UV-derived frame; pick any vector not parallel to n.
			ref := math3d.V3(1, 0, 0)
			if n.X > 0.9 || n.X < -0.9 {
				ref = math3d.V3(0, 1, 0)
			}
			t = ref
		}

		// Gram-Schmidt orthogonalize against the normal.
		t = t.Sub(n.Scale(n.Dot(t))).Normalize()
		b := n.Cross(t)
		if b.Dot(bitan[i]) < 0 {
			b = b.Negate()
		}

		m.Vertices[i].Tangent = t
		m.Vertices[i].Bitangent = b
	}
}
