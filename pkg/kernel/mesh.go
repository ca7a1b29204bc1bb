package kernel

import (
	"github.com/chazu/toolclear/pkg/aabb"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a flat triangle mesh. Vertices and Normals hold 3 floats per
// vertex, Indices hold 3 vertex indices per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"` // fixture the mesh was tessellated from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i uint32) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Triangles returns the corners of every triangle. Triangles that
// reference a vertex out of range are skipped.
func (m *Mesh) Triangles() [][3]v3.Vec {
	if m.IsEmpty() {
		return nil
	}
	n := uint32(m.VertexCount())
	out := make([][3]v3.Vec, 0, m.TriangleCount())
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		if a >= n || b >= n || c >= n {
			continue
		}
		out = append(out, [3]v3.Vec{m.Vertex(a), m.Vertex(b), m.Vertex(c)})
	}
	return out
}

// Bounds returns the box enclosing every vertex.
func (m *Mesh) Bounds() aabb.Box {
	if m.IsEmpty() {
		return aabb.Empty()
	}
	pts := make([]v3.Vec, m.VertexCount())
	for i := range pts {
		pts[i] = m.Vertex(uint32(i))
	}
	return aabb.FromPoints(pts...)
}
