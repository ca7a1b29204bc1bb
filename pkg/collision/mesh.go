package collision

import (
	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/bvh"
	"github.com/chazu/toolclear/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle is three mesh corners.
type Triangle [3]v3.Vec

// Bounds returns the box enclosing the triangle.
func (t Triangle) Bounds() aabb.Box {
	return aabb.FromPoints(t[0], t[1], t[2])
}

// Intersect returns the distance along r at which it crosses the
// triangle, using the Moller-Trumbore test. Rays lying in the triangle's
// plane never hit.
func (t Triangle) Intersect(r aabb.Ray, tMax float64) (float64, bool) {
	const epsilon = 1e-8

	edge1 := t[1].Sub(t[0])
	edge2 := t[2].Sub(t[0])

	h := r.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, false
	}

	f := 1.0 / a
	s := r.Origin.Sub(t[0])
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * r.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, false
	}

	d := f * edge2.Dot(q)
	if d < 0 || d > tMax {
		return 0, false
	}
	return d, true
}

// MeshIndex is a hierarchy over the triangles of one tessellated solid.
type MeshIndex struct {
	Name      string
	triangles []Triangle
	tree      *bvh.Tree
}

// NewMeshIndex indexes the triangles of m.
func NewMeshIndex(m *kernel.Mesh, cfg bvh.Config) *MeshIndex {
	raw := m.Triangles()
	tris := make([]Triangle, len(raw))
	for i, t := range raw {
		tris[i] = Triangle(t)
	}
	idx := &MeshIndex{
		triangles: tris,
		tree:      bvh.BuildFunc(tris, Triangle.Bounds, cfg),
	}
	if m != nil {
		idx.Name = m.Name
	}
	return idx
}

// Len returns the number of indexed triangles.
func (m *MeshIndex) Len() int {
	return len(m.triangles)
}

// Tree returns the underlying hierarchy.
func (m *MeshIndex) Tree() *bvh.Tree {
	return m.tree
}

func (m *MeshIndex) intersect(p bvh.Primitive, r aabb.Ray, tMax float64) (float64, bool) {
	return m.triangles[p.Index].Intersect(r, tMax)
}

// Raycast returns every triangle hit by r within maxDistance, nearest
// first. Hit indices refer to the mesh's triangle order.
func (m *MeshIndex) Raycast(r aabb.Ray, maxDistance float64) []bvh.Hit {
	return m.tree.Raycast(r, maxDistance, m.intersect)
}

// Closest returns the nearest triangle hit by r within maxDistance.
func (m *MeshIndex) Closest(r aabb.Ray, maxDistance float64) (bvh.Hit, bool) {
	return m.tree.Closest(r, maxDistance, m.intersect)
}
