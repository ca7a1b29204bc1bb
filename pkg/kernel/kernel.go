// Package kernel defines the abstract geometry kernel used to describe
// fixtures that are not plain boxes. Implementations wrap a solid
// modeling backend; the collision pipeline only ever needs a solid's
// bounds and, for exact ray probes, its tessellation.
package kernel

import (
	"github.com/chazu/toolclear/pkg/aabb"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// Bounds returns the axis-aligned box enclosing the solid.
	Bounds() aabb.Box
}

// Kernel builds and combines solids.
type Kernel interface {
	// Box returns an x by y by z box with its minimum corner at the origin.
	Box(x, y, z float64) (Solid, error)
	// Cylinder returns a Z-aligned cylinder centred on the origin.
	Cylinder(height, radius float64) (Solid, error)

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	ToMesh(s Solid) (*Mesh, error)
}
