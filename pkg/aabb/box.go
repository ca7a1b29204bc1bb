// Package aabb implements axis-aligned bounding boxes over sdfx vectors.
// Boxes are immutable values: every operation returns a new box.
package aabb

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis identifies one of the three coordinate axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists the axes in evaluation order.
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return "unknown"
	}
}

// Component returns the coordinate of v along the given axis.
func Component(v v3.Vec, a Axis) float64 {
	switch a {
	case X:
		return v.X
	case Y:
		return v.Y
	default:
		return v.Z
	}
}

// Box is an axis-aligned bounding box. A box with Min == Max is a
// degenerate but valid region.
type Box struct {
	Min v3.Vec `json:"min"`
	Max v3.Vec `json:"max"`
}

// New returns the box spanning min and max. The corners are ordered
// component-wise so the result always satisfies Min <= Max.
func New(min, max v3.Vec) Box {
	return Box{Min: min.Min(max), Max: min.Max(max)}
}

// FromCenter returns the box centered at c with the given half extents.
func FromCenter(c, half v3.Vec) Box {
	return New(c.Sub(half), c.Add(half))
}

// Empty returns the sentinel "no box yet" value. It is the identity
// element of Merge and never intersects anything.
func Empty() Box {
	inf := math.Inf(1)
	return Box{
		Min: v3.Vec{X: inf, Y: inf, Z: inf},
		Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether b encloses no point at all.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// FromPoints returns the tightest box containing every point.
// With no points the result is Empty(), which callers must not use as
// a spatial region.
func FromPoints(points ...v3.Vec) Box {
	b := Empty()
	for _, p := range points {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// FromBox3 converts an sdfx box.
func FromBox3(bb sdf.Box3) Box {
	return New(bb.Min, bb.Max)
}

// Box3 converts b into an sdfx box.
func (b Box) Box3() sdf.Box3 {
	return sdf.Box3{Min: b.Min, Max: b.Max}
}

// Merge returns the smallest box containing both a and b.
func Merge(a, b Box) Box {
	return a.Merge(b)
}

// Merge returns the smallest box containing b and other. Merging with
// Empty() returns the other operand unchanged.
func (b Box) Merge(other Box) Box {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return Box{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Intersects reports whether a and b overlap. Intervals are closed, so
// touching faces count as intersecting.
func Intersects(a, b Box) bool {
	return a.Intersects(b)
}

// Intersects reports whether b and other overlap on all three axes.
func (b Box) Intersects(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// ContainsPoint reports whether p lies within the closed box.
func (b Box) ContainsPoint(p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsBox reports whether other lies entirely inside b.
// Every box contains Empty().
func (b Box) ContainsBox(other Box) bool {
	if other.IsEmpty() {
		return true
	}
	return b.ContainsPoint(other.Min) && b.ContainsPoint(other.Max)
}

// Center returns the centroid of the box.
func (b Box) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Size returns the extent of the box along each axis.
func (b Box) Size() v3.Vec {
	if b.IsEmpty() {
		return v3.Vec{}
	}
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns 2*(dx*dy + dy*dz + dz*dx). It is only meaningful
// as a relative cost between boxes.
func (b Box) SurfaceArea() float64 {
	s := b.Size()
	return 2.0 * (s.X*s.Y + s.Y*s.Z + s.Z*s.X)
}

// LongestAxis returns the axis with the largest extent, preferring the
// earlier axis on ties.
func (b Box) LongestAxis() Axis {
	s := b.Size()
	if s.X >= s.Y && s.X >= s.Z {
		return X
	}
	if s.Y >= s.Z {
		return Y
	}
	return Z
}

// Expand grows the box by margin on every side. Expanding Empty()
// yields Empty().
func (b Box) Expand(margin float64) Box {
	if b.IsEmpty() {
		return b
	}
	m := v3.Vec{X: margin, Y: margin, Z: margin}
	return Box{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Equals reports whether both corners match within tol.
func (b Box) Equals(other Box, tol float64) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return b.IsEmpty() == other.IsEmpty()
	}
	return math.Abs(b.Min.X-other.Min.X) <= tol &&
		math.Abs(b.Min.Y-other.Min.Y) <= tol &&
		math.Abs(b.Min.Z-other.Min.Z) <= tol &&
		math.Abs(b.Max.X-other.Max.X) <= tol &&
		math.Abs(b.Max.Y-other.Max.Y) <= tol &&
		math.Abs(b.Max.Z-other.Max.Z) <= tol
}

func (b Box) String() string {
	if b.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%g,%g,%g]-[%g,%g,%g]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
