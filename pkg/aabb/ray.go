package aabb

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Ray is a half-line used by ray casts. The inverse direction is
// computed once by NewRay and reused for every slab test.
type Ray struct {
	Origin    v3.Vec
	Direction v3.Vec

	inv v3.Vec
}

// NewRay returns a ray with its inverse direction precomputed. A zero
// direction component maps to an infinite inverse with the sign of zero.
func NewRay(origin, direction v3.Vec) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction,
		inv: v3.Vec{
			X: invert(direction.X),
			Y: invert(direction.Y),
			Z: invert(direction.Z),
		},
	}
}

func invert(d float64) float64 {
	if d == 0 {
		return math.Copysign(math.Inf(1), d)
	}
	return 1.0 / d
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

// InvDirection returns the precomputed per-axis inverse direction.
func (r Ray) InvDirection() v3.Vec {
	if r.inv == (v3.Vec{}) {
		return NewRay(r.Origin, r.Direction).inv
	}
	return r.inv
}

// HitRay runs the slab test against the box and returns the parametric
// interval [tEnter, tExit] clipped to [tMin, tMax].
//
// An axis whose direction component is zero never excludes the ray as
// long as the origin sits inside that slab; it is handled explicitly so
// that 0*Inf never produces NaN when the origin lies on a slab plane.
func (b Box) HitRay(r Ray, tMin, tMax float64) (tEnter, tExit float64, ok bool) {
	if b.IsEmpty() {
		return 0, 0, false
	}
	inv := r.InvDirection()
	for _, axis := range Axes {
		lo := Component(b.Min, axis)
		hi := Component(b.Max, axis)
		origin := Component(r.Origin, axis)
		invDir := Component(inv, axis)

		if math.IsInf(invDir, 0) {
			if origin < lo || origin > hi {
				return 0, 0, false
			}
			continue
		}

		t1 := (lo - origin) * invDir
		t2 := (hi - origin) * invDir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}
