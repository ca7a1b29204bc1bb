package bvh

import (
	"math"
	"sort"

	"github.com/chazu/toolclear/pkg/aabb"
)

// IntersectFunc is the caller's exact ray test for one primitive. It
// returns the hit distance along the ray and whether the ray hits at
// all within [0, tMax].
type IntersectFunc func(p Primitive, r aabb.Ray, tMax float64) (float64, bool)

// Hit is a primitive struck by a ray at Distance.
type Hit struct {
	Primitive
	Distance float64 `json:"distance"`
}

// BoxIntersect is the IntersectFunc used when the caller supplies none:
// the hit distance is the entry distance into the primitive's box.
func BoxIntersect(p Primitive, r aabb.Ray, tMax float64) (float64, bool) {
	tEnter, _, ok := p.Box.HitRay(r, 0, tMax)
	return tEnter, ok
}

// Raycast returns every primitive hit by r within maxDistance, sorted by
// ascending distance (ties by Index). A nil intersect falls back to
// BoxIntersect. A non-positive or NaN maxDistance means unbounded.
func (t *Tree) Raycast(r aabb.Ray, maxDistance float64, intersect IntersectFunc) []Hit {
	if t.IsEmpty() {
		return nil
	}
	instrumentQuery(queryRay)

	r = aabb.NewRay(r.Origin, r.Direction)
	maxDistance = rayLimit(maxDistance)
	if intersect == nil {
		intersect = BoxIntersect
	}

	var hits []Hit
	t.traverseRay(r, func() float64 { return maxDistance }, func(p Primitive) {
		if d, ok := intersect(p, r, maxDistance); ok && d >= 0 && d <= maxDistance {
			hits = append(hits, Hit{Primitive: p, Distance: d})
		}
	})

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Index < hits[j].Index
	})
	return hits
}

// Closest returns the nearest primitive hit by r within maxDistance.
// Subtrees farther than the best hit found so far are skipped.
func (t *Tree) Closest(r aabb.Ray, maxDistance float64, intersect IntersectFunc) (Hit, bool) {
	if t.IsEmpty() {
		return Hit{}, false
	}
	instrumentQuery(queryRay)

	r = aabb.NewRay(r.Origin, r.Direction)
	limit := rayLimit(maxDistance)
	if intersect == nil {
		intersect = BoxIntersect
	}

	var best Hit
	found := false
	t.traverseRay(r, func() float64 { return limit }, func(p Primitive) {
		d, ok := intersect(p, r, limit)
		if !ok || d < 0 || d > limit {
			return
		}
		if !found || d < best.Distance || (d == best.Distance && p.Index < best.Index) {
			best = Hit{Primitive: p, Distance: d}
			limit = d
			found = true
		}
	})
	return best, found
}

// traverseRay visits the primitives of every leaf whose box the ray
// enters before limit(). Leaf primitives whose own box the ray misses
// are skipped before visit is called.
func (t *Tree) traverseRay(r aabb.Ray, limit func() float64, visit func(Primitive)) {
	stack := make([]int, 1, 2*t.stats.MaxDepth+2)
	stack[0] = 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[i]
		if _, _, ok := n.Box.HitRay(r, 0, limit()); !ok {
			continue
		}
		if n.IsLeaf() {
			for _, p := range t.leafPrims(n) {
				if _, _, ok := p.Box.HitRay(r, 0, limit()); ok {
					visit(p)
				}
			}
			continue
		}
		stack = append(stack, n.Right, n.Left)
	}
}

func rayLimit(maxDistance float64) float64 {
	if math.IsNaN(maxDistance) || maxDistance <= 0 {
		return math.Inf(1)
	}
	return maxDistance
}
