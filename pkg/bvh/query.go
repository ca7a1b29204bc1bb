package bvh

import (
	"github.com/chazu/toolclear/pkg/aabb"
)

// Query returns every primitive whose box intersects box. It is a broad
// phase: no overlapping primitive is ever missed, but callers that need
// exact geometry must still verify each result. Order is unspecified.
func (t *Tree) Query(box aabb.Box) []Primitive {
	var out []Primitive
	t.QueryFunc(box, func(p Primitive) bool {
		out = append(out, p)
		return true
	})
	return out
}

// QueryFunc calls fn for every primitive whose box intersects box and
// stops early when fn returns false.
func (t *Tree) QueryFunc(box aabb.Box, fn func(Primitive) bool) {
	if t.IsEmpty() || box.IsEmpty() {
		return
	}
	instrumentQuery(queryRegion)

	stack := make([]int, 1, 2*t.stats.MaxDepth+2)
	stack[0] = 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[i]
		if !n.Box.Intersects(box) {
			continue
		}
		if n.IsLeaf() {
			for _, p := range t.leafPrims(n) {
				if p.Box.Intersects(box) && !fn(p) {
					return
				}
			}
			continue
		}
		stack = append(stack, n.Right, n.Left)
	}
}

// Any reports whether at least one primitive intersects box.
func (t *Tree) Any(box aabb.Box) bool {
	hit := false
	t.QueryFunc(box, func(Primitive) bool {
		hit = true
		return false
	})
	return hit
}
