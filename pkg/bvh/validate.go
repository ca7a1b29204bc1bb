package bvh

import (
	"github.com/pkg/errors"
)

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(idx int, n Node) bool) {
	if t.IsEmpty() {
		return
	}
	var visit func(i int)
	visit = func(i int) {
		n := t.nodes[i]
		if !fn(i, n) || n.IsLeaf() {
			return
		}
		visit(n.Left)
		visit(n.Right)
	}
	visit(0)
}

// Validate checks the structural invariants of the tree: every node box
// encloses its children and primitives, leaves are non-empty, every
// primitive belongs to exactly one leaf, no leaf is deeper than the
// configured maximum and the recorded statistics match the arena.
func (t *Tree) Validate() error {
	if t.IsEmpty() {
		if t != nil && len(t.prims) != 0 {
			return errors.Errorf("bvh: empty arena holds %d primitives", len(t.prims))
		}
		return nil
	}

	owner := make([]int, len(t.prims))
	for i := range owner {
		owner[i] = -1
	}

	var stats Stats
	var err error
	t.Walk(func(idx int, n Node) bool {
		if err != nil {
			return false
		}
		stats.Nodes++
		if n.Depth > stats.MaxDepth {
			stats.MaxDepth = n.Depth
		}

		if n.IsLeaf() {
			stats.Leaves++
			if n.Count <= 0 {
				err = errors.Errorf("bvh: leaf %d is empty", idx)
				return false
			}
			if n.Depth > t.cfg.MaxDepth {
				err = errors.Errorf("bvh: leaf %d at depth %d exceeds max depth %d", idx, n.Depth, t.cfg.MaxDepth)
				return false
			}
			if n.First < 0 || n.First+n.Count > len(t.prims) {
				err = errors.Errorf("bvh: leaf %d range [%d,%d) out of bounds", idx, n.First, n.First+n.Count)
				return false
			}
			for k := n.First; k < n.First+n.Count; k++ {
				if owner[k] >= 0 {
					err = errors.Errorf("bvh: primitive slot %d owned by leaves %d and %d", k, owner[k], idx)
					return false
				}
				owner[k] = idx
				if !n.Box.ContainsBox(t.prims[k].Box) {
					err = errors.Errorf("bvh: leaf %d box %s does not enclose primitive %d box %s",
						idx, n.Box, t.prims[k].Index, t.prims[k].Box)
					return false
				}
			}
			return true
		}

		if n.Count != 0 {
			err = errors.Errorf("bvh: internal node %d owns %d primitives", idx, n.Count)
			return false
		}
		for _, c := range []int{n.Left, n.Right} {
			if c <= idx || c >= len(t.nodes) {
				err = errors.Errorf("bvh: node %d has invalid child index %d", idx, c)
				return false
			}
			child := t.nodes[c]
			if !n.Box.ContainsBox(child.Box) {
				err = errors.Errorf("bvh: node %d box %s does not enclose child %d box %s", idx, n.Box, c, child.Box)
				return false
			}
			if child.Depth != n.Depth+1 {
				err = errors.Errorf("bvh: child %d depth %d, want %d", c, child.Depth, n.Depth+1)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	for k, o := range owner {
		if o < 0 {
			return errors.Errorf("bvh: primitive slot %d not owned by any leaf", k)
		}
	}
	stats.Primitives = len(t.prims)
	if stats != t.stats {
		return errors.Errorf("bvh: recorded stats %+v do not match arena %+v", t.stats, stats)
	}
	return nil
}
