package bvh

// Pair is two primitives whose boxes overlap.
type Pair struct {
	A Primitive `json:"a"`
	B Primitive `json:"b"`
}

// Pairs returns every unordered pair of distinct primitives whose boxes
// overlap. Each pair is reported exactly once with A.Index <= B.Index;
// (p, p) is never reported.
func (t *Tree) Pairs() []Pair {
	if t.IsEmpty() {
		return nil
	}
	instrumentQuery(queryPairs)

	c := pairCollector{tree: t, normalize: true}
	c.self(0)
	return c.out
}

// PairsWith returns every pair (a, b) with a from t and b from other
// whose boxes overlap, for example a tool-sweep tree against an obstacle
// tree.
func (t *Tree) PairsWith(other *Tree) []Pair {
	if t.IsEmpty() || other.IsEmpty() {
		return nil
	}
	instrumentQuery(queryPairs)

	c := pairCollector{}
	c.descend(t, 0, other, 0)
	return c.out
}

type pairCollector struct {
	tree      *Tree
	normalize bool
	out       []Pair
}

func (c *pairCollector) add(p, q Primitive) {
	if c.normalize && q.Index < p.Index {
		p, q = q, p
	}
	c.out = append(c.out, Pair{A: p, B: q})
}

// self collects pairs within the subtree rooted at node i. Descending
// into (L,L), (R,R) and (L,R) but never (R,L) is what keeps every
// unordered pair unique.
func (c *pairCollector) self(i int) {
	n := &c.tree.nodes[i]
	if n.IsLeaf() {
		prims := c.tree.leafPrims(n)
		for x := 0; x < len(prims); x++ {
			for y := x + 1; y < len(prims); y++ {
				if prims[x].Box.Intersects(prims[y].Box) {
					c.add(prims[x], prims[y])
				}
			}
		}
		return
	}
	c.self(n.Left)
	c.self(n.Right)
	c.descend(c.tree, n.Left, c.tree, n.Right)
}

// descend collects pairs between subtree i of ta and subtree j of tb.
func (c *pairCollector) descend(ta *Tree, i int, tb *Tree, j int) {
	na, nb := &ta.nodes[i], &tb.nodes[j]
	if !na.Box.Intersects(nb.Box) {
		return
	}

	switch {
	case na.IsLeaf() && nb.IsLeaf():
		for _, p := range ta.leafPrims(na) {
			for _, q := range tb.leafPrims(nb) {
				if p.Box.Intersects(q.Box) {
					c.add(p, q)
				}
			}
		}
	case na.IsLeaf():
		c.descend(ta, i, tb, nb.Left)
		c.descend(ta, i, tb, nb.Right)
	case nb.IsLeaf():
		c.descend(ta, na.Left, tb, j)
		c.descend(ta, na.Right, tb, j)
	default:
		c.descend(ta, na.Left, tb, nb.Left)
		c.descend(ta, na.Left, tb, nb.Right)
		c.descend(ta, na.Right, tb, nb.Left)
		c.descend(ta, na.Right, tb, nb.Right)
	}
}
