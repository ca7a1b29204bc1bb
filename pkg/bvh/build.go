package bvh

import (
	"sync"

	"github.com/chazu/toolclear/pkg/aabb"
)

// buildNode is the pointer-linked intermediate form produced by the
// recursive (and possibly parallel) build; it is flattened into the
// arena once construction finishes.
type buildNode struct {
	box         aabb.Box
	depth       int
	left, right *buildNode
	first       int
	count       int
}

// builder holds the working copy of the primitives. Recursive calls
// operate on disjoint ranges of work, so sibling subtrees may be built
// concurrently without synchronization.
type builder struct {
	cfg  Config
	work []Primitive
}

// Build constructs a tree from prims. The caller's slice is copied and
// never mutated. An empty collection yields the empty tree, which every
// query treats as containing nothing.
func Build(prims []Primitive, cfg Config) *Tree {
	cfg = cfg.normalized()
	instrumentBuild(cfg.Strategy, len(prims))

	if len(prims) == 0 {
		return &Tree{cfg: cfg}
	}

	work := make([]Primitive, len(prims))
	copy(work, prims)

	b := &builder{cfg: cfg, work: work}
	root := b.build(0, len(work), 0)

	t := &Tree{
		prims: work,
		cfg:   cfg,
		nodes: make([]Node, 0, 2*len(work)/cfg.MaxLeafSize+1),
	}
	t.flatten(root)
	t.stats.Primitives = len(work)

	log.Debugf("built %s tree: %d primitives, %d nodes, %d leaves, depth %d",
		cfg.Strategy, t.stats.Primitives, t.stats.Nodes, t.stats.Leaves, t.stats.MaxDepth)
	return t
}

// BuildFunc normalizes arbitrary caller objects to primitives once and
// builds a tree over them. Each primitive's Index is the position of its
// item in items.
func BuildFunc[T any](items []T, boxOf func(T) aabb.Box, cfg Config) *Tree {
	prims := make([]Primitive, len(items))
	for i, item := range items {
		prims[i] = Primitive{Index: i, Box: boxOf(item)}
	}
	return Build(prims, cfg)
}

// build constructs the subtree for work[lo:hi] at the given depth.
func (b *builder) build(lo, hi, depth int) *buildNode {
	prims := b.work[lo:hi]

	box := aabb.Empty()
	for _, p := range prims {
		box = box.Merge(p.Box)
	}

	n := &buildNode{box: box, depth: depth}
	if len(prims) <= b.cfg.MaxLeafSize || depth >= b.cfg.MaxDepth {
		n.first, n.count = lo, len(prims)
		return n
	}

	mid := lo + b.split(prims, box)

	if t := b.cfg.ParallelThreshold; t > 0 && len(prims) >= t {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.left = b.build(lo, mid, depth+1)
		}()
		n.right = b.build(mid, hi, depth+1)
		wg.Wait()
	} else {
		n.left = b.build(lo, mid, depth+1)
		n.right = b.build(mid, hi, depth+1)
	}

	n.box = n.left.box.Merge(n.right.box)
	return n
}

// flatten appends n and its descendants to the arena in pre-order and
// returns n's arena index.
func (t *Tree) flatten(n *buildNode) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		Box:   n.box,
		Depth: n.depth,
		Left:  -1,
		Right: -1,
		First: n.first,
		Count: n.count,
	})
	t.stats.Nodes++
	if n.depth > t.stats.MaxDepth {
		t.stats.MaxDepth = n.depth
	}

	if n.left == nil {
		t.stats.Leaves++
		return idx
	}

	left := t.flatten(n.left)
	right := t.flatten(n.right)
	t.nodes[idx].Left = left
	t.nodes[idx].Right = right
	t.nodes[idx].Count = 0
	return idx
}
