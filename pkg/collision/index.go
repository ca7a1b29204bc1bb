// Package collision checks toolpaths against the static obstacles of a
// machining setup. Fixtures are reduced to boxes once, indexed in a
// bounding volume hierarchy and then queried per path sample.
package collision

import (
	"context"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/bvh"
	"github.com/chazu/toolclear/pkg/kernel"
	"github.com/chazu/toolclear/pkg/tessellate"
	"github.com/google/uuid"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("toolclear:collision")

// DefaultVerticalTolerance treats tool axes within about 1.8 degrees of
// Z as vertical.
const DefaultVerticalTolerance = 5e-4

// Options controls index construction and toolpath checks.
type Options struct {
	// Clearance grows every tool envelope before it is queried.
	Clearance float64
	// Sweep merges each sample's envelope with the previous one so that
	// the motion between samples is covered.
	Sweep bool
	// VerticalTolerance is passed to ToolBox.
	VerticalTolerance float64
	// Index configures the obstacle hierarchy.
	Index bvh.Config
	// Kernel, when set, tessellates fixtures that carry a solid so that
	// probes report exact surface distances.
	Kernel kernel.Kernel
}

// DefaultOptions returns sweeping checks with no extra clearance.
func DefaultOptions() Options {
	return Options{
		Sweep:             true,
		VerticalTolerance: DefaultVerticalTolerance,
		Index:             bvh.DefaultConfig(),
	}
}

// ObstacleIndex is the built hierarchy over a fixture list. Primitive
// indices in Tree are positions in Fixtures.
type ObstacleIndex struct {
	ID       uuid.UUID
	Tree     *bvh.Tree
	Fixtures []Fixture

	envelopes []aabb.Box
	meshes    map[int]*MeshIndex
}

// BuildObstacleIndex reduces every fixture to its envelope and builds the
// hierarchy over them. An empty fixture list yields an empty index.
func BuildObstacleIndex(fixtures []Fixture, opts Options) (*ObstacleIndex, error) {
	idx := &ObstacleIndex{
		ID:        uuid.New(),
		Fixtures:  append([]Fixture(nil), fixtures...),
		envelopes: make([]aabb.Box, len(fixtures)),
		meshes:    map[int]*MeshIndex{},
	}

	prims := make([]bvh.Primitive, len(fixtures))
	for i, f := range fixtures {
		env, err := f.Envelope()
		if err != nil {
			return nil, errors.Wrapf(err, "fixture %d", i)
		}
		idx.envelopes[i] = env
		prims[i] = bvh.Primitive{Index: i, Box: env}
	}
	idx.Tree = bvh.Build(prims, opts.Index)

	if opts.Kernel != nil {
		if err := idx.tessellate(opts.Kernel, opts.Index); err != nil {
			return nil, err
		}
	}

	log.Debugf("obstacle index %s: %d fixtures, %d tessellated, bounds %s",
		idx.ID, len(fixtures), len(idx.meshes), idx.Tree.Bounds())
	return idx, nil
}

// tessellate meshes every fixture whose envelope came from its solid.
func (idx *ObstacleIndex) tessellate(k kernel.Kernel, cfg bvh.Config) error {
	parts := make([]tessellate.Part, len(idx.Fixtures))
	for i, f := range idx.Fixtures {
		if !f.fromSolid() {
			continue
		}
		parts[i] = tessellate.Part{Name: f.Name, Solid: f.Solid}
	}

	meshes, err := tessellate.Tessellate(context.Background(), parts, k)
	if err != nil {
		return errors.Wrap(err, "tessellating fixtures")
	}
	for i, m := range meshes {
		if m.IsEmpty() {
			continue
		}
		if mi := NewMeshIndex(m, cfg); mi.Len() > 0 {
			idx.meshes[i] = mi
		}
	}
	return nil
}

// Len returns the number of fixtures.
func (idx *ObstacleIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Fixtures)
}

// Envelope returns the indexed box of fixture i.
func (idx *ObstacleIndex) Envelope(i int) aabb.Box {
	return idx.envelopes[i]
}

// Mesh returns the tessellation of fixture i, if it has one.
func (idx *ObstacleIndex) Mesh(i int) (*MeshIndex, bool) {
	m, ok := idx.meshes[i]
	return m, ok
}

// Conflict is two fixtures whose envelopes overlap, such as a clamp
// biting into the stock.
type Conflict struct {
	A   string   `json:"a"`
	B   string   `json:"b"`
	Box aabb.Box `json:"box"`
}

// Conflicts returns every pair of overlapping fixtures, ordered by the
// fixtures' positions in the index.
func (idx *ObstacleIndex) Conflicts() []Conflict {
	if idx.Len() == 0 {
		return nil
	}
	pairs := idx.Tree.Pairs()
	sortPairs(pairs)

	out := make([]Conflict, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Conflict{
			A:   idx.Fixtures[p.A.Index].Name,
			B:   idx.Fixtures[p.B.Index].Name,
			Box: overlap(p.A.Box, p.B.Box),
		})
	}
	return out
}

// overlap returns the intersection of two boxes known to intersect.
func overlap(a, b aabb.Box) aabb.Box {
	return aabb.Box{Min: a.Min.Max(b.Min), Max: a.Max.Min(b.Max)}
}
