// Package bvh implements an immutable bounding volume hierarchy over
// axis-aligned boxes. A Tree is built once from a primitive collection
// and then queried any number of times; it is never mutated after Build
// returns, so concurrent queries against one Tree need no locking.
//
// Nodes live in a flat arena and refer to their children by index.
// Leaves own a contiguous range of the tree's reordered primitive copy.
package bvh

import (
	"fmt"
	"strings"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("toolclear:bvh")

// Primitive pairs a caller-chosen identity with its bounding box. The
// index never interprets Index; it is handed back in query results so
// callers can map hits to their own objects.
type Primitive struct {
	Index int      `json:"index"`
	Box   aabb.Box `json:"box"`
}

// Node is an arena entry. Internal nodes have two children and no
// primitives; leaves have no children and own Prims[First:First+Count].
type Node struct {
	Box   aabb.Box `json:"box"`
	Depth int      `json:"depth"`
	Left  int      `json:"left"`
	Right int      `json:"right"`
	First int      `json:"first"`
	Count int      `json:"count"`
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool {
	return n.Left < 0
}

// SplitStrategy selects how the builder partitions a node.
type SplitStrategy int

const (
	SplitSAH    SplitStrategy = iota // surface-area heuristic over fixed bins
	SplitMedian                      // centroid median along the longest axis
)

func (s SplitStrategy) String() string {
	switch s {
	case SplitSAH:
		return "sah"
	case SplitMedian:
		return "median"
	default:
		return "unknown"
	}
}

// ParseSplitStrategy converts "sah" or "median" to a SplitStrategy.
func ParseSplitStrategy(s string) (SplitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sah", "":
		return SplitSAH, nil
	case "median":
		return SplitMedian, nil
	}
	return 0, fmt.Errorf("invalid split strategy %q, expected sah or median", s)
}

// UnmarshalText lets configuration files name the strategy.
func (s *SplitStrategy) UnmarshalText(text []byte) error {
	v, err := ParseSplitStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (s SplitStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Defaults used by DefaultConfig and to repair invalid settings.
const (
	DefaultMaxLeafSize       = 4
	DefaultMaxDepth          = 32
	DefaultSAHBins           = 16
	DefaultParallelThreshold = 4096

	// MaxSAHBins is the largest bin count a build will use.
	MaxSAHBins = 64
)

// Config controls tree construction.
type Config struct {
	MaxLeafSize int           `toml:"max_leaf_size" json:"max_leaf_size"`
	MaxDepth    int           `toml:"max_depth" json:"max_depth"`
	Strategy    SplitStrategy `toml:"strategy" json:"strategy"`

	// SAHBins is the number of equal-width centroid bins per axis; the
	// SAH evaluates SAHBins-1 candidate planes between them.
	SAHBins int `toml:"sah_bins" json:"sah_bins"`

	// ParallelThreshold is the subtree size at or above which the left
	// child is built on its own goroutine. Zero disables fork-join.
	ParallelThreshold int `toml:"parallel_threshold" json:"parallel_threshold"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxLeafSize:       DefaultMaxLeafSize,
		MaxDepth:          DefaultMaxDepth,
		Strategy:          SplitSAH,
		SAHBins:           DefaultSAHBins,
		ParallelThreshold: DefaultParallelThreshold,
	}
}

// normalized repairs out-of-range settings so that building always
// terminates.
func (c Config) normalized() Config {
	if c.MaxLeafSize < 1 {
		c.MaxLeafSize = 1
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.SAHBins < 2 || c.SAHBins > MaxSAHBins {
		c.SAHBins = DefaultSAHBins
	}
	if c.ParallelThreshold < 0 {
		c.ParallelThreshold = 0
	}
	if c.Strategy != SplitSAH && c.Strategy != SplitMedian {
		c.Strategy = SplitSAH
	}
	return c
}

// Stats summarizes the shape of a built tree.
type Stats struct {
	Nodes      int `json:"nodes"`
	Leaves     int `json:"leaves"`
	MaxDepth   int `json:"max_depth"`
	Primitives int `json:"primitives"`
}

// Tree is a built hierarchy. The zero value and a nil *Tree are both
// valid empty trees.
type Tree struct {
	nodes []Node
	prims []Primitive
	stats Stats
	cfg   Config
}

// IsEmpty reports whether the tree holds no primitives.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.nodes) == 0
}

// Root returns the root node, or false for an empty tree.
func (t *Tree) Root() (Node, bool) {
	if t.IsEmpty() {
		return Node{}, false
	}
	return t.nodes[0], true
}

// Bounds returns the box enclosing every primitive, or aabb.Empty().
func (t *Tree) Bounds() aabb.Box {
	if t.IsEmpty() {
		return aabb.Empty()
	}
	return t.nodes[0].Box
}

// Nodes returns the node arena. Index 0 is the root. The slice is
// shared with the tree and must not be modified.
func (t *Tree) Nodes() []Node {
	if t == nil {
		return nil
	}
	return t.nodes
}

// Primitives returns the tree's primitive copy in leaf order. The slice
// is shared with the tree and must not be modified.
func (t *Tree) Primitives() []Primitive {
	if t == nil {
		return nil
	}
	return t.prims
}

// Stats returns the build statistics.
func (t *Tree) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return t.stats
}

// Config returns the normalized configuration the tree was built with.
func (t *Tree) Config() Config {
	if t == nil {
		return DefaultConfig()
	}
	return t.cfg
}

// Len returns the number of primitives in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.prims)
}

// leafPrims returns the primitives owned by leaf n.
func (t *Tree) leafPrims(n *Node) []Primitive {
	return t.prims[n.First : n.First+n.Count]
}
