package bvh

import (
	"math"
	"sort"

	"github.com/chazu/toolclear/pkg/aabb"
)

// split partitions prims in place and returns the size of the left
// half. The result is always in [1, len(prims)-1].
func (b *builder) split(prims []Primitive, box aabb.Box) int {
	centroids := aabb.Empty()
	for _, p := range prims {
		centroids = centroids.Merge(aabb.FromPoints(p.Box.Center()))
	}

	if b.cfg.Strategy == SplitSAH {
		if s, ok := sahSplit(prims, box, centroids, b.cfg.SAHBins); ok {
			if mid := partition(prims, s); mid > 0 && mid < len(prims) {
				return mid
			}
		}
	}
	return medianSplit(prims, centroids)
}

// medianSplit sorts by centroid along the longest axis of the centroid
// bounds and splits at the middle index. When every centroid coincides
// the stable sort leaves the order untouched and this degenerates to an
// even first-half/second-half split.
func medianSplit(prims []Primitive, centroids aabb.Box) int {
	axis := centroids.LongestAxis()
	sort.SliceStable(prims, func(i, j int) bool {
		return aabb.Component(prims[i].Box.Center(), axis) <
			aabb.Component(prims[j].Box.Center(), axis)
	})
	return len(prims) / 2
}

// sahCandidate is a split plane between centroid bins.
type sahCandidate struct {
	axis   aabb.Axis
	bin    int // primitives in bins [0, bin) go left
	bins   int
	lo     float64
	extent float64
	cost   float64
}

// binOf maps a centroid coordinate to its bin on the candidate's axis.
func (c sahCandidate) binOf(v float64) int {
	return binIndex(v, c.lo, c.extent, c.bins)
}

// position returns the coordinate of the split plane.
func (c sahCandidate) position() float64 {
	return c.lo + c.extent*float64(c.bin)/float64(c.bins)
}

func binIndex(v, lo, extent float64, bins int) int {
	i := int((v - lo) / extent * float64(bins))
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}

type sahBin struct {
	box   aabb.Box
	count int
}

// sahSplit evaluates bins-1 candidate planes per axis and returns the one
// with the lowest cost 1 + (la*lc + ra*rc)/parentArea. Axes are tried in
// x, y, z order and candidates in ascending position; only a strictly
// lower cost replaces the current best, which makes the choice
// deterministic. It reports false when no candidate separates the
// primitives or the parent box has no area to normalize by.
func sahSplit(prims []Primitive, box, centroids aabb.Box, bins int) (sahCandidate, bool) {
	parentArea := box.SurfaceArea()
	if parentArea <= 0 || math.IsInf(parentArea, 0) || math.IsNaN(parentArea) {
		return sahCandidate{}, false
	}

	best := sahCandidate{cost: math.Inf(1)}
	found := false

	binned := make([]sahBin, bins)
	rightArea := make([]float64, bins)
	rightCount := make([]int, bins)

	for _, axis := range aabb.Axes {
		lo := aabb.Component(centroids.Min, axis)
		extent := aabb.Component(centroids.Max, axis) - lo
		if extent <= 0 {
			continue
		}

		for i := range binned {
			binned[i] = sahBin{box: aabb.Empty()}
		}
		for _, p := range prims {
			i := binIndex(aabb.Component(p.Box.Center(), axis), lo, extent, bins)
			binned[i].box = binned[i].box.Merge(p.Box)
			binned[i].count++
		}

		// Suffix sweep: rightArea[i] / rightCount[i] describe bins [i, bins).
		acc := aabb.Empty()
		count := 0
		for i := bins - 1; i > 0; i-- {
			acc = acc.Merge(binned[i].box)
			count += binned[i].count
			rightArea[i] = acc.SurfaceArea()
			rightCount[i] = count
		}

		// Prefix sweep over candidate planes 1..bins-1.
		acc = aabb.Empty()
		count = 0
		for i := 1; i < bins; i++ {
			acc = acc.Merge(binned[i-1].box)
			count += binned[i-1].count
			if count == 0 || rightCount[i] == 0 {
				continue
			}
			cost := 1 + (acc.SurfaceArea()*float64(count)+rightArea[i]*float64(rightCount[i]))/parentArea
			if cost < best.cost {
				best = sahCandidate{axis: axis, bin: i, bins: bins, lo: lo, extent: extent, cost: cost}
				found = true
			}
		}
	}
	return best, found
}

// partition moves primitives whose centroid falls left of the candidate
// plane to the front, preserving relative order on both sides, and
// returns the number moved.
func partition(prims []Primitive, c sahCandidate) int {
	left := make([]Primitive, 0, len(prims))
	right := make([]Primitive, 0, len(prims)/2)
	for _, p := range prims {
		if c.binOf(aabb.Component(p.Box.Center(), c.axis)) < c.bin {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	mid := copy(prims, left)
	copy(prims[mid:], right)
	return mid
}
