package collision

import (
	"math"
	"sort"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/bvh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Encounter is a path sample whose tool envelope overlaps at least one
// obstacle envelope. Fixtures lists the candidates by name in index
// order; exact contact is left to the caller.
type Encounter struct {
	SampleIndex    int      `json:"sample_index"`
	Position       v3.Vec   `json:"position"`
	CandidateCount int      `json:"candidate_count"`
	Severity       Severity `json:"severity"`
	Fixtures       []string `json:"fixtures"`
}

// CheckToolpathAgainstIndex sweeps tool along path and returns one
// encounter per sample whose envelope hits the index, in path order. A
// negative or non-finite clearance is treated as zero.
func CheckToolpathAgainstIndex(path []PathSample, tool Tool, idx *ObstacleIndex, opts Options) []Encounter {
	if idx.Len() == 0 || len(path) == 0 {
		return nil
	}

	clearance := opts.Clearance
	if !(clearance >= 0) || math.IsInf(clearance, 0) {
		log.Warningf("ignoring clearance %g, checking with none", clearance)
		clearance = 0
	}

	var out []Encounter
	prev := aabb.Empty()
	for i, s := range path {
		env := ToolBox(tool, s, opts.VerticalTolerance)
		query := env
		if opts.Sweep {
			query = query.Merge(prev)
		}
		prev = env

		hits := idx.Tree.Query(query.Expand(clearance))
		if len(hits) == 0 {
			continue
		}
		sort.Slice(hits, func(a, b int) bool { return hits[a].Index < hits[b].Index })

		out = append(out, Encounter{
			SampleIndex:    i,
			Position:       s.Position,
			CandidateCount: len(hits),
			Severity:       severityOf(s.Motion),
			Fixtures: lo.Map(hits, func(p bvh.Primitive, _ int) string {
				return idx.Fixtures[p.Index].Name
			}),
		})
	}

	log.Debugf("checked %d samples of %q against index %s: %d encounters",
		len(path), tool.Name, idx.ID, len(out))
	return out
}

// ProbeHit is a fixture struck by a probe ray. Exact is set when the
// distance was measured against the fixture's tessellated surface rather
// than its envelope.
type ProbeHit struct {
	Fixture  string  `json:"fixture"`
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
	Point    v3.Vec  `json:"point"`
	Exact    bool    `json:"exact"`
}

// Probe casts a ray from origin along dir and returns the fixtures it
// hits within maxDistance, nearest first. A non-positive maxDistance is
// unbounded. Distances are in units of dir's length.
func (idx *ObstacleIndex) Probe(origin, dir v3.Vec, maxDistance float64) []ProbeHit {
	if idx.Len() == 0 {
		return nil
	}
	r := aabb.NewRay(origin, dir)

	exact := map[int]bool{}
	hits := idx.Tree.Raycast(r, maxDistance, func(p bvh.Primitive, r aabb.Ray, tMax float64) (float64, bool) {
		if m, ok := idx.meshes[p.Index]; ok {
			h, ok := m.Closest(r, tMax)
			exact[p.Index] = ok
			return h.Distance, ok
		}
		return bvh.BoxIntersect(p, r, tMax)
	})

	return lo.Map(hits, func(h bvh.Hit, _ int) ProbeHit {
		return ProbeHit{
			Fixture:  idx.Fixtures[h.Index].Name,
			Index:    h.Index,
			Distance: h.Distance,
			Point:    r.At(h.Distance),
			Exact:    exact[h.Index],
		}
	})
}

// Summary totals a list of encounters.
type Summary struct {
	Samples  int            `json:"samples"`
	Warning  int            `json:"warning"`
	Critical int            `json:"critical"`
	Fixtures map[string]int `json:"fixtures"`
}

// Clear reports whether no encounter was found.
func (s Summary) Clear() bool {
	return s.Samples == 0
}

// Summarize counts encounters by severity and by fixture.
func Summarize(encounters []Encounter) Summary {
	bySeverity := lo.CountValuesBy(encounters, func(e Encounter) Severity { return e.Severity })
	names := lo.FlatMap(encounters, func(e Encounter, _ int) []string { return e.Fixtures })
	return Summary{
		Samples:  len(encounters),
		Warning:  bySeverity[SeverityWarning],
		Critical: bySeverity[SeverityCritical],
		Fixtures: lo.CountValues(names),
	}
}

func sortPairs(pairs []bvh.Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.Index != pairs[j].A.Index {
			return pairs[i].A.Index < pairs[j].A.Index
		}
		return pairs[i].B.Index < pairs[j].B.Index
	})
}
