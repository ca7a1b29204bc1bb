package collision

import (
	"math"
	"strings"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

var (
	// ErrNoGeometry is returned for a fixture with no box, vertices or solid.
	ErrNoGeometry = errors.New("fixture has no geometry")
	// ErrBadClearance is returned for a negative or non-finite clearance.
	ErrBadClearance = errors.New("clearance must be a finite non-negative number")
)

// FixtureKind classifies obstacles for reporting.
type FixtureKind int

const (
	KindOther FixtureKind = iota
	KindClamp
	KindVise
	KindStock
	KindPlate
)

var kindNames = map[FixtureKind]string{
	KindOther: "other",
	KindClamp: "clamp",
	KindVise:  "vise",
	KindStock: "stock",
	KindPlate: "plate",
}

func (k FixtureKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "other"
}

// ParseFixtureKind converts a kind name to a FixtureKind. The empty
// string is KindOther.
func ParseFixtureKind(s string) (FixtureKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindOther, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindOther, errors.Errorf("unknown fixture kind %q", s)
}

// MarshalText renders the kind by name.
func (k FixtureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fixture describes one static obstacle on the machine table. Its
// envelope comes from Box when set, else from the bounds of Vertices,
// else from the bounds of Solid; it is then grown by Clearance.
type Fixture struct {
	Name      string       `json:"name"`
	Kind      FixtureKind  `json:"kind"`
	Box       *aabb.Box    `json:"box,omitempty"`
	Vertices  []v3.Vec     `json:"vertices,omitempty"`
	Solid     kernel.Solid `json:"-"`
	Clearance float64      `json:"clearance"`
}

// BoxFixture returns a fixture spanning min and max.
func BoxFixture(name string, kind FixtureKind, min, max v3.Vec) Fixture {
	b := aabb.New(min, max)
	return Fixture{Name: name, Kind: kind, Box: &b}
}

func (f Fixture) hasBox() bool {
	return f.Box != nil && !f.Box.IsEmpty()
}

// fromSolid reports whether Envelope takes its bounds from Solid.
func (f Fixture) fromSolid() bool {
	return f.Solid != nil && !f.hasBox() && len(f.Vertices) == 0
}

// Envelope returns the fixture's box grown by its own clearance.
func (f Fixture) Envelope() (aabb.Box, error) {
	if f.Clearance < 0 || math.IsNaN(f.Clearance) || math.IsInf(f.Clearance, 0) {
		return aabb.Empty(), errors.Wrapf(ErrBadClearance, "fixture %q", f.Name)
	}

	var box aabb.Box
	switch {
	case f.hasBox():
		box = *f.Box
	case len(f.Vertices) > 0:
		box = aabb.FromPoints(f.Vertices...)
	case f.Solid != nil:
		box = f.Solid.Bounds()
	default:
		box = aabb.Empty()
	}
	if box.IsEmpty() {
		return box, errors.Wrapf(ErrNoGeometry, "fixture %q", f.Name)
	}
	return box.Expand(f.Clearance), nil
}
