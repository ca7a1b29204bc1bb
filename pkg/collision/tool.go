package collision

import (
	"math"

	"github.com/chazu/toolclear/pkg/aabb"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"
)

// Tool is the cutting envelope of a tool: a cylinder of Radius whose tip
// sits at the sample position and which extends Length along the tool
// axis, holder included.
type Tool struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
	Length float64 `json:"length"`
}

// Motion distinguishes feed moves from rapid traversals.
type Motion int

const (
	MotionCutting Motion = iota
	MotionRapid
)

func (m Motion) String() string {
	if m == MotionRapid {
		return "rapid"
	}
	return "cutting"
}

// PathSample is one sampled point along a toolpath. A zero Axis means
// the vertical +Z spindle.
type PathSample struct {
	Position v3.Vec `json:"position"`
	Axis     v3.Vec `json:"axis"`
	Motion   Motion `json:"motion"`
}

// Severity ranks encounters. A rapid move through an obstacle is worse
// than a feed move touching one.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// MarshalText renders the severity by name in reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return errors.Errorf("unknown severity %q", text)
	}
	return nil
}

func severityOf(m Motion) Severity {
	if m == MotionRapid {
		return SeverityCritical
	}
	return SeverityWarning
}

var up = v3.Vec{X: 0, Y: 0, Z: 1}

// toolAxis returns the unit tool axis for a sample.
func toolAxis(s PathSample) v3.Vec {
	l := s.Axis.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return up
	}
	return s.Axis.MulScalar(1 / l)
}

// ToolBox returns the box enclosing tool at sample. When the tool axis is
// within verticalTol (as 1 - |cos|) of the Z axis the box is the exact
// radius by length box; otherwise it is the box around the bounding
// sphere of the tilted cylinder.
func ToolBox(tool Tool, sample PathSample, verticalTol float64) aabb.Box {
	p := sample.Position
	r := math.Abs(tool.Radius)
	l := math.Abs(tool.Length)
	axis := toolAxis(sample)

	if 1-math.Abs(axis.Z) <= verticalTol {
		lo, hi := p.Z, p.Z+l
		if axis.Z < 0 {
			lo, hi = p.Z-l, p.Z
		}
		return aabb.New(
			v3.Vec{X: p.X - r, Y: p.Y - r, Z: lo},
			v3.Vec{X: p.X + r, Y: p.Y + r, Z: hi},
		)
	}

	centre := p.Add(axis.MulScalar(l / 2))
	radius := math.Sqrt(l*l/4 + r*r)
	return aabb.FromCenter(centre, v3.Vec{X: radius, Y: radius, Z: radius})
}
