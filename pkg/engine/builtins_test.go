package engine

import (
	"testing"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/kernel/sdfx"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(tool "em" :radius 3)`,
			expect: `(tool "em" "__kw_radius" 3)`,
		},
		{
			name:   "multiple keywords",
			input:  `(stock "s" :size v :at p)`,
			expect: `(stock "s" "__kw_size" v "__kw_at" p)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "keyword in backtick string preserved",
			input:  "`raw :kw`",
			expect: "`raw :kw`",
		},
		{
			name:   "escaped quote stays inside string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def tool-length 40)`,
			expect: `(def tool_length 40)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 -10 0 -2.5)`,
			expect: `(vec3 -10 0 -2.5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  "; simple comment\n(+ 1 2)",
			expect: "// simple comment\n(+ 1 2)",
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:tool-axis`,
			expect: `"__kw_tool-axis"`,
		},
		{
			name:   "lone colon preserved",
			input:  `: 1`,
			expect: `: 1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Setup builtins
// ---------------------------------------------------------------------------

func evaluate(t *testing.T, eng *Engine, source string) *Setup {
	t.Helper()
	s, evalErrs, err := eng.Evaluate(source)
	require.NoError(t, err)
	require.Empty(t, evalErrs)
	require.NotNil(t, s)
	return s
}

func evalError(t *testing.T, eng *Engine, source string) EvalError {
	t.Helper()
	s, evalErrs, err := eng.Evaluate(source)
	require.NoError(t, err)
	require.Nil(t, s)
	require.NotEmpty(t, evalErrs)
	return evalErrs[0]
}

func TestFixtureBox(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `
(fixture "clamp-1" :min (vec3 10 0 0) :max (vec3 -5 20 30) :kind :clamp :clearance 1.5)
`)
	require.Len(t, s.Fixtures, 1)
	f := s.Fixtures[0]
	require.Equal(t, "clamp-1", f.Name)
	require.Equal(t, collision.KindClamp, f.Kind)
	require.Equal(t, 1.5, f.Clearance)
	require.NotNil(t, f.Box)
	require.Equal(t, aabb.New(vec(-5, 0, 0), vec(10, 20, 30)), *f.Box)
}

func TestFixturePoints(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `
(def jaw (list (vec3 0 0 0) (vec3 5 1 2) (vec3 -1 3 0)))
(fixture "jaw" :points jaw :kind :vise)
`)
	f, ok := s.Fixture("jaw")
	require.True(t, ok)
	require.Equal(t, collision.KindVise, f.Kind)
	require.Len(t, f.Vertices, 3)

	env, err := f.Envelope()
	require.NoError(t, err)
	require.Equal(t, aabb.New(vec(-1, 0, 0), vec(5, 3, 2)), env)
}

func TestStock(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `
(def size (vec3 100 80 20))
(stock "blank" :size size :at (vec3 5 5 0))
`)
	f, ok := s.Fixture("blank")
	require.True(t, ok)
	require.Equal(t, collision.KindStock, f.Kind)
	require.Equal(t, aabb.New(vec(5, 5, 0), vec(105, 85, 20)), *f.Box)
}

func TestPost(t *testing.T) {
	s := evaluate(t, NewEngine(sdfx.New()), `
(post "dowel" :radius 4 :height 30 :at (vec3 10 10 5) :kind :plate)
`)
	f, ok := s.Fixture("dowel")
	require.True(t, ok)
	require.Equal(t, collision.KindPlate, f.Kind)
	require.NotNil(t, f.Solid)

	env, err := f.Envelope()
	require.NoError(t, err)
	require.True(t, env.Equals(aabb.New(vec(6, 6, 5), vec(14, 14, 35)), 1e-6), "envelope %s", env)
}

func TestPostWithoutKernel(t *testing.T) {
	e := evalError(t, NewEngine(nil), `(post "dowel" :radius 4 :height 30)`)
	require.Contains(t, e.Message, "no geometry kernel")
}

func TestTool(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `(tool "6mm-endmill" :radius 3 :length 40.5)`)
	require.NotNil(t, s.Tool)
	require.Equal(t, collision.Tool{Name: "6mm-endmill", Radius: 3, Length: 40.5}, *s.Tool)
}

func TestPathSamples(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `
(rapid (vec3 0 0 50))
(cut (vec3 10 0 -2) :axis (vec3 1 0 1))
`)
	require.Equal(t, []collision.PathSample{
		{Position: vec(0, 0, 50), Motion: collision.MotionRapid},
		{Position: vec(10, 0, -2), Axis: vec(1, 0, 1), Motion: collision.MotionCutting},
	}, s.Path)
}

func TestTraverse(t *testing.T) {
	s := evaluate(t, NewEngine(nil), `
(traverse :from (vec3 0 0 10) :to (vec3 10 20 10) :steps 4)
(traverse :from (vec3 10 20 10) :to (vec3 10 20 50) :rapid)
`)
	require.Len(t, s.Path, 7)
	for i := 0; i < 5; i++ {
		require.Equal(t, collision.MotionCutting, s.Path[i].Motion)
		require.InDelta(t, 2.5*float64(i), s.Path[i].Position.X, 1e-9)
		require.InDelta(t, 5*float64(i), s.Path[i].Position.Y, 1e-9)
	}
	require.Equal(t, vec(10, 20, 10), s.Path[4].Position)
	require.Equal(t, collision.MotionRapid, s.Path[5].Motion)
	require.Equal(t, vec(10, 20, 50), s.Path[6].Position)
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
		{"vec3 type", `(vec3 1 "a" 2)`, "expected number"},
		{"fixture without geometry", `(fixture "f")`, "requires :min/:max or :points"},
		{"fixture half box", `(fixture "f" :min (vec3 0 0 0))`, "given together"},
		{"fixture bad kind", `(fixture "f" :min (vec3 0 0 0) :max (vec3 1 1 1) :kind :chuck)`, "unknown fixture kind"},
		{"fixture negative clearance", `(fixture "f" :min (vec3 0 0 0) :max (vec3 1 1 1) :clearance -1)`, "must not be negative"},
		{"fixture empty points", `(fixture "f" :points (list))`, ":points is empty"},
		{"duplicate fixture", `(stock "s" :size (vec3 1 1 1)) (stock "s" :size (vec3 1 1 1))`, "already defined"},
		{"stock without size", `(stock "s")`, "requires :size"},
		{"missing name", `(stock :size (vec3 1 1 1))`, "missing name"},
		{"tool radius", `(tool "t" :radius 0 :length 10)`, "must be positive"},
		{"second tool", `(tool "a" :radius 1 :length 10) (tool "b" :radius 1 :length 10)`, "already defined"},
		{"cut without point", `(cut)`, "exactly one position"},
		{"traverse without to", `(traverse :from (vec3 0 0 0))`, "requires :from and :to"},
		{"traverse zero steps", `(traverse :from (vec3 0 0 0) :to (vec3 1 1 1) :steps 0)`, "steps must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := evalError(t, NewEngine(nil), tt.source)
			require.Contains(t, e.Error(), tt.want)
		})
	}
}

func TestFullSetup(t *testing.T) {
	source := `
;; A vise-held blank with a hold-down clamp on the left.
(def clearance 0.5)

(stock "blank" :size (vec3 100 60 20))
(fixture "clamp" :min (vec3 -10 20 0) :max (vec3 5 40 28) :kind :clamp :clearance clearance)
(post "dowel" :radius 3 :height 25 :at (vec3 120 30 0))

(tool "6mm-endmill" :radius 3 :length 40)

(rapid (vec3 50 30 60))
(traverse :from (vec3 50 30 18) :to (vec3 2 30 18) :steps 12)
(rapid (vec3 2 30 60))
`
	s := evaluate(t, NewEngine(sdfx.New()), source)
	require.Len(t, s.Fixtures, 3)
	require.Len(t, s.Path, 15)
	require.NotNil(t, s.Tool)

	idx, err := collision.BuildObstacleIndex(s.Fixtures, collision.DefaultOptions())
	require.NoError(t, err)

	opts := collision.DefaultOptions()
	opts.Sweep = false
	encounters := collision.CheckToolpathAgainstIndex(s.Path, *s.Tool, idx, opts)
	require.NotEmpty(t, encounters)

	summary := collision.Summarize(encounters)
	require.Equal(t, 13, summary.Fixtures["blank"], "every cutting sample sits 2mm into the blank")
	require.Positive(t, summary.Fixtures["clamp"])
	require.Zero(t, summary.Fixtures["dowel"])
	require.Zero(t, summary.Critical)
}

// ---------------------------------------------------------------------------
// Solid builtins
// ---------------------------------------------------------------------------

const composedSetup = `
;; A stepped jaw: full height on the right, cut down to 15 on the left.
(def jaw (difference
  (block (vec3 40 20 30))
  (block (vec3 21 22 16) :at (vec3 -1 -1 15))))
(solid "jaw" jaw :kind :vise)

;; A clamp bar turned to run along Y.
(solid "clamp" (translate (rotate (block (vec3 40 10 10)) (vec3 0 0 90)) (vec3 60 0 0)) :kind :clamp)

(solid "knob" (union
  (block (vec3 10 10 5) :at (vec3 100 0 0))
  (cylinder :radius 2 :height 10 :at (vec3 105 5 5))))

(solid "overlap" (intersection
  (block (vec3 20 20 20) :at (vec3 0 100 0))
  (block (vec3 20 20 20) :at (vec3 10 110 10))))
`

func TestSolidFixtures(t *testing.T) {
	k := &sdfx.Kernel{MeshCells: 32}
	s := evaluate(t, NewEngine(k), composedSetup)
	require.Len(t, s.Fixtures, 4)

	tests := []struct {
		name string
		kind collision.FixtureKind
		want aabb.Box
	}{
		{"jaw", collision.KindVise, aabb.New(vec(0, 0, 0), vec(40, 20, 30))},
		{"clamp", collision.KindClamp, aabb.New(vec(50, 0, 0), vec(60, 40, 10))},
		{"knob", collision.KindOther, aabb.New(vec(100, 0, 0), vec(110, 10, 15))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := s.Fixture(tt.name)
			require.True(t, ok)
			require.Equal(t, tt.kind, f.Kind)
			require.Nil(t, f.Box)
			require.NotNil(t, f.Solid)

			env, err := f.Envelope()
			require.NoError(t, err)
			require.True(t, env.Equals(tt.want, 1e-6), "envelope %s", env)
		})
	}
}

func TestSolidFixturesIndexed(t *testing.T) {
	k := &sdfx.Kernel{MeshCells: 32}
	s := evaluate(t, NewEngine(k), composedSetup)

	opts := collision.DefaultOptions()
	opts.Kernel = k
	idx, err := collision.BuildObstacleIndex(s.Fixtures, opts)
	require.NoError(t, err)
	require.NoError(t, idx.Tree.Validate())
	for i := 0; i < idx.Len(); i++ {
		_, ok := idx.Mesh(i)
		require.True(t, ok, "fixture %s is meshed", idx.Fixtures[i].Name)
	}

	down := vec(0, 0, -1)

	// Over the step the surface is 15mm lower than the envelope top.
	hits := idx.Probe(vec(10.3, 10.2, 100), down, 0)
	require.Len(t, hits, 1)
	require.Equal(t, "jaw", hits[0].Fixture)
	require.True(t, hits[0].Exact)
	require.InDelta(t, 85.0, hits[0].Distance, 1.0)

	hits = idx.Probe(vec(30.3, 10.2, 100), down, 0)
	require.Len(t, hits, 1)
	require.InDelta(t, 70.0, hits[0].Distance, 1.0)

	hits = idx.Probe(vec(55.3, 20.2, 100), down, 0)
	require.Len(t, hits, 1)
	require.Equal(t, "clamp", hits[0].Fixture)
	require.True(t, hits[0].Exact)
	require.InDelta(t, 90.0, hits[0].Distance, 1.0)

	// The overlap fixture's mesh covers only the shared corner cube.
	m, ok := idx.Mesh(3)
	require.True(t, ok)
	b := m.Tree().Bounds()
	require.True(t, b.Equals(aabb.New(vec(10, 110, 10), vec(20, 120, 20)), 1.0), "mesh bounds %s", b)

	// A cutting pass through the step region reaches the jaw only in
	// envelope terms.
	tool := collision.Tool{Name: "em", Radius: 2, Length: 20}
	pass := []collision.PathSample{{Position: vec(10, 10, 20), Motion: collision.MotionCutting}}
	got := collision.CheckToolpathAgainstIndex(pass, tool, idx, opts)
	require.Len(t, got, 1)
	require.Equal(t, []string{"jaw"}, got[0].Fixtures)
}

func TestSolidBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"block size", `(block (vec3 0 1 1))`, "size must be positive"},
		{"block arity", `(block)`, "exactly one size"},
		{"cylinder radius", `(cylinder :radius 0 :height 1)`, "must be positive"},
		{"union of one", `(union (block (vec3 1 1 1)))`, "at least two solids"},
		{"union of vec", `(union (block (vec3 1 1 1)) (vec3 1 1 1))`, "expected solid"},
		{"rotate arity", `(rotate (block (vec3 1 1 1)))`, "requires a solid and a vec3"},
		{"translate type", `(translate (vec3 1 1 1) (vec3 1 1 1))`, "expected solid"},
		{"solid without geometry", `(solid "s")`, "requires exactly one solid"},
		{"solid of vec", `(solid "s" (vec3 1 1 1))`, "expected solid"},
		{"solid clearance", `(solid "s" (block (vec3 1 1 1)) :clearance -1)`, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := evalError(t, NewEngine(sdfx.New()), tt.source)
			require.Contains(t, e.Error(), tt.want)
		})
	}

	e := evalError(t, NewEngine(nil), `(block (vec3 1 1 1))`)
	require.Contains(t, e.Message, "no geometry kernel")
}
