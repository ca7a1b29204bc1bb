package engine

import (
	"fmt"

	"github.com/chazu/toolclear/pkg/aabb"
	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// MaxTraverseSteps bounds the samples a single traverse may generate.
const MaxTraverseSteps = 100000

// builder accumulates the setup while a program runs.
type builder struct {
	setup  *Setup
	kernel kernel.Kernel
}

func (b *builder) addFixture(f collision.Fixture) (zygo.Sexp, error) {
	if _, dup := b.setup.Fixture(f.Name); dup {
		return zygo.SexpNull, fmt.Errorf("fixture %q already defined", f.Name)
	}
	b.setup.Fixtures = append(b.setup.Fixtures, f)
	return &sexpFixture{name: f.Name, kind: f.Kind}, nil
}

// fixtureOptions applies the :kind and :clearance options every fixture
// builtin accepts.
func fixtureOptions(pa kwArgs, f *collision.Fixture) error {
	if v, ok := pa.kw["kind"]; ok {
		k, err := toKind(v)
		if err != nil {
			return fmt.Errorf("kind: %w", err)
		}
		f.Kind = k
	}
	c, err := pa.float("clearance", 0)
	if err != nil {
		return err
	}
	if c < 0 {
		return fmt.Errorf("clearance must not be negative, got %g", c)
	}
	f.Clearance = c
	return nil
}

// sample appends one path sample for rapid and cut.
func (b *builder) sample(fn string, args []zygo.Sexp, m collision.Motion) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("%s requires exactly one position", fn)
	}
	p, err := toVec3(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	axis, err := pa.vec("axis", v3.Vec{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	b.setup.Path = append(b.setup.Path, collision.PathSample{Position: p, Axis: axis, Motion: m})
	return pa.positional[0], nil
}

// registerBuiltins installs the setup builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range aabb.Axes {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (fixture "clamp-1" :min (vec3 ...) :max (vec3 ...) :kind :clamp :clearance 1)
	// (fixture "jaw" :points (list (vec3 ...) ...))
	env.AddFunction("fixture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fixture: %w", err)
		}
		f := collision.Fixture{Name: fname}

		switch {
		case pa.has("min") || pa.has("max"):
			if !pa.has("min") || !pa.has("max") {
				return zygo.SexpNull, fmt.Errorf("fixture %q: :min and :max must be given together", fname)
			}
			lo, err := pa.vec("min", v3.Vec{})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("fixture %q: %w", fname, err)
			}
			hi, err := pa.vec("max", v3.Vec{})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("fixture %q: %w", fname, err)
			}
			box := aabb.New(lo, hi)
			f.Box = &box
		case pa.has("points"):
			items, err := sexpListToSlice(pa.kw["points"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("fixture %q: points: %w", fname, err)
			}
			for i, item := range items {
				p, err := toVec3(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("fixture %q: point %d: %w", fname, i, err)
				}
				f.Vertices = append(f.Vertices, p)
			}
			if len(f.Vertices) == 0 {
				return zygo.SexpNull, fmt.Errorf("fixture %q: :points is empty", fname)
			}
		default:
			return zygo.SexpNull, fmt.Errorf("fixture %q: requires :min/:max or :points", fname)
		}

		if err := fixtureOptions(pa, &f); err != nil {
			return zygo.SexpNull, fmt.Errorf("fixture %q: %w", fname, err)
		}
		return b.addFixture(f)
	})

	// (stock "blank" :size (vec3 100 80 20) :at (vec3 0 0 0))
	env.AddFunction("stock", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stock: %w", err)
		}
		if !pa.has("size") {
			return zygo.SexpNull, fmt.Errorf("stock %q: requires :size", fname)
		}
		size, err := pa.vec("size", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stock %q: %w", fname, err)
		}
		if size.X < 0 || size.Y < 0 || size.Z < 0 {
			return zygo.SexpNull, fmt.Errorf("stock %q: size must not be negative", fname)
		}
		at, err := pa.vec("at", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("stock %q: %w", fname, err)
		}

		f := collision.BoxFixture(fname, collision.KindStock, at, at.Add(size))
		if err := fixtureOptions(pa, &f); err != nil {
			return zygo.SexpNull, fmt.Errorf("stock %q: %w", fname, err)
		}
		return b.addFixture(f)
	})

	// (post "dowel" :radius 4 :height 30 :at (vec3 10 10 0))
	// A vertical cylinder standing on :at, built with the geometry kernel.
	env.AddFunction("post", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("post: %w", err)
		}
		if err := b.needKernel(fmt.Sprintf("post %q", fname)); err != nil {
			return zygo.SexpNull, err
		}
		cyl, err := b.cylinder(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("post %q: %w", fname, err)
		}
		f := collision.Fixture{Name: fname, Solid: cyl}
		if err := fixtureOptions(pa, &f); err != nil {
			return zygo.SexpNull, fmt.Errorf("post %q: %w", fname, err)
		}
		return b.addFixture(f)
	})

	// (tool "6mm-endmill" :radius 3 :length 40)
	env.AddFunction("tool", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		tname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool: %w", err)
		}
		if b.setup.Tool != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: tool %q already defined", tname, b.setup.Tool.Name)
		}
		r, err := pa.float("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: %w", tname, err)
		}
		l, err := pa.float("length", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: %w", tname, err)
		}
		if r <= 0 || l <= 0 {
			return zygo.SexpNull, fmt.Errorf("tool %q: :radius and :length must be positive", tname)
		}
		b.setup.Tool = &collision.Tool{Name: tname, Radius: r, Length: l}
		return zygo.SexpNull, nil
	})

	// (rapid (vec3 0 0 50) :axis (vec3 0 0 1))
	env.AddFunction("rapid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.sample("rapid", args, collision.MotionRapid)
	})

	// (cut (vec3 10 10 -2))
	env.AddFunction("cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.sample("cut", args, collision.MotionCutting)
	})

	// (traverse :from (vec3 ...) :to (vec3 ...) :steps 10 :rapid)
	// Emits steps+1 evenly spaced samples from :from to :to inclusive.
	// :rapid is a flag and must come last.
	env.AddFunction("traverse", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if !pa.has("from") || !pa.has("to") {
			return zygo.SexpNull, fmt.Errorf("traverse requires :from and :to")
		}
		from, err := pa.vec("from", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("traverse: %w", err)
		}
		to, err := pa.vec("to", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("traverse: %w", err)
		}
		axis, err := pa.vec("axis", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("traverse: %w", err)
		}
		steps := 1
		if v, ok := pa.kw["steps"]; ok {
			if steps, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("traverse: steps: %w", err)
			}
		}
		if steps < 1 || steps > MaxTraverseSteps {
			return zygo.SexpNull, fmt.Errorf("traverse: steps must be between 1 and %d, got %d", MaxTraverseSteps, steps)
		}

		m := collision.MotionCutting
		if pa.has("rapid") {
			m = collision.MotionRapid
		}
		delta := to.Sub(from)
		for i := 0; i <= steps; i++ {
			p := from.Add(delta.MulScalar(float64(i) / float64(steps)))
			if i == steps {
				p = to
			}
			b.setup.Path = append(b.setup.Path, collision.PathSample{Position: p, Axis: axis, Motion: m})
		}
		return zygo.SexpNull, nil
	})

	registerSolidBuiltins(env, b)
}
