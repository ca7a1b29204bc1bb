package engine

import (
	"fmt"

	"github.com/chazu/toolclear/pkg/collision"
	"github.com/chazu/toolclear/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// sexpSolid carries a kernel solid between the solid builtins until a
// solid fixture places it on the table.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(solid %s)", s.solid.Bounds())
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// toSolid extracts a kernel solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func (b *builder) needKernel(fn string) error {
	if b.kernel == nil {
		return fmt.Errorf("%s: no geometry kernel configured", fn)
	}
	return nil
}

// cylinder reads :radius, :height and :at and returns a vertical
// cylinder standing on :at.
func (b *builder) cylinder(pa kwArgs) (kernel.Solid, error) {
	r, err := pa.float("radius", 0)
	if err != nil {
		return nil, err
	}
	h, err := pa.float("height", 0)
	if err != nil {
		return nil, err
	}
	if r <= 0 || h <= 0 {
		return nil, fmt.Errorf(":radius and :height must be positive")
	}
	at, err := pa.vec("at", v3.Vec{})
	if err != nil {
		return nil, err
	}

	cyl, err := b.kernel.Cylinder(h, r)
	if err != nil {
		return nil, err
	}
	return b.kernel.Translate(cyl, at.X, at.Y, at.Z+h/2), nil
}

// combine folds two or more solids left to right with op.
func (b *builder) combine(fn string, args []zygo.Sexp, op func(a, c kernel.Solid) kernel.Solid) (zygo.Sexp, error) {
	if err := b.needKernel(fn); err != nil {
		return zygo.SexpNull, err
	}
	if len(args) < 2 {
		return zygo.SexpNull, fmt.Errorf("%s requires at least two solids, got %d", fn, len(args))
	}

	var acc kernel.Solid
	for i, arg := range args {
		s, err := toSolid(arg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		if i == 0 {
			acc = s
			continue
		}
		acc = op(acc, s)
	}
	return &sexpSolid{solid: acc}, nil
}

// transform applies op to a solid and a coordinate.
func (b *builder) transform(fn string, args []zygo.Sexp, op func(s kernel.Solid, v v3.Vec) kernel.Solid) (zygo.Sexp, error) {
	if err := b.needKernel(fn); err != nil {
		return zygo.SexpNull, err
	}
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3", fn)
	}
	s, err := toSolid(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	v, err := toVec3(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return &sexpSolid{solid: op(s, v)}, nil
}

// registerSolidBuiltins installs the constructive geometry builtins.
// Solids only become obstacles once passed to (solid "name" ...).
func registerSolidBuiltins(env *zygo.Zlisp, b *builder) {

	// (block (vec3 40 20 30) :at (vec3 0 0 0))
	// A box with its minimum corner at :at.
	env.AddFunction("block", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("block"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("block requires exactly one size")
		}
		size, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: %w", err)
		}
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return zygo.SexpNull, fmt.Errorf("block: size must be positive")
		}
		at, err := pa.vec("at", v3.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: %w", err)
		}

		s, err := b.kernel.Box(size.X, size.Y, size.Z)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("block: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Translate(s, at.X, at.Y, at.Z)}, nil
	})

	// (cylinder :radius 4 :height 30 :at (vec3 10 10 0))
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("cylinder"); err != nil {
			return zygo.SexpNull, err
		}
		s, err := b.cylinder(parseArgs(args))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	// (union a b ...)
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.combine("union", args, func(x, y kernel.Solid) kernel.Solid { return b.kernel.Union(x, y) })
	})

	// (difference a b ...) removes every later solid from a.
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.combine("difference", args, func(x, y kernel.Solid) kernel.Solid { return b.kernel.Difference(x, y) })
	})

	// (intersection a b ...)
	env.AddFunction("intersection", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.combine("intersection", args, func(x, y kernel.Solid) kernel.Solid { return b.kernel.Intersection(x, y) })
	})

	// (translate s (vec3 10 0 0))
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.transform("translate", args, func(s kernel.Solid, v v3.Vec) kernel.Solid {
			return b.kernel.Translate(s, v.X, v.Y, v.Z)
		})
	})

	// (rotate s (vec3 0 15 0))
	// Euler angles in degrees about the origin, applied X then Y then Z.
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.transform("rotate", args, func(s kernel.Solid, v v3.Vec) kernel.Solid {
			return b.kernel.Rotate(s, v.X, v.Y, v.Z)
		})
	})

	// (solid "jaw" (difference ...) :kind :vise :clearance 1)
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := pa.name()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %w", err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("solid %q: requires exactly one solid", fname)
		}
		s, err := toSolid(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid %q: %w", fname, err)
		}

		f := collision.Fixture{Name: fname, Solid: s}
		if err := fixtureOptions(pa, &f); err != nil {
			return zygo.SexpNull, fmt.Errorf("solid %q: %w", fname, err)
		}
		return b.addFixture(f)
	})
}
