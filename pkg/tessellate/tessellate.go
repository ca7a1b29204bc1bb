// Package tessellate turns named solids into triangle meshes using a
// geometry kernel. One mesh is produced per part.
package tessellate

import (
	"context"

	"github.com/chazu/toolclear/pkg/kernel"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("toolclear:tessellate")

// Part is a named solid to mesh.
type Part struct {
	Name  string
	Solid kernel.Solid
}

// Tessellate meshes every part concurrently and returns the meshes in
// part order, each named after its part. A part without a solid yields a
// nil mesh. The first kernel failure cancels the parts not yet started.
// The kernel must be safe for concurrent use.
func Tessellate(ctx context.Context, parts []Part, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if k == nil {
		return nil, errors.New("tessellate: no geometry kernel")
	}

	meshes := make([]*kernel.Mesh, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		if p.Solid == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := k.ToMesh(p.Solid)
			if err != nil {
				return errors.Wrapf(err, "tessellate: part %q", p.Name)
			}
			m.Name = p.Name
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range meshes {
		if m != nil {
			log.Debugf("tessellated %q: %d triangles", m.Name, m.TriangleCount())
		}
	}
	return meshes, nil
}
