package bvh

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// BuildAll builds one independent tree per primitive group in parallel,
// for example one tree per fixture group. Trees share no state. The
// context is checked before each group starts; a cancelled context
// aborts the remaining groups and returns its error.
func BuildAll(ctx context.Context, groups [][]Primitive, cfg Config) ([]*Tree, error) {
	trees := make([]*Tree, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	for i, prims := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trees[i] = Build(prims, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "bvh: building tree groups")
	}
	return trees, nil
}
