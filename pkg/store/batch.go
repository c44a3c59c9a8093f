package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olimci/letitgo/pkg/store/config"
)

type applyFunc func(ctx context.Context, paths []string, privileged bool) error

// applyDiff submits additions and removals in chunks of at most size paths.
// The two sets are disjoint and run concurrently; chunks within a set run
// one after another.
func (s Store) applyDiff(ctx context.Context, add, remove []string, privileged bool, size int) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	if s.Manager == nil {
		return ErrNoManager
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(add) > 0 {
		g.Go(func() error {
			return s.submit(gctx, "add", s.Manager.Add, add, privileged, size)
		})
	}
	if len(remove) > 0 {
		g.Go(func() error {
			return s.submit(gctx, "remove", s.Manager.Remove, remove, privileged, size)
		})
	}
	return g.Wait()
}

func (s Store) submit(ctx context.Context, verb string, fn applyFunc, paths []string, privileged bool, size int) error {
	batches := chunk(paths, size)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger().Debug("applying batch",
			zap.String("verb", verb),
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("paths", len(batch)),
		)
		if err := fn(ctx, batch, privileged); err != nil {
			return fmt.Errorf("%s exclusions (batch %d/%d): %w", verb, i+1, len(batches), err)
		}
	}
	return nil
}

func chunk(paths []string, size int) [][]string {
	if size <= 0 {
		size = config.DefaultBatchSize
	}

	out := make([][]string, 0, (len(paths)+size-1)/size)
	for len(paths) > size {
		out = append(out, paths[:size:size])
		paths = paths[size:]
	}
	if len(paths) > 0 {
		out = append(out, paths)
	}
	return out
}
