package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olimci/letitgo/pkg/pathset"
	"github.com/olimci/letitgo/pkg/resolver"
	"github.com/olimci/letitgo/pkg/scanner"
	"github.com/olimci/letitgo/pkg/store/cache"
	"github.com/olimci/letitgo/pkg/store/config"
	"github.com/olimci/letitgo/pkg/store/runlock"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

type RunOptions struct {
	// SearchPaths replaces the configured search paths for this run.
	SearchPaths []string
	// Preview computes the diff without calling the backend or writing the cache.
	Preview bool
}

type ListOptions struct {
	StaleOnly bool
	// Verify asks the backend whether each existing path is still excluded.
	Verify bool
}

type CleanOptions struct {
	Preview bool
}

type ResetOptions struct {
	Preview   bool
	BatchSize int
}

// Run performs one full cycle: scan, resolve, diff against the cache, apply
// the diff and persist the new cache. Nothing is applied or written unless
// every step before it succeeded.
func (s Store) Run(ctx context.Context, cfg config.Config, opts RunOptions) (RunResult, error) {
	start := time.Now()
	logger := s.logger()

	if err := cfg.Validate(); err != nil {
		return RunResult{}, err
	}
	if !opts.Preview && s.Manager == nil {
		return RunResult{}, ErrNoManager
	}

	lck, err := s.acquire()
	if err != nil {
		return RunResult{}, err
	}
	defer s.release(lck)

	prev, err := cache.Load(s.CachePath())
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{
		Preview:  opts.Preview,
		Mode:     cfg.Mode,
		Mismatch: s.checkMode(prev, cfg.Mode),
	}

	roots, err := s.searchRoots(cfg, opts.SearchPaths)
	if err != nil {
		return RunResult{}, err
	}
	skip, err := cfg.ResolvedIgnoredPaths()
	if err != nil {
		return RunResult{}, fmt.Errorf("ignored_paths: %w", err)
	}
	whitelist, err := resolver.CompileWhitelist(cfg.Whitelist)
	if err != nil {
		return RunResult{}, err
	}
	global, err := resolver.LoadGlobalPatterns(cfg.GlobalIgnoreFile, cfg.GitGlobalExcludes)
	if err != nil {
		return RunResult{}, err
	}

	logger.Info("scanning for repositories", zap.Strings("roots", roots))
	scan, err := scanner.Discover(ctx, scanner.Options{
		Roots:        roots,
		Skip:         skip,
		SkipPatterns: cfg.SkipPatterns,
		Workers:      cfg.Workers,
		Logger:       logger,
	})
	if err != nil {
		return RunResult{}, err
	}
	res.Repos = scan.Repos
	res.Skipped = scan.Skipped
	logger.Info("found repositories", zap.Int("count", len(scan.Repos)))

	curr, warnings, err := resolveAll(ctx, scan.Repos, cfg.Workers, resolver.Options{
		GlobalPatterns: global,
		Whitelist:      whitelist,
		Logger:         logger,
	})
	if err != nil {
		return RunResult{}, err
	}
	res.Warnings = warnings
	res.Total = curr.Len()

	add, remove := cache.Diff(prev.PathSet(), curr)
	res.Added = add.Sorted()
	res.Removed = remove.Sorted()

	if opts.Preview {
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := s.applyDiff(ctx, res.Added, res.Removed, cfg.Mode.IsFixedPath(), cfg.BatchSize); err != nil {
		return RunResult{}, err
	}

	if err := cache.Save(s.CachePath(), cache.New(cfg.Mode, curr, time.Now())); err != nil {
		return RunResult{}, err
	}

	res.Duration = time.Since(start)
	logger.Info("run complete",
		zap.Int("repos", len(res.Repos)),
		zap.Int("added", len(res.Added)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("total", res.Total),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// List reads the cache without scanning.
func (s Store) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	if opts.Verify && s.Manager == nil {
		return ListResult{}, ErrNoManager
	}

	rec, err := cache.Load(s.CachePath())
	if err != nil {
		return ListResult{}, err
	}

	res := ListResult{Record: rec}
	for _, p := range rec.Paths {
		exists, err := fileutils.Exists(p)
		if err != nil {
			s.logger().Warn("cannot stat cached path", zap.String("path", p), zap.Error(err))
			exists = true
		}
		if opts.StaleOnly && exists {
			continue
		}

		entry := ListEntry{Path: p, Exists: exists}
		if opts.Verify && exists {
			excluded, err := s.Manager.IsExcluded(ctx, p)
			if err != nil {
				return ListResult{}, fmt.Errorf("verify %s: %w", p, err)
			}
			entry.Excluded = &excluded
		}
		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// Clean drops cached paths that no longer exist, from the backend and from
// the cache.
func (s Store) Clean(ctx context.Context, cfg config.Config, opts CleanOptions) (CleanResult, error) {
	if err := cfg.Validate(); err != nil {
		return CleanResult{}, err
	}
	if !opts.Preview && s.Manager == nil {
		return CleanResult{}, ErrNoManager
	}

	lck, err := s.acquire()
	if err != nil {
		return CleanResult{}, err
	}
	defer s.release(lck)

	rec, err := cache.Load(s.CachePath())
	if err != nil {
		return CleanResult{}, err
	}

	res := CleanResult{
		Preview:  opts.Preview,
		Mismatch: s.checkMode(rec, cfg.Mode),
	}

	kept := make([]string, 0, len(rec.Paths))
	for _, p := range rec.Paths {
		exists, err := fileutils.Exists(p)
		if err != nil {
			return CleanResult{}, fmt.Errorf("stat %s: %w", p, err)
		}
		if exists {
			kept = append(kept, p)
		} else {
			res.Stale = append(res.Stale, p)
		}
	}
	res.Remaining = len(kept)

	if opts.Preview || len(res.Stale) == 0 {
		return res, nil
	}

	if err := s.applyDiff(ctx, nil, res.Stale, cfg.Mode.IsFixedPath(), cfg.BatchSize); err != nil {
		return CleanResult{}, err
	}

	rec.Paths = kept
	if err := cache.Save(s.CachePath(), rec); err != nil {
		return CleanResult{}, err
	}

	s.logger().Info("removed stale exclusions", zap.Int("count", len(res.Stale)))
	return res, nil
}

// Reset removes every recorded exclusion, using the mode that applied them,
// and deletes the cache.
func (s Store) Reset(ctx context.Context, opts ResetOptions) (ResetResult, error) {
	if !opts.Preview && s.Manager == nil {
		return ResetResult{}, ErrNoManager
	}

	lck, err := s.acquire()
	if err != nil {
		return ResetResult{}, err
	}
	defer s.release(lck)

	rec, err := cache.Load(s.CachePath())
	if err != nil {
		return ResetResult{}, err
	}

	res := ResetResult{
		Preview: opts.Preview,
		Mode:    rec.Mode,
		Removed: rec.Paths,
	}
	if opts.Preview {
		return res, nil
	}

	if err := s.applyDiff(ctx, nil, rec.Paths, rec.Mode.IsFixedPath(), opts.BatchSize); err != nil {
		return ResetResult{}, err
	}
	if err := fileutils.RemoveFile(s.CachePath()); err != nil {
		return ResetResult{}, fmt.Errorf("remove %s: %w", s.CachePath(), err)
	}

	s.logger().Info("reset complete", zap.Int("removed", len(rec.Paths)), zap.String("mode", rec.Mode.String()))
	return res, nil
}

func (s Store) acquire() (*runlock.Lock, error) {
	lck, err := runlock.TryAcquire(s.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			s.logger().Warn("another letitgo instance is running, skipping", zap.String("lock", s.LockPath()))
			return nil, ErrLocked
		}
		return nil, err
	}
	return lck, nil
}

func (s Store) release(lck *runlock.Lock) {
	if err := lck.Release(); err != nil {
		s.logger().Warn("release lock", zap.Error(err))
	}
}

func (s Store) checkMode(rec cache.Record, configured config.ExclusionMode) *ModeMismatch {
	if rec.IsEmpty() || rec.Mode == configured {
		return nil
	}

	s.logger().Warn("exclusion mode changed since the last run; run `letitgo reset` with the old mode to clear its exclusions",
		zap.String("cached", rec.Mode.String()),
		zap.String("configured", configured.String()),
	)
	return &ModeMismatch{Cached: rec.Mode, Configured: configured}
}

func (s Store) searchRoots(cfg config.Config, override []string) ([]string, error) {
	if len(override) == 0 {
		roots, err := cfg.ResolvedSearchPaths()
		if err != nil {
			return nil, fmt.Errorf("search_paths: %w", err)
		}
		return roots, nil
	}

	roots := make([]string, 0, len(override))
	for _, p := range override {
		abs, err := fileutils.AbsPath(p)
		if err != nil {
			return nil, fmt.Errorf("search path: %w", err)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// resolveAll resolves every repository on a bounded pool. Each worker fills
// its own slot; the slots are merged once all are done.
func resolveAll(ctx context.Context, repos []string, workers int, opts resolver.Options) (pathset.Set, []resolver.Warning, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]resolver.Result, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			res, err := resolver.Resolve(gctx, repo, opts)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", repo, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := pathset.New()
	var warnings []resolver.Warning
	for _, res := range results {
		merged.Merge(res.Paths)
		warnings = append(warnings, res.Warnings...)
	}
	return merged, warnings, nil
}
