// Package scanner discovers git working trees below a set of search roots.
package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

// MarkerDir identifies a repository root.
const MarkerDir = ".git"

type Options struct {
	Roots []string // absolute search roots
	Skip  []string // absolute directories never descended into
	// SkipPatterns are gitignore-style patterns evaluated against paths
	// relative to the search root; matching directories are pruned.
	SkipPatterns []string
	Workers      int
	Logger       *zap.Logger
}

type Result struct {
	Repos   []string // sorted, deduplicated repository roots
	Skipped []string // directories that could not be read
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type walker struct {
	opts     Options
	patterns *ignore.GitIgnore

	mu      sync.Mutex
	repos   map[string]struct{}
	skipped []string
}

// Discover walks every root in parallel without following symlinks and
// returns the repository roots it finds. Unreadable directories are logged
// and skipped; only context cancellation aborts the scan.
func Discover(ctx context.Context, opts Options) (Result, error) {
	opts.applyDefaults()

	w := &walker{
		opts:  opts,
		repos: make(map[string]struct{}, 64),
	}
	if len(opts.SkipPatterns) > 0 {
		w.patterns = ignore.CompileIgnoreLines(opts.SkipPatterns...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, raw := range opts.Roots {
		root := filepath.Clean(raw)
		info, err := os.Stat(root)
		if err != nil {
			opts.Logger.Warn("search path unavailable", zap.String("path", root), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			opts.Logger.Warn("search path is not a directory", zap.String("path", root))
			continue
		}

		w.schedule(gctx, g, root, root)
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	repos := make([]string, 0, len(w.repos))
	for r := range w.repos {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	sort.Strings(w.skipped)

	return Result{Repos: repos, Skipped: w.skipped}, nil
}

// schedule hands dir to a pool worker, or walks it inline when the pool is
// saturated so a deep tree can never deadlock waiting on itself.
func (w *walker) schedule(ctx context.Context, g *errgroup.Group, root, dir string) {
	fn := func() error {
		return w.visit(ctx, g, root, dir)
	}
	if !g.TryGo(fn) {
		// visit only fails on cancellation, which Discover checks after Wait.
		_ = fn()
	}
}

func (w *walker) visit(ctx context.Context, g *errgroup.Group, root, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.isSkipped(root, dir) {
		w.opts.Logger.Debug("skipping directory", zap.String("path", dir))
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			w.opts.Logger.Warn("permission denied, skipping", zap.String("path", dir))
		} else {
			w.opts.Logger.Warn("cannot read directory, skipping", zap.String("path", dir), zap.Error(err))
		}
		w.recordSkipped(dir)
		return nil
	}

	for _, entry := range entries {
		if entry.Name() == MarkerDir && entry.IsDir() {
			w.recordRepo(dir)
			break
		}
	}

	for _, entry := range entries {
		// DirEntry reports symlinks by their own type, so links are never walked.
		if !entry.IsDir() || entry.Name() == MarkerDir {
			continue
		}
		w.schedule(ctx, g, root, filepath.Join(dir, entry.Name()))
	}

	return nil
}

func (w *walker) isSkipped(root, dir string) bool {
	for _, skip := range w.opts.Skip {
		if fileutils.HasPathPrefix(dir, skip) {
			return true
		}
	}

	if w.patterns == nil || dir == root {
		return false
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return w.patterns.MatchesPath(filepath.ToSlash(rel) + "/")
}

func (w *walker) recordRepo(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, seen := w.repos[dir]; !seen {
		w.opts.Logger.Debug("found repository", zap.String("path", dir))
	}
	w.repos[dir] = struct{}{}
}

func (w *walker) recordSkipped(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.skipped = append(w.skipped, dir)
}
