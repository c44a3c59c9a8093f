// Package resolver turns one repository's ignore rules into a minimal,
// directory-granular set of absolute paths to exclude from backup.
//
// Resolution runs in two passes. The baseline pass walks the tree with the
// repository's .gitignore files (plus .git/info/exclude and any global
// rules) and records every ignored entry, pruning ignored directories so
// their descendants are implied rather than listed. The override pass layers
// .lignore files on top: plain lines add paths, negated lines remove
// recorded entries. The whitelist is applied last and always wins.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/olimci/letitgo/pkg/matcher"
	"github.com/olimci/letitgo/pkg/pathset"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

const (
	IgnoreFile   = ".gitignore"
	OverrideFile = ".lignore"

	markerDir = ".git"
)

type Options struct {
	// GlobalPatterns are unanchored rules with the lowest precedence.
	GlobalPatterns []gitignore.Pattern
	Whitelist      Whitelist
	Logger         *zap.Logger
}

// Warning reports an override negation that could not be honored because
// its target lies inside a directory recorded as a whole.
type Warning struct {
	Repo     string
	File     string // override file holding the negation
	Pattern  string // negation as written, including "!"
	Target   string // absolute path the negation resolves to
	Ancestor string // recorded entry that stays excluded
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %q targets %s inside excluded %s; sub-path negation is not supported, %s stays excluded (negate %q to re-include it)",
		w.File, w.Pattern, w.Target, w.Ancestor, w.Ancestor, "!"+filepath.Base(w.Ancestor)+"/")
}

type Result struct {
	Root     string
	Paths    pathset.Set
	Warnings []Warning
}

type negation struct {
	file string
	dir  string
	line matcher.Line
}

type resolution struct {
	root   string
	opts   Options
	logger *zap.Logger

	paths pathset.Set

	negations []negation
	warnings  []Warning
}

// Resolve computes the exclusion set for the repository rooted at root.
// It shares no state with other calls and is safe to run concurrently.
func Resolve(ctx context.Context, root string, opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := &resolution{
		root:   filepath.Clean(root),
		opts:   opts,
		logger: opts.Logger.With(zap.String("repo", filepath.Clean(root))),
		paths:  make(pathset.Set, 16),
	}

	if err := r.baseline(ctx); err != nil {
		return Result{}, err
	}
	if err := r.override(ctx); err != nil {
		return Result{}, err
	}
	r.applyWhitelist()

	return Result{
		Root:     r.root,
		Paths:    r.paths,
		Warnings: r.warnings,
	}, nil
}

func (r *resolution) baseline(ctx context.Context) error {
	rules := matcher.New(r.opts.GlobalPatterns)

	infoExclude := filepath.Join(r.root, markerDir, "info", "exclude")
	ps, err := matcher.ReadFile(infoExclude, nil)
	if err != nil {
		r.logger.Warn("cannot read repository excludes", zap.String("path", infoExclude), zap.Error(err))
	} else {
		rules = rules.With(ps)
	}

	return r.walk(ctx, r.root, nil, rules, walkSpec{
		ruleFile: IgnoreFile,
		source:   "gitignore",
	})
}

func (r *resolution) override(ctx context.Context) error {
	err := r.walk(ctx, r.root, nil, matcher.RuleSet{}, walkSpec{
		ruleFile:     OverrideFile,
		source:       "override",
		skipRecorded: true,
		onRuleFile:   r.collectNegations,
	})
	if err != nil {
		return err
	}

	for _, neg := range r.negations {
		r.applyNegation(neg)
	}
	return nil
}

type walkSpec struct {
	ruleFile string
	source   string
	// skipRecorded leaves directories already in the set untouched.
	skipRecorded bool
	// onRuleFile may filter the lines of each rule file found.
	onRuleFile func(path, dir string, domain []string, lines []matcher.Line) []matcher.Line
}

func (r *resolution) walk(ctx context.Context, dir string, rel []string, rules matcher.RuleSet, ws walkSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			r.logger.Warn("permission denied, skipping", zap.String("path", dir))
		} else {
			r.logger.Warn("cannot read directory, skipping", zap.String("path", dir), zap.Error(err))
		}
		return nil
	}

	for _, entry := range entries {
		if entry.Name() != ws.ruleFile || !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		lines, err := matcher.ReadFileLines(path)
		if err != nil {
			r.logger.Warn("cannot read rule file", zap.String("path", path), zap.Error(err))
			break
		}
		if ws.onRuleFile != nil {
			lines = ws.onRuleFile(path, dir, rel, lines)
		}
		rules = rules.With(matcher.Patterns(lines, rel))
		break
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == markerDir {
			continue
		}

		path := filepath.Join(dir, name)
		childRel := append(rel[:len(rel):len(rel)], name)
		isDir := entry.IsDir()

		if isDir && isRepoRoot(path) {
			r.logger.Debug("nested repository left to its own resolution", zap.String("path", path))
			continue
		}
		if ws.skipRecorded && r.paths.Has(path) {
			continue
		}

		if rules.Match(childRel, isDir) == matcher.Ignored {
			r.record(path, ws.source)
			continue
		}

		if isDir {
			if err := r.walk(ctx, path, childRel, rules, ws); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *resolution) collectNegations(path, dir string, _ []string, lines []matcher.Line) []matcher.Line {
	plain, negated := matcher.Split(lines)
	for _, l := range negated {
		r.negations = append(r.negations, negation{
			file: path,
			dir:  dir,
			line: l,
		})
	}
	return plain
}

func (r *resolution) record(path, source string) {
	r.logger.Debug("excluding", zap.String("path", path), zap.String("source", source))
	r.paths.Add(path)
}

// applyNegation removes the entry the negated line names, resolved against
// the directory of its override file. When that path was never recorded but
// sits below a recorded directory, the negation asks for a sub-path; that is
// reported and the directory stays excluded.
func (r *resolution) applyNegation(neg negation) {
	target := filepath.Join(neg.dir, filepath.FromSlash(strings.Trim(neg.line.Pattern, "/")))
	if r.paths.Has(target) {
		r.logger.Debug("override negation removes", zap.String("path", target), zap.String("pattern", neg.line.Raw()))
		r.paths.Remove(target)
		return
	}

	ancestor, ok := r.recordedAncestor(target)
	if !ok {
		return
	}

	w := Warning{
		Repo:     r.root,
		File:     neg.file,
		Pattern:  neg.line.Raw(),
		Target:   target,
		Ancestor: ancestor,
	}
	r.warnings = append(r.warnings, w)
	r.logger.Warn("sub-path negation not supported",
		zap.String("file", w.File),
		zap.String("pattern", w.Pattern),
		zap.String("excluded", w.Ancestor),
	)
}

func (r *resolution) recordedAncestor(target string) (string, bool) {
	for p := filepath.Dir(target); fileutils.HasPathPrefix(p, r.root) && p != r.root; p = filepath.Dir(p) {
		if r.paths.Has(p) {
			return p, true
		}
	}
	return "", false
}

func (r *resolution) applyWhitelist() {
	if r.opts.Whitelist.Len() == 0 {
		return
	}

	for path := range r.paths {
		if glob, ok := r.opts.Whitelist.Match(path); ok {
			r.logger.Debug("whitelist keeps", zap.String("path", path), zap.String("glob", glob))
			r.paths.Remove(path)
		}
	}
}

func isRepoRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, markerDir))
	return err == nil && info.IsDir()
}
