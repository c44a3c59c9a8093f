package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/olimci/letitgo/pkg/matcher"
	"github.com/olimci/letitgo/pkg/pathset"
)

func TestResolveBaselineDirectories(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
}

func TestResolveOverrideAddsAndNegates(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".lignore", "!target/\ndata/\n")
	mkdirs(t, repo, "data")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "data", "node_modules")
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestResolveSubPathNegationWarnsOnce(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".lignore", "!target/release/\n")

	core, logs := observer.New(zapcore.WarnLevel)
	res := resolve(t, repo, Options{Logger: zap.New(core)})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Pattern != "!target/release/" || w.Ancestor != filepath.Join(repo, "target") {
		t.Fatalf("unexpected warning: %#v", w)
	}
	if !strings.Contains(w.String(), filepath.Join(repo, "target")) {
		t.Fatalf("warning text does not name the excluded directory: %s", w)
	}
	if logs.FilterMessage("sub-path negation not supported").Len() != 1 {
		t.Fatalf("expected one logged warning, got %v", logs.All())
	}
}

func TestResolveNegationRemovesOnlyNamedPath(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "target", "crates/a/target")
	writeFile(t, repo, "a.log", "")
	writeFile(t, repo, "sub/b.log", "")
	writeFile(t, repo, ".gitignore", "target/\n*.log\n")
	writeFile(t, repo, ".lignore", "!target/\n!*.log\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "a.log", "crates/a/target", "sub/b.log")
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestResolveNestedNegationIsRelativeToItsFile(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "target", "crates/a/target")
	writeFile(t, repo, ".gitignore", "target/\n")
	writeFile(t, repo, "crates/a/.lignore", "!target\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "target")
}

func TestResolveNegationWithoutMatchIsSilent(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".lignore", "!docs/\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestResolveWhitelistWins(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".gitignore", "target/\nnode_modules/\n.env\n")
	writeFile(t, repo, ".env", "SECRET=1\n")
	mkdirs(t, repo, "cache")
	writeFile(t, repo, ".lignore", "cache/\n")

	wl, err := CompileWhitelist([]string{"**/.env", "**/cache"})
	if err != nil {
		t.Fatalf("CompileWhitelist returned error: %v", err)
	}

	res := resolve(t, repo, Options{Whitelist: wl})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
}

func TestResolvePrunesIgnoredDirectories(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".gitignore", "target/\nnode_modules/\n*.log\n")
	writeFile(t, repo, "target/debug/build.log", "")
	writeFile(t, repo, "src/app.log", "")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "src/app.log", "target")
}

func TestResolveFileLevelPattern(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "logs")
	writeFile(t, repo, "logs/debug.log", "")
	writeFile(t, repo, "logs/app.go", "")
	writeFile(t, repo, ".gitignore", "*.log\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "logs/debug.log")
}

func TestResolveNestedIgnoreFilesAreScoped(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "src/vendor", "src/main", "lib/vendor")
	writeFile(t, repo, ".gitignore", "")
	writeFile(t, repo, "src/.gitignore", "vendor/\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "src/vendor")
}

func TestResolveNestedNegationOverridesParent(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "a/build", "b/build")
	writeFile(t, repo, ".gitignore", "build/\n")
	writeFile(t, repo, "b/.gitignore", "!build/\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "a/build")
}

func TestResolveNestedOverrideIsAnchored(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	mkdirs(t, repo, "src/generated", "generated")
	writeFile(t, repo, "src/.lignore", "/generated/\n")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "src/generated", "target")
}

func TestResolveEmptyOverrideIsNoop(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".lignore", "")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
}

func TestResolveWithoutIgnoreFile(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "bare")
	mkdirs(t, repo, ".git", "src", "data")

	res := resolve(t, repo, Options{})
	if res.Paths.Len() != 0 {
		t.Fatalf("expected no exclusions, got %v", res.Paths.Sorted())
	}

	writeFile(t, repo, ".lignore", "data/\n")
	res = resolve(t, repo, Options{})
	assertPaths(t, res.Paths, repo, "data")
}

func TestResolveLeavesNestedRepositoriesAlone(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	mkdirs(t, repo, "sub/.git", "sub/target")

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
}

func TestResolveUsesInfoExcludeAndGlobalPatterns(t *testing.T) {
	t.Parallel()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git/info", "scratch", "out", ".idea")
	writeFile(t, repo, ".git/info/exclude", "scratch/\n")
	writeFile(t, repo, ".gitignore", "out/\n")

	global := matcher.Patterns([]matcher.Line{{Pattern: ".idea/"}, {Pattern: "out/"}}, nil)
	res := resolve(t, repo, Options{GlobalPatterns: global})

	assertPaths(t, res.Paths, repo, ".idea", "out", "scratch")
}

func TestResolveNeverRecordsGitDir(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	writeFile(t, repo, ".gitignore", ".git\n*\n!src/\n")

	res := resolve(t, repo, Options{})
	if res.Paths.Has(filepath.Join(repo, ".git")) {
		t.Fatal(".git must never be excluded")
	}
}

func TestResolveSymlinkCycleTerminates(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	external := filepath.Join(filepath.Dir(repo), "external")
	mkdirs(t, external, "inner")
	writeFile(t, external, "inner/secret.log", "")
	writeFile(t, repo, ".gitignore", "target/\nnode_modules/\n*.log\n")

	if err := os.Symlink(repo, filepath.Join(repo, "src", "loop")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Symlink(external, filepath.Join(repo, "linked")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	res := resolve(t, repo, Options{})

	assertPaths(t, res.Paths, repo, "node_modules", "target")
}

func TestResolveCancelled(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Resolve(ctx, repo, Options{}); err == nil {
		t.Fatal("expected Resolve to fail on a cancelled context")
	}
}

func TestCompileWhitelistRejectsInvalidGlob(t *testing.T) {
	t.Parallel()

	if _, err := CompileWhitelist([]string{"[unterminated"}); err == nil {
		t.Fatal("expected an error for an invalid glob")
	}
}

func TestWhitelistMatchesAbsolutePaths(t *testing.T) {
	t.Parallel()

	wl, err := CompileWhitelist([]string{"**/.env.*", "/data/*/keep", "/Users/me/proj/*"})
	if err != nil {
		t.Fatalf("CompileWhitelist returned error: %v", err)
	}

	if _, ok := wl.Match("/home/u/repo/.env.local"); !ok {
		t.Fatal("expected **/.env.* to match")
	}
	if _, ok := wl.Match("/data/a/keep"); !ok {
		t.Fatal("expected /data/*/keep to match")
	}
	if _, ok := wl.Match("/Users/me/proj/deep/build/out"); !ok {
		t.Fatal("expected a trailing * to cover the whole subtree")
	}
	if _, ok := wl.Match("/Users/me/other/x"); ok {
		t.Fatal("unexpected match outside the globbed directory")
	}
}

func testRepo(t *testing.T) string {
	t.Helper()

	repo := filepath.Join(t.TempDir(), "repo")
	mkdirs(t, repo, ".git", "src", "target/debug", "target/release", "node_modules/foo")
	writeFile(t, repo, ".gitignore", "target/\nnode_modules/\n")
	return repo
}

func resolve(t *testing.T, repo string, opts Options) Result {
	t.Helper()

	res, err := Resolve(context.Background(), repo, opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return res
}

func mkdirs(t *testing.T, root string, rels ...string) {
	t.Helper()

	for _, rel := range rels {
		if err := os.MkdirAll(filepath.Join(root, rel), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func assertPaths(t *testing.T, got pathset.Set, root string, rels ...string) {
	t.Helper()

	want := pathset.New()
	for _, rel := range rels {
		want.Add(filepath.Join(root, rel))
	}
	if !got.Equal(want) {
		t.Fatalf("paths = %v, want %v", got.Sorted(), want.Sorted())
	}
}
