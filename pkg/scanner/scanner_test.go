package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFindsRepositories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "repo-a/.git", "repo-b/.git", "not-a-repo/src")

	res, err := Discover(context.Background(), Options{Roots: []string{root}})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	want := []string{filepath.Join(root, "repo-a"), filepath.Join(root, "repo-b")}
	assertRepos(t, res.Repos, want)
}

func TestDiscoverPrunesSkipPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "keep/repo/.git", "skip/repo/.git")

	res, err := Discover(context.Background(), Options{
		Roots: []string{root},
		Skip:  []string{filepath.Join(root, "skip")},
	})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	assertRepos(t, res.Repos, []string{filepath.Join(root, "keep", "repo")})
}

func TestDiscoverPrunesSkipPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "app/.git", "app/node_modules/dep/.git")

	res, err := Discover(context.Background(), Options{
		Roots:        []string{root},
		SkipPatterns: []string{"node_modules"},
	})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	assertRepos(t, res.Repos, []string{filepath.Join(root, "app")})
}

func TestDiscoverFindsNestedRepositories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "outer/.git", "outer/sub/.git")

	res, err := Discover(context.Background(), Options{Roots: []string{root}, Workers: 1})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	assertRepos(t, res.Repos, []string{filepath.Join(root, "outer"), filepath.Join(root, "outer", "sub")})
}

func TestDiscoverDeduplicatesOverlappingRoots(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "d/repo/.git")

	res, err := Discover(context.Background(), Options{Roots: []string{root, filepath.Join(root, "d")}})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	assertRepos(t, res.Repos, []string{filepath.Join(root, "d", "repo")})
}

func TestDiscoverMissingRootIsNotAnError(t *testing.T) {
	t.Parallel()

	res, err := Discover(context.Background(), Options{Roots: []string{"/nonexistent/letitgo/path"}})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(res.Repos) != 0 {
		t.Fatalf("Discover found repos under a missing root: %v", res.Repos)
	}
}

func TestDiscoverDoesNotFollowSymlinks(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	mkdirs(t, base, "real-repo/.git", "search")
	if err := os.Symlink(filepath.Join(base, "real-repo"), filepath.Join(base, "search", "linked")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	// A cycle back to the search root must terminate.
	if err := os.Symlink(filepath.Join(base, "search"), filepath.Join(base, "search", "loop")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	res, err := Discover(context.Background(), Options{Roots: []string{filepath.Join(base, "search")}})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(res.Repos) != 0 {
		t.Fatalf("symlinks should not be traversed, found %v", res.Repos)
	}
}

func TestDiscoverSkipsUnreadableDirectories(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "ok/.git", "locked/inner/.git")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	res, err := Discover(context.Background(), Options{Roots: []string{root}})
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	assertRepos(t, res.Repos, []string{filepath.Join(root, "ok")})
	if len(res.Skipped) != 1 || res.Skipped[0] != locked {
		t.Fatalf("Skipped = %v, want [%s]", res.Skipped, locked)
	}
}

func TestDiscoverHonorsCancellation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "repo/.git")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Discover(ctx, Options{Roots: []string{root}}); err == nil {
		t.Fatal("expected Discover to fail on a cancelled context")
	}
}

func mkdirs(t *testing.T, root string, rels ...string) {
	t.Helper()

	for _, rel := range rels {
		if err := os.MkdirAll(filepath.Join(root, rel), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
	}
}

func assertRepos(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("repos = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("repos = %v, want %v", got, want)
		}
	}
}
