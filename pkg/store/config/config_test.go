package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestTemplateDecodesToDefault(t *testing.T) {
	t.Parallel()

	cfg, unknown, err := Decode(Template)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(unknown) != 0 {
		t.Fatalf("template has unknown keys: %v", unknown)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("template decoded to %#v, want %#v", cfg, Default())
	}
}

func TestDecodePartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, _, err := Decode(`
search_paths = ["/work"]
exclusion_mode = "fixed-path"
batch_size = 50
`)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if !reflect.DeepEqual(cfg.SearchPaths, []string{"/work"}) {
		t.Fatalf("SearchPaths = %v", cfg.SearchPaths)
	}
	if !cfg.Mode.IsFixedPath() {
		t.Fatalf("Mode = %q, want fixed-path", cfg.Mode)
	}
	if cfg.BatchSize != 50 {
		t.Fatalf("BatchSize = %d, want 50", cfg.BatchSize)
	}
	if !reflect.DeepEqual(cfg.Whitelist, Default().Whitelist) {
		t.Fatalf("Whitelist = %v, want defaults", cfg.Whitelist)
	}
	if cfg.Timeout() != DefaultCommandTimeout*time.Second {
		t.Fatalf("Timeout() = %s", cfg.Timeout())
	}
}

func TestDecodeReportsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, unknown, err := Decode("search_path = [\"/typo\"]\n")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !reflect.DeepEqual(unknown, []string{"search_path"}) {
		t.Fatalf("unknown = %v, want [search_path]", unknown)
	}
}

func TestDecodeRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"mode":      `exclusion_mode = "sometimes"`,
		"batch":     `batch_size = 0`,
		"workers":   `workers = -1`,
		"timeout":   `command_timeout_seconds = -5`,
		"malformed": `search_paths = [`,
	}
	for name, text := range cases {
		if _, _, err := Decode(text); err == nil {
			t.Errorf("%s: expected Decode to fail for %q", name, text)
		}
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	if m, err := ParseMode(" sticky "); err != nil || m != ModeSticky {
		t.Fatalf("ParseMode(sticky) = %q, %v", m, err)
	}
	if m, err := ParseMode("fixed-path"); err != nil || m != ModeFixedPath {
		t.Fatalf("ParseMode(fixed-path) = %q, %v", m, err)
	}
	if _, err := ParseMode("fixed_path"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("ParseMode(fixed_path) error = %v, want ErrInvalidMode", err)
	}
}

func TestResolvedPathsExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	cfg := Default()
	search, err := cfg.ResolvedSearchPaths()
	if err != nil {
		t.Fatalf("ResolvedSearchPaths returned error: %v", err)
	}
	if !reflect.DeepEqual(search, []string{filepath.Clean(home)}) {
		t.Fatalf("search paths = %v, want [%s]", search, home)
	}

	ignored, err := cfg.ResolvedIgnoredPaths()
	if err != nil {
		t.Fatalf("ResolvedIgnoredPaths returned error: %v", err)
	}
	if ignored[0] != filepath.Join(home, ".Trash") {
		t.Fatalf("ignored[0] = %s", ignored[0])
	}
}

func TestResolvedPathsRejectEmpty(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.SearchPaths = []string{"  "}
	if _, err := cfg.ResolvedSearchPaths(); err == nil {
		t.Fatal("expected an error for an empty search path")
	}
}
