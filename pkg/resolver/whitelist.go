package resolver

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Whitelist force-includes absolute paths matching any of its globs.
// Both `*` and `**` match across directory boundaries, so `/proj/*` covers
// the whole subtree.
type Whitelist struct {
	patterns []string
	globs    []glob.Glob
}

func CompileWhitelist(patterns []string) (Whitelist, error) {
	w := Whitelist{}
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}

		g, err := glob.Compile(filepath.ToSlash(pattern))
		if err != nil {
			return Whitelist{}, fmt.Errorf("invalid whitelist glob %q: %w", pattern, err)
		}
		w.patterns = append(w.patterns, pattern)
		w.globs = append(w.globs, g)
	}
	return w, nil
}

func (w Whitelist) Len() int {
	return len(w.globs)
}

// Match returns the first glob matching path, if any.
func (w Whitelist) Match(path string) (string, bool) {
	candidate := filepath.ToSlash(path)
	for i, g := range w.globs {
		if g.Match(candidate) {
			return w.patterns[i], true
		}
	}
	return "", false
}
