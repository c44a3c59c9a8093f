package resolver

import (
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/olimci/letitgo/pkg/matcher"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

// LoadGlobalPatterns collects the process-wide ignore rules shared by every
// repository: git's core.excludesFile when gitGlobal is set, then file.
// Both are unanchored and rank below any repository rule.
func LoadGlobalPatterns(file string, gitGlobal bool) ([]gitignore.Pattern, error) {
	var ps []gitignore.Pattern

	if gitGlobal {
		gp, err := gitignore.LoadGlobalPatterns(osfs.New("/"))
		if err != nil {
			return nil, fmt.Errorf("load git global excludes: %w", err)
		}
		ps = append(ps, gp...)
	}

	if file != "" {
		path, err := fileutils.AbsPath(file)
		if err != nil {
			return nil, fmt.Errorf("global ignore file: %w", err)
		}
		fp, err := matcher.ReadFile(path, nil)
		if err != nil {
			return nil, err
		}
		ps = append(ps, fp...)
	}

	return ps, nil
}
