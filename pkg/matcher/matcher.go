// Package matcher classifies repository paths against gitignore-style rule
// files. Rule sets are immutable and grow as a traversal descends: each
// directory that carries a rule file derives a child set whose patterns are
// anchored at that directory and take precedence over the inherited ones.
package matcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

type Result int

const (
	NoMatch Result = iota
	Ignored
	Included
)

func (r Result) String() string {
	switch r {
	case Ignored:
		return "ignored"
	case Included:
		return "included"
	default:
		return "no-match"
	}
}

const (
	commentPrefix  = "#"
	negationPrefix = "!"
)

// RuleSet is an ordered list of patterns, lowest priority first.
type RuleSet struct {
	patterns []gitignore.Pattern
}

func New(patterns []gitignore.Pattern) RuleSet {
	return RuleSet{patterns: append([]gitignore.Pattern(nil), patterns...)}
}

// With returns a new rule set whose extra patterns outrank the receiver's.
// The receiver is left untouched so sibling directories can share it.
func (r RuleSet) With(patterns []gitignore.Pattern) RuleSet {
	if len(patterns) == 0 {
		return r
	}

	merged := make([]gitignore.Pattern, 0, len(r.patterns)+len(patterns))
	merged = append(merged, r.patterns...)
	merged = append(merged, patterns...)
	return RuleSet{patterns: merged}
}

func (r RuleSet) Len() int {
	return len(r.patterns)
}

// Match classifies a path given as components relative to the repository
// root. The last matching pattern wins.
func (r RuleSet) Match(rel []string, isDir bool) Result {
	for i := len(r.patterns) - 1; i >= 0; i-- {
		switch r.patterns[i].Match(rel, isDir) {
		case gitignore.Exclude:
			return Ignored
		case gitignore.Include:
			return Included
		}
	}
	return NoMatch
}

// Line is one meaningful line of a rule file.
type Line struct {
	Pattern string
	Negated bool
}

// Raw returns the line as written, negation marker included.
func (l Line) Raw() string {
	if l.Negated {
		return negationPrefix + l.Pattern
	}
	return l.Pattern
}

// ReadLines parses rule file content, dropping blanks and comments.
func ReadLines(r io.Reader) ([]Line, error) {
	var lines []Line

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, commentPrefix) {
			continue
		}

		if !strings.HasSuffix(text, "\\ ") {
			text = strings.TrimRight(text, " \t")
		}
		text = strings.TrimLeft(text, " \t")

		if rest, ok := strings.CutPrefix(text, negationPrefix); ok {
			if rest == "" {
				continue
			}
			lines = append(lines, Line{Pattern: rest, Negated: true})
			continue
		}
		lines = append(lines, Line{Pattern: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// ReadFileLines reads a rule file. A missing file yields no lines.
func ReadFileLines(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open rule file %s: %w", path, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}
	return lines, nil
}

// Patterns compiles lines anchored at domain, the rule file's directory
// relative to the repository root.
func Patterns(lines []Line, domain []string) []gitignore.Pattern {
	if len(lines) == 0 {
		return nil
	}

	anchor := append([]string(nil), domain...)
	ps := make([]gitignore.Pattern, 0, len(lines))
	for _, l := range lines {
		ps = append(ps, gitignore.ParsePattern(l.Raw(), anchor))
	}
	return ps
}

// ReadFile reads and compiles a rule file in one step.
func ReadFile(path string, domain []string) ([]gitignore.Pattern, error) {
	lines, err := ReadFileLines(path)
	if err != nil {
		return nil, err
	}
	return Patterns(lines, domain), nil
}

// Split separates plain lines from negated ones.
func Split(lines []Line) (plain, negated []Line) {
	for _, l := range lines {
		if l.Negated {
			negated = append(negated, l)
		} else {
			plain = append(plain, l)
		}
	}
	return plain, negated
}
