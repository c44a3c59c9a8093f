// Package pathset holds the flat collection of absolute paths that makes up
// an exclusion set.
package pathset

import "sort"

type Set map[string]struct{}

func New(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Add(path string) {
	s[path] = struct{}{}
}

func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

func (s Set) Remove(path string) {
	delete(s, path)
}

func (s Set) Len() int {
	return len(s)
}

// Merge adds every path of other to s.
func (s Set) Merge(other Set) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Minus returns the paths of s that are not in other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for p := range s {
		if _, ok := other[p]; !ok {
			out[p] = struct{}{}
		}
	}
	return out
}

// Sorted returns the paths in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold exactly the same paths.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}
