package exclusion

import (
	"context"
	"sort"
	"sync"
)

// Call is one Add or Remove seen by Memory.
type Call struct {
	Verb       string
	Paths      []string
	Privileged bool
}

// Memory keeps exclusions in a map. It stands in for the real backend in
// tests.
type Memory struct {
	// Fail, when set, is returned by every Add and Remove.
	Fail error

	mu       sync.Mutex
	excluded map[string]bool
	calls    []Call
}

func NewMemory(excluded ...string) *Memory {
	m := &Memory{excluded: make(map[string]bool, len(excluded))}
	for _, p := range excluded {
		m.excluded[p] = false
	}
	return m
}

func (m *Memory) Add(ctx context.Context, paths []string, privileged bool) error {
	return m.apply(ctx, "add", paths, privileged)
}

func (m *Memory) Remove(ctx context.Context, paths []string, privileged bool) error {
	return m.apply(ctx, "remove", paths, privileged)
}

func (m *Memory) apply(ctx context.Context, verb string, paths []string, privileged bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{
		Verb:       verb,
		Paths:      append([]string(nil), paths...),
		Privileged: privileged,
	})
	if m.Fail != nil {
		return m.Fail
	}

	if m.excluded == nil {
		m.excluded = make(map[string]bool)
	}
	for _, p := range paths {
		if verb == "add" {
			m.excluded[p] = privileged
		} else {
			delete(m.excluded, p)
		}
	}
	return nil
}

func (m *Memory) IsExcluded(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.excluded[path]
	return ok, nil
}

// Calls returns every Add and Remove in the order they arrived.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Excluded returns the currently excluded paths, sorted.
func (m *Memory) Excluded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.excluded))
	for p := range m.excluded {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
