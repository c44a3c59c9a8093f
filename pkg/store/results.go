package store

import (
	"time"

	"github.com/olimci/letitgo/pkg/resolver"
	"github.com/olimci/letitgo/pkg/store/cache"
	"github.com/olimci/letitgo/pkg/store/config"
)

// ModeMismatch is set when the cache was produced under a different mode
// than the one configured now.
type ModeMismatch struct {
	Cached     config.ExclusionMode
	Configured config.ExclusionMode
}

type RunResult struct {
	Preview  bool
	Mode     config.ExclusionMode
	Repos    []string
	Added    []string
	Removed  []string
	Total    int
	Warnings []resolver.Warning
	Skipped  []string // directories the scan could not read
	Mismatch *ModeMismatch
	Duration time.Duration
}

type ListEntry struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	// Excluded is only set when the backend was queried.
	Excluded *bool `json:"excluded,omitempty"`
}

func (e ListEntry) Stale() bool {
	return !e.Exists
}

// Drifted reports a cached path the backend no longer excludes.
func (e ListEntry) Drifted() bool {
	return e.Exists && e.Excluded != nil && !*e.Excluded
}

type ListResult struct {
	Record  cache.Record
	Entries []ListEntry
}

type CleanResult struct {
	Preview   bool
	Stale     []string
	Remaining int
	Mismatch  *ModeMismatch
}

type ResetResult struct {
	Preview bool
	Mode    config.ExclusionMode
	Removed []string
}

type InitResult struct {
	Path    string
	Existed bool
	Written bool
}
