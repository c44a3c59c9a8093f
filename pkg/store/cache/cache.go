// Package cache persists the exclusion set applied by the last successful run.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olimci/letitgo/pkg/pathset"
	"github.com/olimci/letitgo/pkg/store/config"
	"github.com/olimci/letitgo/pkg/utils/fileutils"
)

// Version is the newest record schema this build reads and writes.
const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported cache version")

// Record is the on-disk cache.
type Record struct {
	Version int                  `json:"version"`
	LastRun *time.Time           `json:"last_run"`       // nil until the first successful run
	Mode    config.ExclusionMode `json:"exclusion_mode"` // mode that produced Paths
	Paths   []string             `json:"paths"`          // sorted absolute paths
}

// Empty is the record used before any run has completed.
func Empty() Record {
	return Record{
		Version: Version,
		Mode:    config.ModeSticky,
		Paths:   []string{},
	}
}

// New builds a record for paths applied at t.
func New(mode config.ExclusionMode, paths pathset.Set, t time.Time) Record {
	t = t.UTC().Truncate(time.Second)
	return Record{
		Version: Version,
		LastRun: &t,
		Mode:    mode,
		Paths:   paths.Sorted(),
	}
}

func (r Record) PathSet() pathset.Set {
	return pathset.New(r.Paths...)
}

func (r Record) IsEmpty() bool {
	return len(r.Paths) == 0
}

// Load reads the record at path. A missing file yields Empty().
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(), nil
		}
		return Record{}, fmt.Errorf("read %s: %w", path, err)
	}

	rec := Empty()
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if rec.Version < 1 || rec.Version > Version {
		return Record{}, fmt.Errorf("%w %d in %s (supported: %d)", ErrUnsupportedVersion, rec.Version, path, Version)
	}
	if rec.Paths == nil {
		rec.Paths = []string{}
	}

	return rec, nil
}

// Save replaces the record at path atomically.
func Save(path string, rec Record) error {
	if rec.Version == 0 {
		rec.Version = Version
	}
	if rec.Paths == nil {
		rec.Paths = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return fileutils.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// Diff returns the paths to add (curr - prev) and to remove (prev - curr).
func Diff(prev, curr pathset.Set) (add, remove pathset.Set) {
	return curr.Minus(prev), prev.Minus(curr)
}
