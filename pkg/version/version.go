// Package version identifies this build and decides which config files it
// can read.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
)

const (
	Name    = "letitgo"
	Version = "0.1.0"
)

type SemVer struct {
	Major int
	Minor int
	Patch int
}

func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 as v sorts before, equal to or after o.
func (v SemVer) Compare(o SemVer) int {
	for _, d := range [...]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// ParseSemVer accepts "MAJOR.MINOR.PATCH" with an optional "v" prefix.
func ParseSemVer(raw string) (SemVer, error) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if value == "" {
		return SemVer{}, fmt.Errorf("version is empty")
	}

	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("invalid version %q (expected MAJOR.MINOR.PATCH)", raw)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return SemVer{}, fmt.Errorf("invalid version %q: component %q is not a number", raw, part)
		}
		nums[i] = n
	}

	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// EnsureCompatible checks the version a config file declares. Files written
// for a newer release or another major version are refused; an empty
// version is accepted.
func EnsureCompatible(declared string) error {
	if strings.TrimSpace(declared) == "" {
		return nil
	}

	current, err := ParseSemVer(Version)
	if err != nil {
		return fmt.Errorf("parse current version %q: %w", Version, err)
	}
	want, err := ParseSemVer(declared)
	if err != nil {
		return err
	}

	if want.Major != current.Major {
		return fmt.Errorf("major version %d is not supported (this is %s %s)", want.Major, Name, current)
	}
	if current.Compare(want) < 0 {
		return fmt.Errorf("requires %s >= %s (this is %s)", Name, want, current)
	}
	return nil
}

// Long describes the build for the version command.
func Long() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", Name, Version)

	if info, ok := debug.ReadBuildInfo(); ok {
		var rev, dirty string
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				rev = s.Value
			case "vcs.modified":
				if s.Value == "true" {
					dirty = "-dirty"
				}
			}
		}
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if rev != "" {
			fmt.Fprintf(&b, " (%s%s)", rev, dirty)
		}
	}

	fmt.Fprintf(&b, " %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return b.String()
}
