package version

import (
	"strings"
	"testing"
)

func TestParseSemVer(t *testing.T) {
	t.Parallel()

	v, err := ParseSemVer("v1.2.3")
	if err != nil {
		t.Fatalf("ParseSemVer returned error: %v", err)
	}
	if v != (SemVer{Major: 1, Minor: 2, Patch: 3}) {
		t.Fatalf("ParseSemVer parsed wrong value: %#v", v)
	}
}

func TestParseSemVerRejectsInvalidFormat(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "v", "1.2", "1.2.3.4", "1.x.3", "1.2.-3", "1.2.+3", "1.2.3-rc1"} {
		if _, err := ParseSemVer(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := SemVer{1, 2, 3}
	if a.Compare(SemVer{1, 2, 3}) != 0 || a.Compare(SemVer{1, 3, 0}) != -1 || a.Compare(SemVer{0, 9, 9}) != 1 {
		t.Fatal("unexpected ordering")
	}
}

func TestEnsureCompatible(t *testing.T) {
	t.Parallel()

	current, err := ParseSemVer(Version)
	if err != nil {
		t.Fatalf("parse current version: %v", err)
	}

	accepted := []string{"", "  ", current.String(), "v" + current.String()}
	for _, v := range accepted {
		if err := EnsureCompatible(v); err != nil {
			t.Fatalf("EnsureCompatible(%q) returned error: %v", v, err)
		}
	}

	rejected := []string{
		SemVer{current.Major, current.Minor, current.Patch + 1}.String(),
		SemVer{current.Major + 1, 0, 0}.String(),
		"not-a-version",
	}
	for _, v := range rejected {
		if err := EnsureCompatible(v); err == nil {
			t.Fatalf("expected EnsureCompatible(%q) to fail", v)
		}
	}
}

func TestLongNamesTheBuild(t *testing.T) {
	t.Parallel()

	if got := Long(); !strings.HasPrefix(got, Name+" "+Version) {
		t.Fatalf("Long() = %q", got)
	}
}
