// Package semver parses and compares scout release versions and the
// major.minor target ranges that pin a compatible release band.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// versionRe matches a major.minor.patch prefix. Trailing decoration
// (pre-release tags, build metadata) is tolerated and ignored.
var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// targetRangeRe must match the entire string: a target range is a
// human-authored config value and gets no leniency.
var targetRangeRe = regexp.MustCompile(`^(\d+)\.(\d+)$`)

// Version is a parsed release version.
type Version struct {
	Major int
	Minor int
	Patch int
	// Raw is the normalized input with any leading "v" stripped.
	Raw string
}

// TargetRange is a major.minor compatibility pin, e.g. "1.4".
type TargetRange struct {
	Major int
	Minor int
}

// String returns the canonical "major.minor" form.
func (r TargetRange) String() string {
	return fmt.Sprintf("%d.%d", r.Major, r.Minor)
}

// ParseVersion parses s as a release version. A leading "v" is stripped
// and anything after the third numeric component is ignored. The second
// return value is false when s has no major.minor.patch prefix; invalid
// input is a normal outcome, never an error.
func ParseVersion(s string) (Version, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	m := versionRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, false
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, false
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Version{}, false
	}
	patch, err := strconv.Atoi(m[3])
	if err != nil {
		return Version{}, false
	}

	return Version{Major: major, Minor: minor, Patch: patch, Raw: trimmed}, true
}

// ParseTargetRange parses a strict "major.minor" string. Unlike
// ParseVersion, any extra characters (patch component, "v" prefix,
// whitespace inside) make the target invalid.
func ParseTargetRange(s string) (TargetRange, bool) {
	m := targetRangeRe.FindStringSubmatch(s)
	if m == nil {
		return TargetRange{}, false
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return TargetRange{}, false
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return TargetRange{}, false
	}

	return TargetRange{Major: major, Minor: minor}, true
}

// IsCompatible reports whether version falls inside targetRange: major
// and minor must match exactly, patch never matters. False when either
// side fails to parse.
func IsCompatible(version, targetRange string) bool {
	v, ok := ParseVersion(version)
	if !ok {
		return false
	}
	r, ok := ParseTargetRange(targetRange)
	if !ok {
		return false
	}
	return v.Major == r.Major && v.Minor == r.Minor
}

// Compare orders two version strings on their (major, minor, patch)
// tuples, returning -1, 0 or +1. An unparsable input compares equal to
// everything; callers needing strict ordering must pre-validate.
func Compare(a, b string) int {
	va, okA := ParseVersion(a)
	vb, okB := ParseVersion(b)
	if !okA || !okB {
		return 0
	}
	return xsemver.Compare(canonical(va), canonical(vb))
}

// canonical renders the parsed numeric tuple in the "vX.Y.Z" form
// x/mod/semver expects, dropping any pre-release decoration so that
// ordering is purely numeric.
func canonical(v Version) string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SelectHighestCompatible returns the highest version among versions
// that is compatible with targetRange. The second return value is false
// when no candidate qualifies. Ties between equal tuples keep the
// earlier input, which only matters for decorated duplicates of the
// same release.
func SelectHighestCompatible(versions []string, targetRange string) (string, bool) {
	best := ""
	found := false
	for _, candidate := range versions {
		if !IsCompatible(candidate, targetRange) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
