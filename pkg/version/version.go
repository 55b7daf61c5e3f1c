// Package version parses and compares bridge tool versions.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expected is the bridge version this library is tested against.
const Expected = "1.0.41"

// BridgeVersion represents a parsed "major.minor.patch" bridge version.
type BridgeVersion struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Parse parses a "major.minor.patch" version string.
func Parse(s string) (BridgeVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return BridgeVersion{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}

	var nums [3]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || p == "" {
			return BridgeVersion{}, fmt.Errorf("invalid version %q: bad component %q", s, p)
		}
		nums[i] = uint16(n)
	}

	return BridgeVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

var reportedPattern = regexp.MustCompile(`(?i)version\s+(\d+\.\d+\.\d+)`)

// FromOutput extracts the version from the text printed by `adb version`,
// for example "Android Debug Bridge version 1.0.41".
func FromOutput(text string) (BridgeVersion, error) {
	m := reportedPattern.FindStringSubmatch(text)
	if m == nil {
		return BridgeVersion{}, fmt.Errorf("no version found in %q", firstLine(text))
	}
	return Parse(m[1])
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// String returns the version as "major.minor.patch".
func (v BridgeVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible returns true if the other version has the same major and minor version.
func (v BridgeVersion) Compatible(other BridgeVersion) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// Satisfies reports whether v meets a requirement. A "major.minor"
// requirement matches any patch level; "major.minor.patch" must match
// exactly. An empty requirement accepts every version.
func (v BridgeVersion) Satisfies(requirement string) (bool, error) {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return true, nil
	}
	if strings.Count(requirement, ".") == 1 {
		want, err := Parse(requirement + ".0")
		if err != nil {
			return false, err
		}
		return v.Compatible(want), nil
	}
	want, err := Parse(requirement)
	if err != nil {
		return false, err
	}
	return v == want, nil
}
