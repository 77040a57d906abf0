package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// UpgradeType selects which version component an upgrade bumps.
type UpgradeType string

const (
	Patch UpgradeType = "PATCH"
	Minor UpgradeType = "MINOR"
	Major UpgradeType = "MAJOR"
)

// ParseUpgradeType parses s case-insensitively. Unknown values yield Patch
// and ok=false so callers can warn before falling back.
func ParseUpgradeType(s string) (t UpgradeType, ok bool) {
	switch UpgradeType(strings.ToUpper(strings.TrimSpace(s))) {
	case Patch:
		return Patch, true
	case Minor:
		return Minor, true
	case Major:
		return Major, true
	}
	return Patch, false
}

// UpgradeVersion bumps version according to t and zeroes every lower
// component. MINOR bumps the second component for one- or two-part versions
// and the second-to-last one otherwise.
func UpgradeVersion(version string, t UpgradeType) (string, error) {
	parts, err := splitNumeric(version)
	if err != nil {
		return "", err
	}

	idx := len(parts) - 1
	switch t {
	case Major:
		idx = 0
	case Minor:
		if len(parts) < 2 {
			parts = append(parts, 0)
		}
		idx = 1
		if len(parts) >= 3 {
			idx = len(parts) - 2
		}
	}

	parts[idx]++
	for i := idx + 1; i < len(parts); i++ {
		parts[i] = 0
	}

	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, "."), nil
}

// CompareVersions returns -1, 0 or +1 as a is lower than, equal to, or
// greater than b. Versions that are not valid semver (four components, for
// instance) are compared component by component, missing parts counting as 0.
func CompareVersions(a, b string) int {
	va, vb := canonical(a), canonical(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}

	pa, errA := splitNumeric(a)
	pb, errB := splitNumeric(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func splitNumeric(version string) ([]int, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return nil, fmt.Errorf("empty version")
	}
	fields := strings.Split(version, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version %q: component %q is not a number", version, f)
		}
		parts[i] = n
	}
	return parts, nil
}
