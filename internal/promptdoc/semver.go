package promptdoc

import (
	"regexp"
	"strconv"
	"strings"
)

// semverPattern matches a strict MAJOR.MINOR.PATCH version string (§3).
var semverPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// ValidSemver reports whether v is a strict MAJOR.MINOR.PATCH string.
func ValidSemver(v string) bool {
	return semverPattern.MatchString(v)
}

// compareVersions compares two version strings component-by-component,
// numerically, with missing components treated as 0 (§4.7 step 2). It
// does not validate strict semver shape — malformed components compare as
// 0 — because the ranker must produce a total order even over documents
// whose metadata was invalid (e.g. legacy prompts with no version at
// all).
func compareVersions(a, b string) int {
	ca := versionComponents(a)
	cb := versionComponents(b)
	n := len(ca)
	if len(cb) > n {
		n = len(cb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(ca) {
			x = ca[i]
		}
		if i < len(cb) {
			y = cb[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionComponents(v string) []int {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}
