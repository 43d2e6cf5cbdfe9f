package installer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a dotted numeric product version, e.g. "4.12.0.233".
// The vendor does not follow semver; compare numerically field by field.
type Version []int

// ParseVersion parses a dotted numeric version string.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("installer: empty version string")
	}

	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))

	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("installer: bad version component %q in %q", p, s)
		}

		v = append(v, n)
	}

	return v, nil
}

// Compare returns -1, 0, or 1 as v is older than, equal to, or newer than
// other. Missing trailing components count as zero, so "4.12" == "4.12.0".
func (v Version) Compare(other Version) int {
	n := max(len(v), len(other))

	for i := range n {
		a, b := 0, 0
		if i < len(v) {
			a = v[i]
		}

		if i < len(other) {
			b = other[i]
		}

		if a != b {
			if a < b {
				return -1
			}

			return 1
		}
	}

	return 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}

	return strings.Join(parts, ".")
}

// versionPattern matches the "Current version X.Y.Z" line on the vendor
// download page. The page is plain HTML the vendor has kept stable for
// years; a structured feed does not exist.
var versionPattern = regexp.MustCompile(`(?i)current\s+version[:\s]+([0-9]+(?:\.[0-9]+)+)`)

// packageURLPattern matches the first MSI link on the page.
var packageURLPattern = regexp.MustCompile(`https?://[^\s"']+\.msi`)

// ParseDownloadPage extracts the latest version and package URL from the
// vendor download page HTML.
func ParseDownloadPage(page []byte) (Version, string, error) {
	m := versionPattern.FindSubmatch(page)
	if m == nil {
		return nil, "", fmt.Errorf("installer: no version found on download page")
	}

	v, err := ParseVersion(string(m[1]))
	if err != nil {
		return nil, "", err
	}

	u := packageURLPattern.Find(page)
	if u == nil {
		return nil, "", fmt.Errorf("installer: no package URL found on download page")
	}

	return v, string(u), nil
}
