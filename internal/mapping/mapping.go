// Package mapping defines the desired-state model for network drive
// mappings and parses it from its delivery formats. The desired-state list
// is declarative input: it is read once per run, validated strictly at the
// boundary, and treated as immutable afterwards.
package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// DriveMapping is one row of desired state: a drive letter that should be
// mapped to a cloud path whenever the current identity holds the named
// directory group.
type DriveMapping struct {
	// Name is the human-readable label the mount backend keys its
	// add/connect/remove operations on.
	Name string

	// Letter is the single-character mount point (A-Z, stored uppercase,
	// without a trailing colon).
	Letter string

	// Domain is the cloud tenant/domain qualifier passed to the backend.
	Domain string

	// Path is the remote path within the tenant, e.g. "/Shared/Finance".
	Path string

	// GroupKey identifies the directory group that authorizes this mapping.
	// A display name for the local-directory oracle, an object ID for the
	// identity-provider oracle.
	GroupKey string
}

// ValidateBase checks the fields every mapping needs, listed or synthetic.
// The personal home drive has no group key, so the group check lives in
// Validate instead.
func (m *DriveMapping) ValidateBase() error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, errors.New("drive name is empty"))
	}

	if len(m.Letter) != 1 || m.Letter[0] < 'A' || m.Letter[0] > 'Z' {
		errs = append(errs, fmt.Errorf("drive letter %q is not a single letter A-Z", m.Letter))
	}

	if m.Path == "" {
		errs = append(errs, errors.New("drive path is empty"))
	}

	return errors.Join(errs...)
}

// Validate checks a desired-state row's required fields. Row-level errors
// are reported here; cross-row checks (duplicate letters) happen in
// ValidateList.
func (m *DriveMapping) Validate() error {
	var errs []error

	if err := m.ValidateBase(); err != nil {
		errs = append(errs, err)
	}

	if m.GroupKey == "" {
		errs = append(errs, errors.New("group key is empty"))
	}

	return errors.Join(errs...)
}

// ValidateList checks the invariant that no two mappings target the same
// mount point. Rows are assumed individually valid already.
func ValidateList(mappings []DriveMapping) error {
	seen := make(map[string]string, len(mappings))

	var errs []error

	for i := range mappings {
		m := &mappings[i]

		if prev, dup := seen[m.Letter]; dup {
			errs = append(errs, fmt.Errorf(
				"drive letter %s claimed by both %q and %q", m.Letter, prev, m.Name))
			continue
		}

		seen[m.Letter] = m.Name
	}

	return errors.Join(errs...)
}

// NormalizeLetter uppercases a letter and strips a trailing colon, so "x:"
// and "X" both become "X". Desired-state files in the field carry both forms.
func NormalizeLetter(s string) string {
	return strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(s), ":"))
}
