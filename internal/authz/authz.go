// Package authz resolves the directory group memberships of the current
// identity. It is the authorization oracle for drive reconciliation: a
// mapping is mounted only if the identity holds the mapping's group key.
//
// Two oracles are provided. LocalOracle answers from the local directory
// (on-prem AD or workgroup) via a single synchronous membership query and
// returns group display names. EntraOracle answers from the identity
// provider's REST API and returns group object IDs. Both reduce to one
// capability: list the groups for the current identity once, then answer
// membership questions from that set.
package authz

import (
	"context"
	"errors"
	"os/user"
	"strings"
)

// ErrUnavailable wraps any failure to establish group membership data.
// Callers must treat it as fatal: running reconciliation without
// authorization data would read as "unauthorized for everything" and
// unmount every managed drive.
var ErrUnavailable = errors.New("authz: group membership unavailable")

// Oracle lists the group memberships of the current identity.
// Implementations perform their lookup once per call; callers hold the
// returned set for the duration of a reconciliation pass.
type Oracle interface {
	Groups(ctx context.Context) (Memberships, error)
}

// Memberships is the resolved group set. Lookup is case-insensitive
// because directory group names are, and object IDs are canonically
// lowercase hex anyway.
type Memberships map[string]struct{}

// NewMemberships builds a membership set from a list of group keys.
func NewMemberships(keys []string) Memberships {
	m := make(Memberships, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}

		m[strings.ToLower(k)] = struct{}{}
	}

	return m
}

// Contains reports whether the identity holds the given group key.
func (m Memberships) Contains(key string) bool {
	_, ok := m[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Keys returns the membership keys in unspecified order.
func (m Memberships) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return keys
}

// CurrentUsername returns the bare username of the current identity, with
// any DOMAIN\ qualifier stripped. Used for the personal drive path and for
// resolving the user principal name in the identity-provider oracle.
func CurrentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}

	name := u.Username
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	return name, nil
}
