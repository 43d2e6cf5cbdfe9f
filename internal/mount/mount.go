// Package mount observes and mutates the OS mount table and drives the
// vendor client that creates, activates, and removes cloud drive mappings.
// The reconciler consumes this package through small interfaces so its
// decision logic never touches a real mount.
package mount

import (
	"context"
	"errors"
	"strings"
)

// State classifies a drive letter's observed mount condition. It is
// recomputed on every probe and never cached across reconciliation passes.
type State int

const (
	// Unmounted: no mount-table entry for the letter.
	Unmounted State = iota

	// MountedCorrect: entry present and attributable to the mount backend.
	MountedCorrect

	// MountedForeign: entry present but pointing somewhere else (a plain
	// file server, a manual net-use mapping, another product).
	MountedForeign

	// MountedDisconnected: entry present but its network session is down.
	MountedDisconnected
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case MountedCorrect:
		return "mounted"
	case MountedForeign:
		return "foreign"
	case MountedDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Entry is the raw mount-table observation for one letter, before
// classification.
type Entry struct {
	Present    bool
	RemoteName string
	Connected  bool
}

// ErrUnsupported is returned by platform probes that cannot run on the
// current OS. The agent targets Windows endpoints; everything above the
// Table interface stays portable.
var ErrUnsupported = errors.New("mount: not supported on this platform")

// ErrBackendMissing indicates the mount backend executable could not be
// found. Callers treat it as a fatal precondition: no mutating action may
// run without the backend present.
var ErrBackendMissing = errors.New("mount: backend executable not found")

// Table observes and deletes OS-level mount entries.
type Table interface {
	// State probes the letter and classifies the result.
	State(ctx context.Context, letter string) (State, error)

	// Delete forcibly removes the OS-level entry for the letter. Deleting
	// an absent entry is not an error.
	Delete(ctx context.Context, letter string) error
}

// Backend drives the vendor client: create a mapping, activate it, and
// remove it, each keyed by the mapping's drive name.
type Backend interface {
	// Ping verifies the backend is present and responding. Fatal
	// precondition when it fails.
	Ping(ctx context.Context) error

	// Add creates the mapping definition in the backend.
	Add(ctx context.Context, name, domain, letter, remotePath string) error

	// Connect activates a previously added mapping.
	Connect(ctx context.Context, name string) error

	// Remove deletes the mapping definition. Removing an already-removed
	// mapping is success, not an error.
	Remove(ctx context.Context, name string) error
}

// Classify turns a raw table entry into a State. backendHost is the remote
// host the backend mounts through (e.g. `\\cloud-drive` or a provider
// hostname); an entry whose remote name does not carry it is foreign.
// Disconnected wins over foreign: a dead session gets torn down and rebuilt
// regardless of where it pointed.
func Classify(e Entry, backendHost string) State {
	if !e.Present {
		return Unmounted
	}

	if !e.Connected {
		return MountedDisconnected
	}

	if backendHost != "" && strings.Contains(strings.ToLower(e.RemoteName), strings.ToLower(backendHost)) {
		return MountedCorrect
	}

	return MountedForeign
}
