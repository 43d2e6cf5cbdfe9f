// Package reconcile compares the desired-state drive list against observed
// mount states and applies the minimal corrective actions. The decision
// logic is pure data (state × authorized → op) in decide.go; planning and
// execution are separated so the table is testable without touching a
// single real mount.
package reconcile

import (
	"context"

	"github.com/drivemapper/drivemapper/internal/mapping"
	"github.com/drivemapper/drivemapper/internal/mount"
)

// Op is the corrective operation chosen for one mapping.
type Op int

const (
	// OpNone: mapping already in its terminal state.
	OpNone Op = iota

	// OpMount: backend add + connect.
	OpMount

	// OpUnmount: OS-level delete + backend remove (authorization revoked).
	OpUnmount

	// OpRemount: forced OS-level delete, then mount. Used for foreign or
	// disconnected entries the identity is entitled to.
	OpRemount

	// OpCleanup: forced OS-level delete only, no backend involvement.
	// Emitted for foreign/disconnected entries of unauthorized mappings
	// when the cleanup policy is enabled.
	OpCleanup
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpMount:
		return "mount"
	case OpUnmount:
		return "unmount"
	case OpRemount:
		return "remount"
	case OpCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Table is the reconciler's view of the OS mount table.
// Satisfied by mount.StateTable.
type Table interface {
	State(ctx context.Context, letter string) (mount.State, error)
	Delete(ctx context.Context, letter string) error
}

// Backend is the reconciler's view of the vendor client.
// Satisfied by mount.CLIBackend.
type Backend interface {
	Add(ctx context.Context, name, domain, letter, remotePath string) error
	Connect(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// Item is one planned entry: the mapping, what was observed, and what will
// be done about it.
type Item struct {
	Mapping    mapping.DriveMapping `json:"mapping"`
	State      string               `json:"state"`
	Authorized bool                 `json:"authorized"`
	Op         string               `json:"op"`

	// Personal marks the identity's home-drive entry, which is synthesized
	// by the planner rather than sourced from the desired-state list.
	Personal bool `json:"personal,omitempty"`

	// ProbeError records a per-mapping probe failure. The item is skipped
	// by the executor; the pass continues.
	ProbeError string `json:"probe_error,omitempty"`

	op    Op
	state mount.State
}

// Plan is the ordered set of items for one pass. Order follows the
// desired-state list (personal drive last) so runs are log-reproducible.
type Plan struct {
	Items []Item `json:"items"`
}

// ActionCount returns the number of items that will mutate state.
func (p *Plan) ActionCount() int {
	n := 0

	for i := range p.Items {
		if p.Items[i].op != OpNone && p.Items[i].ProbeError == "" {
			n++
		}
	}

	return n
}

// Outcome classifies the result of executing one item.
type Outcome string

const (
	OutcomeNone    Outcome = "none"    // nothing to do
	OutcomeApplied Outcome = "applied" // op completed (and verified, for mounts)
	OutcomeFailed  Outcome = "failed"  // op attempted, failed; pass continued
	OutcomeSkipped Outcome = "skipped" // probe failed or dry run
)

// Result is the per-mapping execution record for one pass.
type Result struct {
	Mapping mapping.DriveMapping `json:"mapping"`
	Op      string               `json:"op"`
	Outcome Outcome              `json:"outcome"`
	Error   string               `json:"error,omitempty"`
}
