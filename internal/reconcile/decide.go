package reconcile

import "github.com/drivemapper/drivemapper/internal/mount"

// Policy holds the reconciliation policy knobs.
type Policy struct {
	// CleanupForeign tears down foreign or disconnected entries even when
	// the identity is not authorized for the mapping at that letter. Off
	// by default: an unauthorized user's manual mapping at a letter we
	// merely declare is not ours to destroy. Deployments that treat the
	// declared letters as reserved turn this on.
	CleanupForeign bool
}

// Decide maps one observation to a corrective operation.
//
//	state        × authorized → op
//	unmounted    × yes        → mount
//	unmounted    × no         → none
//	mounted      × yes        → none
//	mounted      × no         → unmount
//	foreign      × yes        → remount (forced delete first)
//	disconnected × yes        → remount (forced delete first)
//	foreign      × no         → none, or cleanup under CleanupForeign
//	disconnected × no         → none, or cleanup under CleanupForeign
func Decide(state mount.State, authorized bool, policy Policy) Op {
	switch state {
	case mount.Unmounted:
		if authorized {
			return OpMount
		}

		return OpNone

	case mount.MountedCorrect:
		if authorized {
			return OpNone
		}

		return OpUnmount

	case mount.MountedForeign, mount.MountedDisconnected:
		if authorized {
			return OpRemount
		}

		if policy.CleanupForeign {
			return OpCleanup
		}

		return OpNone

	default:
		return OpNone
	}
}
