//go:build !windows

package mount

import "context"

// stubProber reports ErrUnsupported on non-Windows builds. The mount table
// surface this agent manages is the Windows drive-letter table; the rest of
// the codebase compiles and tests everywhere through injected probers.
type stubProber struct{}

func newPlatformProber() EntryProber {
	return stubProber{}
}

func (stubProber) Entry(context.Context, string) (Entry, error) {
	return Entry{}, ErrUnsupported
}
