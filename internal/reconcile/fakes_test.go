package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/drivemapper/drivemapper/internal/mapping"
	"github.com/drivemapper/drivemapper/internal/mount"
)

// testWriter adapts t.Log for slog output.
type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// testLogger creates a debug-level logger writing to t.Log.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(&testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTable is an in-memory mount table. Deleting a letter makes it
// unmounted; probe/delete errors are injectable per letter.
type fakeTable struct {
	mu sync.Mutex

	states    map[string]mount.State
	stateErr  map[string]error
	deleteErr map[string]error

	calls []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		states:    make(map[string]mount.State),
		stateErr:  make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (ft *fakeTable) set(letter string, s mount.State) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.states[letter] = s
}

func (ft *fakeTable) State(_ context.Context, letter string) (mount.State, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.calls = append(ft.calls, "state "+letter)

	if err := ft.stateErr[letter]; err != nil {
		return mount.Unmounted, err
	}

	return ft.states[letter], nil
}

func (ft *fakeTable) Delete(_ context.Context, letter string) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.calls = append(ft.calls, "delete "+letter)

	if err := ft.deleteErr[letter]; err != nil {
		return err
	}

	ft.states[letter] = mount.Unmounted

	return nil
}

// fakeBackend records backend invocations. On successful Connect it flips
// the paired table's state to MountedCorrect, simulating the client's
// asynchronous activation having landed.
type fakeBackend struct {
	table *fakeTable

	addErr     map[string]error
	connectErr map[string]error
	removeErr  map[string]error

	letters map[string]string // name -> letter, recorded by Add
	calls   []string
}

func newFakeBackend(table *fakeTable) *fakeBackend {
	return &fakeBackend{
		table:      table,
		addErr:     make(map[string]error),
		connectErr: make(map[string]error),
		removeErr:  make(map[string]error),
		letters:    make(map[string]string),
	}
}

func (fb *fakeBackend) Add(_ context.Context, name, domain, letter, remotePath string) error {
	fb.calls = append(fb.calls, fmt.Sprintf("add %s %s %s %s", name, domain, letter, remotePath))

	if err := fb.addErr[name]; err != nil {
		return err
	}

	fb.letters[name] = letter

	return nil
}

func (fb *fakeBackend) Connect(_ context.Context, name string) error {
	fb.calls = append(fb.calls, "connect "+name)

	if err := fb.connectErr[name]; err != nil {
		return err
	}

	if letter, ok := fb.letters[name]; ok && fb.table != nil {
		fb.table.set(letter, mount.MountedCorrect)
	}

	return nil
}

func (fb *fakeBackend) Remove(_ context.Context, name string) error {
	fb.calls = append(fb.calls, "remove "+name)
	return fb.removeErr[name]
}

// instantSleep makes verification polls free.
func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// financeMapping is the canonical test mapping.
func financeMapping() mapping.DriveMapping {
	return mapping.DriveMapping{
		Name:     "Finance",
		Letter:   "F",
		Domain:   "contoso",
		Path:     "/Shared/Finance",
		GroupKey: "FinanceUsers",
	}
}

func memberOf(groups ...string) func(string) bool {
	set := make(map[string]bool, len(groups))
	for _, g := range groups {
		set[g] = true
	}

	return func(key string) bool { return set[key] }
}
