package mount

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	const host = `\\cloud-drive`

	tests := []struct {
		name  string
		entry Entry
		want  State
	}{
		{
			name:  "absent",
			entry: Entry{},
			want:  Unmounted,
		},
		{
			name:  "backend mount",
			entry: Entry{Present: true, Connected: true, RemoteName: `\\cloud-drive\contoso\Shared\Finance`},
			want:  MountedCorrect,
		},
		{
			name:  "host match is case-insensitive",
			entry: Entry{Present: true, Connected: true, RemoteName: `\\CLOUD-DRIVE\contoso`},
			want:  MountedCorrect,
		},
		{
			name:  "file server mount",
			entry: Entry{Present: true, Connected: true, RemoteName: `\\fileserver\share`},
			want:  MountedForeign,
		},
		{
			name:  "disconnected wins over foreign",
			entry: Entry{Present: true, Connected: false, RemoteName: `\\fileserver\share`},
			want:  MountedDisconnected,
		},
		{
			name:  "disconnected backend mount",
			entry: Entry{Present: true, Connected: false, RemoteName: `\\cloud-drive\contoso`},
			want:  MountedDisconnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.entry, host))
		})
	}
}

func TestClassifyEmptyHostNeverMatches(t *testing.T) {
	entry := Entry{Present: true, Connected: true, RemoteName: `\\anything`}
	assert.Equal(t, MountedForeign, Classify(entry, ""))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "unmounted", Unmounted.String())
	assert.Equal(t, "mounted", MountedCorrect.String())
	assert.Equal(t, "foreign", MountedForeign.String())
	assert.Equal(t, "disconnected", MountedDisconnected.String())
}

// fakeProber serves canned entries per letter.
type fakeProber struct {
	entries map[string]Entry
	err     error
}

func (p *fakeProber) Entry(_ context.Context, letter string) (Entry, error) {
	if p.err != nil {
		return Entry{}, p.err
	}

	return p.entries[letter], nil
}

func TestStateTableState(t *testing.T) {
	prober := &fakeProber{entries: map[string]Entry{
		"F": {Present: true, Connected: true, RemoteName: `\\cloud-drive\contoso\Shared\Finance`},
	}}

	table := NewStateTable(prober, `\\cloud-drive`, &capturingRunner{}, testLogger(t))

	state, err := table.State(context.Background(), "F")
	require.NoError(t, err)
	assert.Equal(t, MountedCorrect, state)

	state, err = table.State(context.Background(), "G")
	require.NoError(t, err)
	assert.Equal(t, Unmounted, state)
}

func TestStateTableStateProbeFailure(t *testing.T) {
	prober := &fakeProber{err: errors.New("wmi query failed")}
	table := NewStateTable(prober, `\\cloud-drive`, &capturingRunner{}, testLogger(t))

	_, err := table.State(context.Background(), "F")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probing F")
}

func TestStateTableDelete(t *testing.T) {
	runner := &capturingRunner{}
	table := NewStateTable(&fakeProber{}, `\\cloud-drive`, runner, testLogger(t))

	require.NoError(t, table.Delete(context.Background(), "F"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"net", "use", "F:", "/delete", "/y"}, runner.calls[0])
}

func TestStateTableDeleteAbsentEntryIsSuccess(t *testing.T) {
	// net use exits nonzero for a letter with no mapping; the re-probe says
	// the entry is gone, so the delete counts as done.
	runner := &capturingRunner{out: []byte("The network connection could not be found."), err: exitError()}
	table := NewStateTable(&fakeProber{}, `\\cloud-drive`, runner, testLogger(t))

	assert.NoError(t, table.Delete(context.Background(), "F"))
}

func TestStateTableDeleteFailureWithEntryStillPresent(t *testing.T) {
	runner := &capturingRunner{out: []byte("There are open files on the connection."), err: exitError()}
	prober := &fakeProber{entries: map[string]Entry{
		"F": {Present: true, Connected: true, RemoteName: `\\fileserver\share`},
	}}

	table := NewStateTable(prober, `\\cloud-drive`, runner, testLogger(t))

	err := table.Delete(context.Background(), "F")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net use delete F")
	assert.Contains(t, err.Error(), "open files")
}
