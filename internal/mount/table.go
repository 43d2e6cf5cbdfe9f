package mount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// EntryProber reads the raw mount-table entry for a drive letter.
// The Windows implementation queries WMI; tests provide canned entries.
type EntryProber interface {
	Entry(ctx context.Context, letter string) (Entry, error)
}

// StateTable implements Table: classification of probed entries plus
// forced deletion of stale ones through the OS `net use` surface.
type StateTable struct {
	prober      EntryProber
	backendHost string
	runner      Runner
	logger      *slog.Logger
}

// NewStateTable creates a Table. prober and runner may be nil, selecting
// the platform prober and a real command runner.
func NewStateTable(prober EntryProber, backendHost string, runner Runner, logger *slog.Logger) *StateTable {
	if prober == nil {
		prober = newPlatformProber()
	}

	if runner == nil {
		runner = execRunner{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &StateTable{
		prober:      prober,
		backendHost: backendHost,
		runner:      runner,
		logger:      logger,
	}
}

// State probes the letter and classifies the observation.
func (t *StateTable) State(ctx context.Context, letter string) (State, error) {
	entry, err := t.prober.Entry(ctx, letter)
	if err != nil {
		return Unmounted, fmt.Errorf("mount: probing %s: %w", letter, err)
	}

	state := Classify(entry, t.backendHost)

	t.logger.Debug("mount table probed",
		slog.String("letter", letter),
		slog.String("state", state.String()),
		slog.String("remote", entry.RemoteName),
	)

	return state, nil
}

// Delete forcibly disconnects the OS-level mapping for the letter. When
// `net use` refuses because the entry is already gone, the delete is
// considered done — the re-probe decides, not the exit code.
func (t *StateTable) Delete(ctx context.Context, letter string) error {
	out, err := t.runner.Run(ctx, "net", "use", letter+":", "/delete", "/y")
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		entry, probeErr := t.prober.Entry(ctx, letter)
		if probeErr == nil && !entry.Present {
			t.logger.Debug("delete of absent mapping, nothing to do",
				slog.String("letter", letter),
			)

			return nil
		}

		return fmt.Errorf("mount: net use delete %s exited %d: %s",
			letter, exitErr.ExitCode(), strings.TrimSpace(string(out)))
	}

	return fmt.Errorf("mount: net use delete %s: %w", letter, err)
}
