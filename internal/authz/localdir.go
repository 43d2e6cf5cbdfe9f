package authz

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command and returns its combined
// output. Defined here at the consumer so tests can substitute canned
// output for the directory query.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the real CommandRunner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LocalOracle resolves group membership from the local directory through a
// single synchronous `whoami /groups` query. It returns group display names
// (the GroupName form of the desired-state file). No retry: the call is
// local and either works or the run should fail loudly.
type LocalOracle struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewLocalOracle creates a local-directory oracle. runner may be nil, in
// which case commands run through os/exec.
func NewLocalOracle(runner CommandRunner, logger *slog.Logger) *LocalOracle {
	if runner == nil {
		runner = ExecRunner{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &LocalOracle{runner: runner, logger: logger}
}

// Groups queries the local directory for the current identity's groups.
func (o *LocalOracle) Groups(ctx context.Context) (Memberships, error) {
	out, err := o.runner.Run(ctx, "whoami", "/groups", "/fo", "csv")
	if err != nil {
		return nil, fmt.Errorf("%w: querying local directory: %w", ErrUnavailable, err)
	}

	names, err := parseWhoamiGroups(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	groups := NewMemberships(names)

	o.logger.Info("group membership resolved",
		slog.String("oracle", "local"),
		slog.Int("groups", len(groups)),
	)

	return groups, nil
}

// parseWhoamiGroups extracts group names from `whoami /groups /fo csv`
// output. The first column holds the qualified group name; both the
// qualified form (DOMAIN\Group) and the bare name are returned so desired
// state can reference either.
func parseWhoamiGroups(out []byte) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(string(out)))
	// whoami quotes every field; row width is stable but be tolerant of
	// localized extra columns.
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing whoami output: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("whoami returned no group rows")
	}

	var names []string

	// Skip the header row.
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}

		qualified := strings.TrimSpace(rec[0])
		if qualified == "" {
			continue
		}

		names = append(names, qualified)

		if i := strings.LastIndex(qualified, `\`); i >= 0 {
			names = append(names, qualified[i+1:])
		}
	}

	return names, nil
}
