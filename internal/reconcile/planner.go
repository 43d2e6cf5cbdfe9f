package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drivemapper/drivemapper/internal/mapping"
)

// PersonalDrive describes the identity's home drive: a fixed letter and a
// path parameterized by the username. It participates in the same state
// machine as listed mappings, with authorization always true — every
// identity is entitled to its own home drive.
type PersonalDrive struct {
	Enabled      bool
	Name         string
	Letter       string
	Domain       string
	PathTemplate string // e.g. "/Private/{username}"
}

// mapping renders the personal drive into a DriveMapping for the user.
func (p PersonalDrive) mapping(username string) mapping.DriveMapping {
	return mapping.DriveMapping{
		Name:   p.Name,
		Letter: mapping.NormalizeLetter(p.Letter),
		Domain: p.Domain,
		Path:   strings.ReplaceAll(p.PathTemplate, "{username}", username),
	}
}

// Planner probes observed state and classifies every mapping against the
// decision table. It performs no mutations.
type Planner struct {
	table  Table
	policy Policy
	logger *slog.Logger
}

// NewPlanner creates a Planner reading observed state from table.
func NewPlanner(table Table, policy Policy, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Planner{
		table:  table,
		policy: policy,
		logger: logger,
	}
}

// Plan classifies each mapping in input order. isAuthorized answers group
// membership for a mapping's group key. A probe failure is a per-mapping
// condition: the item is kept in the plan, marked skipped, and the pass
// goes on.
func (p *Planner) Plan(
	ctx context.Context,
	mappings []mapping.DriveMapping,
	isAuthorized func(groupKey string) bool,
) (*Plan, error) {
	plan := &Plan{Items: make([]Item, 0, len(mappings)+1)}

	for i := range mappings {
		m := mappings[i]
		item := p.planOne(ctx, m, isAuthorized(m.GroupKey), false)
		plan.Items = append(plan.Items, item)
	}

	p.logger.Info("plan computed",
		slog.Int("mappings", len(plan.Items)),
		slog.Int("actions", plan.ActionCount()),
	)

	return plan, nil
}

// AddPersonal appends the personal home drive to the plan. No-op when the
// personal drive is disabled.
func (p *Planner) AddPersonal(ctx context.Context, plan *Plan, personal PersonalDrive, username string) error {
	if !personal.Enabled {
		return nil
	}

	m := personal.mapping(username)
	if err := m.ValidateBase(); err != nil {
		return fmt.Errorf("reconcile: personal drive: %w", err)
	}

	// The synthetic mapping joins the same letter namespace as the listed
	// ones; the CSV boundary cannot see this collision.
	for i := range plan.Items {
		if plan.Items[i].Mapping.Letter == m.Letter {
			return fmt.Errorf("reconcile: personal drive letter %s already claimed by %q",
				m.Letter, plan.Items[i].Mapping.Name)
		}
	}

	plan.Items = append(plan.Items, p.planOne(ctx, m, true, true))

	return nil
}

// planOne probes one letter and applies the decision table.
func (p *Planner) planOne(ctx context.Context, m mapping.DriveMapping, authorized, personal bool) Item {
	item := Item{
		Mapping:    m,
		Authorized: authorized,
		Personal:   personal,
	}

	state, err := p.table.State(ctx, m.Letter)
	if err != nil {
		p.logger.Warn("probe failed, skipping mapping",
			slog.String("name", m.Name),
			slog.String("letter", m.Letter),
			slog.String("error", err.Error()),
		)

		item.ProbeError = err.Error()
		item.State = "unknown"
		item.Op = OpNone.String()

		return item
	}

	op := Decide(state, authorized, p.policy)

	p.logger.Debug("mapping classified",
		slog.String("name", m.Name),
		slog.String("letter", m.Letter),
		slog.String("state", state.String()),
		slog.Bool("authorized", authorized),
		slog.String("op", op.String()),
	)

	item.state = state
	item.State = state.String()
	item.op = op
	item.Op = op.String()

	return item
}

// Always reports authorization for every group key. Used for plans driven
// purely by observed state (status rendering).
func Always(string) bool { return true }
