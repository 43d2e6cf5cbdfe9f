package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemapper/drivemapper/internal/mapping"
	"github.com/drivemapper/drivemapper/internal/mount"
)

func TestPlanClassifiesEachMapping(t *testing.T) {
	table := newFakeTable()
	table.set("F", mount.Unmounted)
	table.set("G", mount.MountedCorrect)

	mappings := []mapping.DriveMapping{
		financeMapping(),
		{Name: "HR", Letter: "G", Domain: "contoso", Path: "/Shared/HR", GroupKey: "HRUsers"},
	}

	planner := NewPlanner(table, Policy{}, testLogger(t))

	plan, err := planner.Plan(context.Background(), mappings, memberOf("FinanceUsers"))
	require.NoError(t, err)
	require.Len(t, plan.Items, 2)

	// Input order is preserved for log reproducibility.
	assert.Equal(t, "Finance", plan.Items[0].Mapping.Name)
	assert.Equal(t, "mount", plan.Items[0].Op)
	assert.True(t, plan.Items[0].Authorized)

	assert.Equal(t, "HR", plan.Items[1].Mapping.Name)
	assert.Equal(t, "unmount", plan.Items[1].Op)
	assert.False(t, plan.Items[1].Authorized)

	assert.Equal(t, 2, plan.ActionCount())
}

func TestPlanProbeFailureSkipsMappingOnly(t *testing.T) {
	table := newFakeTable()
	table.stateErr["F"] = errors.New("wmi unavailable")
	table.set("G", mount.Unmounted)

	mappings := []mapping.DriveMapping{
		financeMapping(),
		{Name: "HR", Letter: "G", Domain: "contoso", Path: "/Shared/HR", GroupKey: "HRUsers"},
	}

	planner := NewPlanner(table, Policy{}, testLogger(t))

	plan, err := planner.Plan(context.Background(), mappings, memberOf("FinanceUsers", "HRUsers"))
	require.NoError(t, err)
	require.Len(t, plan.Items, 2)

	assert.NotEmpty(t, plan.Items[0].ProbeError)
	assert.Equal(t, "none", plan.Items[0].Op)

	// The failure is per-mapping: the second mapping still plans normally.
	assert.Empty(t, plan.Items[1].ProbeError)
	assert.Equal(t, "mount", plan.Items[1].Op)

	// A skipped item never counts as a pending action.
	assert.Equal(t, 1, plan.ActionCount())
}

func TestAddPersonalAppendsAlwaysAuthorized(t *testing.T) {
	table := newFakeTable()
	table.set("P", mount.Unmounted)

	planner := NewPlanner(table, Policy{}, testLogger(t))

	plan := &Plan{}
	personal := PersonalDrive{
		Enabled:      true,
		Name:         "My Drive",
		Letter:       "p",
		Domain:       "contoso",
		PathTemplate: "/Private/{username}",
	}

	require.NoError(t, planner.AddPersonal(context.Background(), plan, personal, "jdoe"))
	require.Len(t, plan.Items, 1)

	item := plan.Items[0]
	assert.True(t, item.Personal)
	assert.True(t, item.Authorized)
	assert.Equal(t, "P", item.Mapping.Letter)
	assert.Equal(t, "/Private/jdoe", item.Mapping.Path)
	assert.Equal(t, "mount", item.Op)
}

func TestAddPersonalDisabledIsNoop(t *testing.T) {
	planner := NewPlanner(newFakeTable(), Policy{}, testLogger(t))

	plan := &Plan{}
	require.NoError(t, planner.AddPersonal(context.Background(), plan, PersonalDrive{}, "jdoe"))
	assert.Empty(t, plan.Items)
}

func TestAddPersonalRejectsLetterCollision(t *testing.T) {
	table := newFakeTable()
	table.set("F", mount.Unmounted)

	planner := NewPlanner(table, Policy{}, testLogger(t))

	plan, err := planner.Plan(context.Background(),
		[]mapping.DriveMapping{financeMapping()}, memberOf("FinanceUsers"))
	require.NoError(t, err)

	personal := PersonalDrive{
		Enabled:      true,
		Name:         "My Drive",
		Letter:       "F", // same mount point as the Finance mapping
		Domain:       "contoso",
		PathTemplate: "/Private/{username}",
	}

	err = planner.AddPersonal(context.Background(), plan, personal, "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `already claimed by "Finance"`)

	// The colliding item was not appended.
	require.Len(t, plan.Items, 1)
}

func TestAddPersonalRejectsBadTemplate(t *testing.T) {
	planner := NewPlanner(newFakeTable(), Policy{}, testLogger(t))

	personal := PersonalDrive{
		Enabled:      true,
		Name:         "My Drive",
		Letter:       "PP", // not a single letter
		PathTemplate: "/Private/{username}",
	}

	err := planner.AddPersonal(context.Background(), &Plan{}, personal, "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "personal drive")
}
