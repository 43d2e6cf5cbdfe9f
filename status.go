package main

import (
	"github.com/spf13/cobra"

	"github.com/drivemapper/drivemapper/internal/reconcile"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the observed mount state of every declared drive letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := shutdownContext(cmd.Context(), logger)

			mappings, err := loadMappings(ctx, resolvedCfg, logger)
			if err != nil {
				return err
			}

			// Authorization is irrelevant for a state readout; classify as
			// if everything were authorized so the ops column shows what a
			// fully-entitled run would do.
			planner := buildPlanner(resolvedCfg, buildTable(resolvedCfg, logger), logger)

			plan, err := planner.Plan(ctx, mappings, reconcile.Always)
			if err != nil {
				return err
			}

			return renderStatus(plan)
		},
	}
}
