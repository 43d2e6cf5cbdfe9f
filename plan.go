package main

import (
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would do, without mutating anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := shutdownContext(cmd.Context(), logger)

			plan, err := computePlan(ctx, resolvedCfg, logger)
			if err != nil {
				return err
			}

			return renderPlan(plan)
		},
	}
}
