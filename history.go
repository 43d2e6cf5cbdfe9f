package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drivemapper/drivemapper/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reconciliation runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !resolvedCfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled in config")
			}

			logger := buildLogger()
			ctx := cmd.Context()

			j, err := journal.Open(ctx, resolvedCfg.Journal.Path, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.LastRuns(ctx, limit)
			if err != nil {
				return err
			}

			return renderHistory(runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")

	return cmd
}
