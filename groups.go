package main

import (
	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Show the group memberships the authorization oracle resolves",
		Long: "Resolves and prints the current identity's directory group\n" +
			"memberships exactly as reconciliation would see them. Useful when a\n" +
			"drive is unexpectedly missing: if its group key is not in this list,\n" +
			"the mapping is working as designed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := shutdownContext(cmd.Context(), logger)

			oracle, err := buildOracle(resolvedCfg, logger)
			if err != nil {
				return err
			}

			groups, err := oracle.Groups(ctx)
			if err != nil {
				return err
			}

			return renderGroups(groups)
		},
	}
}
