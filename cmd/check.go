package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/faarchive/journaliser/internal/journal"
)

// newCheckCmd creates the check command.
func newCheckCmd() *cobra.Command {
	var (
		minID int64
		maxID int64
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Classify every cached artifact and print a tally per outcome.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			tally, err := appInstance.Engine.Check(cmd.Context(), minID, maxID)
			if err != nil {
				return err
			}
			outcomes := make([]string, 0, len(tally))
			for outcome := range tally {
				outcomes = append(outcomes, string(outcome))
			}
			sort.Strings(outcomes)
			for _, outcome := range outcomes {
				fmt.Fprintf(cmd.OutOrStdout(), "Result: %s, count: %d\n", outcome, tally[journal.Outcome(outcome)])
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&minID, "min", 0, "lowest journal ID to check (0 = unbounded)")
	cmd.Flags().Int64Var(&maxID, "max", 0, "highest journal ID to check (0 = unbounded)")

	return cmd
}
