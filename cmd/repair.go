package cmd

import (
	"github.com/spf13/cobra"
)

// newRepairCmd creates the repair command.
func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Fill gaps in the artifact cache and the record store, then exit.",
		Long: `repair makes one pass over the corpus: it fetches any IDs missing
between the lowest and highest cached artifacts, then fills record
gaps from cached artifacts where a good copy exists and from fresh
fetches where it does not.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return appInstance.Engine.Repair(cmd.Context())
		},
	}
}
