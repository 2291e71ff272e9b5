package cmd

import (
	"github.com/spf13/cobra"

	"github.com/faarchive/journaliser/internal/engine"
)

// newImportCmd creates the import command.
func newImportCmd() *cobra.Command {
	var (
		minID        int64
		maxID        int64
		missingField string
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import cached artifacts into the record store.",
		Long: `import re-classifies every cached artifact in the selected ID range
and persists the result, using a bounded worker pool. With
--missing-field it only touches IDs whose stored payload lacks the
named JSON field.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = appInstance.Config.Import.Concurrency
			}
			return appInstance.Engine.Import(cmd.Context(), engine.ImportOptions{
				MinID:        minID,
				MaxID:        maxID,
				MissingField: missingField,
				Concurrency:  concurrency,
			})
		},
	}

	cmd.Flags().Int64Var(&minID, "min", 0, "lowest journal ID to import (0 = unbounded)")
	cmd.Flags().Int64Var(&maxID, "max", 0, "highest journal ID to import (0 = unbounded)")
	cmd.Flags().StringVar(&missingField, "missing-field", "", "only import IDs whose stored payload lacks this JSON field")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "worker count (0 = config default)")

	return cmd
}
