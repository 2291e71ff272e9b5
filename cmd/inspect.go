package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newInspectCmd creates the inspect command.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <journal-id>",
		Short: "Fetch and classify one journal without persisting anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid journal ID %q", args[0])
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cls, err := appInstance.Engine.Inspect(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Outcome: %s\n", cls.Outcome)
			if cls.Message != "" {
				fmt.Fprintf(out, "Message: %s\n", cls.Message)
			}
			if cls.DisabledUsername != "" {
				fmt.Fprintf(out, "Disabled username: %s\n", cls.DisabledUsername)
			}
			if cls.DeletionRequestor != "" {
				fmt.Fprintf(out, "Deletion requested by: %s\n", cls.DeletionRequestor)
			}
			if cls.LoginUser != "" {
				fmt.Fprintf(out, "Fetched as: %s\n", cls.LoginUser)
			}
			if cls.Record != nil {
				payload, err := json.MarshalIndent(cls.Record, "", "  ")
				if err != nil {
					return fmt.Errorf("encode payload: %w", err)
				}
				fmt.Fprintln(out, string(payload))
			}
			return nil
		},
	}
}
