package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mesoprep/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the environment before processing sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			checks := preflight.Run(cfg)

			headers := []string{"Check", "Ready", "Required", "Detail"}
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				rows = append(rows, []string{
					check.Name,
					yesNo(check.Ready),
					yesNo(check.Required),
					check.Detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))

			if failure, failed := preflight.FirstFailure(checks); failed {
				return fmt.Errorf("preflight failed: %s (%s)", failure.Name, failure.Detail)
			}
			return nil
		},
	}
}
