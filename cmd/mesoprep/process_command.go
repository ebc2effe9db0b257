package main

import (
	"fmt"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"mesoprep/internal/preflight"
	"mesoprep/internal/session"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var userName string

	cmd := &cobra.Command{
		Use:   "process <session-id> [session-id...]",
		Short: "Prepare one or more sessions for transfer",
		Long: `Prepare acquisition sessions for transfer: read the sync trace for start
and end timing, generate session metadata, collect modality files, and write a
watchdog transfer manifest. Sessions are processed independently; a failure in
one does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			name := strings.TrimSpace(userName)
			if name == "" {
				name = currentUserName()
			}
			if name == "" {
				return fmt.Errorf("no user name given and none could be detected; pass --user")
			}

			if failure, failed := preflight.FirstFailure(preflight.Run(cfg)); failed {
				return fmt.Errorf("preflight failed: %s (%s)", failure.Name, failure.Detail)
			}

			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			store, err := ctx.openStore(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			processor := session.NewProcessor(cfg, store, logger)

			out := cmd.OutOrStdout()
			var failed int
			for _, sessionID := range args {
				outcome, err := processor.Process(cmd.Context(), sessionID, name)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: failed: %v\n", sessionID, err)
					continue
				}
				fmt.Fprintf(out, "%s: subject %s, project %s, %s to %s\n",
					sessionID, outcome.SubjectID, outcome.ProjectName,
					outcome.Start.Format("15:04:05"), outcome.End.Format("15:04:05"))
				fmt.Fprintf(out, "%s: manifest %s\n", sessionID, outcome.ManifestPath)
				for modality, patterns := range outcome.Missing {
					for _, pattern := range patterns {
						fmt.Fprintf(out, "%s: warning: %s pattern %q matched no files\n", sessionID, modality, pattern)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d sessions failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userName, "user", "u", "", "Full name recorded as experimenter and manifest processor")

	return cmd
}

func currentUserName() string {
	current, err := user.Current()
	if err != nil {
		return ""
	}
	if name := strings.TrimSpace(current.Name); name != "" {
		return name
	}
	return strings.TrimSpace(current.Username)
}
