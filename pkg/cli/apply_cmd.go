package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tablebuilder/internal/declarative"
)

func newApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		configDir   string
		prune       bool
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply declarative configuration changes",
		Long: `Reads YAML table manifests, compares them with the current tables, and applies
the changes. Removing or retyping a column deletes its data; tables marked
deletion_protection refuse such changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				plan, err := buildPlan(cmd, s, configDir, prune)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				declarative.FormatText(out, plan, colorDisabled(out, opts.noColor))
				if !plan.HasChanges() {
					return nil
				}
				if len(plan.Errors) > 0 {
					return fmt.Errorf("plan has %d error(s); nothing was applied", len(plan.Errors))
				}

				// Confirm unless auto-approved.
				if !autoApprove {
					if !isStdinTTY() {
						return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
					}
					_, _ = fmt.Fprint(out, "\nApply these changes? [y/N] ")
					if !confirmed(bufio.NewReader(os.Stdin)) {
						_, _ = fmt.Fprintln(out, "Apply cancelled.")
						return nil
					}
				}

				res, err := declarative.Apply(cmd.Context(), s.app.Registry, plan, newLogger(cmd.ErrOrStderr(), opts.verbose))
				_, _ = fmt.Fprintf(out, "\nApply complete: %d created, %d updated, %d deleted.\n", res.Created, res.Updated, res.Deleted)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "./tables", "Path to configuration directory")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete tables missing from the configuration")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")

	return cmd
}
