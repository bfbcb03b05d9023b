package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tablebuilder/internal/declarative"
)

// loadDesired loads and validates the configuration directory. Validation
// errors are listed on errOut and returned as a single error.
func loadDesired(configDir string, errOut io.Writer) (*declarative.DesiredState, error) {
	desired, err := declarative.LoadDirectory(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErrs := declarative.Validate(desired); len(validationErrs) > 0 {
		_, _ = fmt.Fprintf(errOut, "Configuration has %d validation error(s):\n", len(validationErrs))
		for _, ve := range validationErrs {
			_, _ = fmt.Fprintf(errOut, "  - %s\n", ve.Error())
		}
		return nil, fmt.Errorf("configuration is invalid")
	}
	return desired, nil
}

// buildPlan diffs the configuration against the tables in the session.
func buildPlan(cmd *cobra.Command, s *session, configDir string, prune bool) (*declarative.Plan, error) {
	desired, err := loadDesired(configDir, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	actual, err := declarative.ReadState(cmd.Context(), s.app.Registry)
	if err != nil {
		return nil, fmt.Errorf("read current state: %w", err)
	}
	return declarative.Diff(desired, actual, declarative.DiffOptions{Prune: prune}), nil
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var (
		configDir string
		prune     bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show changes required to match the declarative configuration",
		Long: `Reads YAML table manifests, compares them with the current tables, and shows
a plan of changes. Exits with status 2 when the plan is not empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				plan, err := buildPlan(cmd, s, configDir, prune)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if getOutputFormat(cmd) == "json" {
					if err := declarative.FormatJSON(out, plan); err != nil {
						return fmt.Errorf("format plan: %w", err)
					}
				} else {
					declarative.FormatText(out, plan, colorDisabled(out, opts.noColor))
				}

				// Exit code 2 if there are changes (useful for CI).
				if plan.HasChanges() {
					return &exitCodeError{code: 2}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "./tables", "Path to configuration directory")
	cmd.Flags().BoolVar(&prune, "prune", false, "Plan deletion of tables missing from the configuration")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the declarative configuration without touching any store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desired, err := loadDesired(configDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "tables": len(desired.Tables)})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d table(s).\n", len(desired.Tables))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./tables", "Path to configuration directory")
	return cmd
}
