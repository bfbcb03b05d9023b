package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tablebuilder/internal/service/table"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [table...]",
		Short: "Compare table definitions with the physical tables",
		Long: `Checks every table, or only the named ones, for drift between the stored
definition and the physical table in the data store. Exits with status 2
when any table drifted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				var reports []table.DriftReport
				if len(args) == 0 {
					var err error
					if reports, err = s.app.Registry.CheckAllDrift(cmd.Context()); err != nil {
						return err
					}
				}
				for _, name := range args {
					rep, err := s.app.Registry.CheckDrift(cmd.Context(), name)
					if err != nil {
						return err
					}
					reports = append(reports, *rep)
				}

				drifted := 0
				for _, r := range reports {
					if !r.InSync {
						drifted++
					}
				}

				out := cmd.OutOrStdout()
				if getOutputFormat(cmd) == "json" {
					if reports == nil {
						reports = []table.DriftReport{}
					}
					if err := printJSON(out, reports); err != nil {
						return err
					}
				} else {
					rows := make([][]string, 0, len(reports))
					for _, r := range reports {
						if r.InSync {
							rows = append(rows, []string{r.Table, "in sync", ""})
							continue
						}
						for _, d := range r.Drifts {
							rows = append(rows, []string{r.Table, string(d.Kind), describeDrift(d)})
						}
					}
					printTable(out, []string{"table", "status", "detail"}, rows)
					_, _ = fmt.Fprintf(out, "\n%d table(s) checked, %d drifted.\n", len(reports), drifted)
				}

				if drifted > 0 {
					return &exitCodeError{code: 2}
				}
				return nil
			})
		},
	}
}

func describeDrift(d table.Drift) string {
	switch d.Kind {
	case table.DriftMissingTable:
		return "physical table does not exist"
	case table.DriftMissingColumn:
		return fmt.Sprintf("%s: expected %s", d.Column, d.Expected)
	case table.DriftUnexpectedColumn:
		return fmt.Sprintf("%s: %s", d.Column, d.Actual)
	default:
		return fmt.Sprintf("%s: expected %s, found %s", d.Column, d.Expected, d.Actual)
	}
}
