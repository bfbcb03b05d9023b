package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tablebuilder/internal/declarative"
	"tablebuilder/internal/domain"
)

func newTablesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List, inspect, create and drop tables",
	}
	cmd.AddCommand(newTablesListCmd(opts))
	cmd.AddCommand(newTablesDescribeCmd(opts))
	cmd.AddCommand(newTablesCreateCmd(opts))
	cmd.AddCommand(newTablesDropCmd(opts))
	return cmd
}

func newTablesListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				defs, err := declarative.ReadState(cmd.Context(), s.app.Registry)
				if err != nil {
					return err
				}
				if defs == nil {
					defs = []domain.TableDefinition{}
				}
				if getOutputFormat(cmd) == "json" {
					return printJSON(cmd.OutOrStdout(), defs)
				}
				rows := make([][]string, 0, len(defs))
				for _, d := range defs {
					rows = append(rows, []string{d.Name, strconv.Itoa(len(d.Columns)), d.UpdatedAt.Format(time.RFC3339)})
				}
				printTable(cmd.OutOrStdout(), []string{"name", "columns", "updated"}, rows)
				return nil
			})
		},
	}
}

func newTablesDescribeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				def, err := s.app.Registry.GetTable(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return printJSON(cmd.OutOrStdout(), def)
				}
				rows := make([][]string, 0, len(def.Columns))
				for _, c := range def.Columns {
					rows = append(rows, []string{c.Name, string(c.Type), c.CreatedAt.Format(time.RFC3339)})
				}
				printTable(cmd.OutOrStdout(), []string{"column", "type", "created"}, rows)
				return nil
			})
		},
	}
}

// parseColumnFlags turns "name:type" pairs into column specs.
func parseColumnFlags(values []string) ([]domain.ColumnSpec, error) {
	specs := make([]domain.ColumnSpec, 0, len(values))
	for _, v := range values {
		name, typ, ok := strings.Cut(v, ":")
		if !ok || name == "" || typ == "" {
			return nil, fmt.Errorf("invalid --column %q: use name:type", v)
		}
		specs = append(specs, domain.ColumnSpec{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
	}
	return specs, nil
}

func newTablesCreateCmd(opts *globalOptions) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a table",
		Example: `  tablebuilder tables create people --column name:text --column age:integer
  tablebuilder tables create flags -c enabled:boolean`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseColumnFlags(columns)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				def, err := s.app.Registry.CreateTable(cmd.Context(), args[0], specs)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return printJSON(cmd.OutOrStdout(), def)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created table %q with %d column(s).\n", def.Name, len(def.Columns))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&columns, "column", "c", nil, "Column as name:type (repeatable)")
	return cmd
}

func newTablesDropCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table and all of its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				if !isStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --yes")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Drop table %q and all of its rows? [y/N] ", name)
				if !confirmed(bufio.NewReader(os.Stdin)) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Drop cancelled.")
					return nil
				}
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				if err := s.app.Registry.DeleteTable(cmd.Context(), name); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dropped table %q.\n", name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirmed(r *bufio.Reader) bool {
	answer, err := r.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
