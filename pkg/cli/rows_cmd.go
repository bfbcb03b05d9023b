package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"tablebuilder/internal/domain"
)

func newRowsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Insert and list rows",
	}
	cmd.AddCommand(newRowsListCmd(opts))
	cmd.AddCommand(newRowsInsertCmd(opts))
	return cmd
}

func newRowsListCmd(opts *globalOptions) *cobra.Command {
	var (
		maxResults int
		pageToken  string
	)

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List one page of rows ordered by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				page := domain.PageRequest{MaxResults: maxResults, PageToken: pageToken}
				def, err := s.app.Registry.GetTable(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows, total, err := s.app.Registry.ListRows(cmd.Context(), args[0], page)
				if err != nil {
					return err
				}
				next := page.Next(total)

				if getOutputFormat(cmd) == "json" {
					if rows == nil {
						rows = []domain.Row{}
					}
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"rows":            rows,
						"total_size":      total,
						"next_page_token": next,
					})
				}

				names := make([]string, 0, len(def.Columns))
				for _, c := range def.Columns {
					names = append(names, c.Name)
				}
				sort.Strings(names)
				header := append([]string{domain.RowIDColumn}, names...)
				out := make([][]string, 0, len(rows))
				for _, r := range rows {
					line := []string{strconv.FormatInt(r.ID, 10)}
					for _, n := range names {
						v, _ := r.Get(n)
						line = append(line, fmt.Sprint(v))
					}
					out = append(out, line)
				}
				printTable(cmd.OutOrStdout(), header, out)
				if next != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nMore rows: --page-token %s\n", next)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxResults, "max-results", domain.DefaultMaxResults, "Rows per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token from a previous page")
	return cmd
}

func newRowsInsertCmd(opts *globalOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "insert <table>",
		Short: "Insert a row given as a JSON object",
		Example: `  tablebuilder rows insert people --data '{"name":"Ada","age":36}'
  echo '{"name":"Ada","age":36}' | tablebuilder rows insert people --data -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(data)
			if data == "-" {
				var err error
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			fields, err := decodeRow(raw)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, cmd.ErrOrStderr(), func(s *session) error {
				row, err := s.app.Registry.InsertRow(cmd.Context(), args[0], fields)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return printJSON(cmd.OutOrStdout(), row)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Inserted row %d into %q.\n", row.ID, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Row as a JSON object, or - to read stdin")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func decodeRow(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid row JSON: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("row must be a JSON object")
	}
	return fields, nil
}
