package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the metastore schema",
		Long:  "Applies pending metastore migrations. Every other command does this implicitly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			writeDB, readDB, res, err := openMetastore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer writeDB.Close()
			defer readDB.Close()

			applied := res.Applied
			if applied == nil {
				applied = []int64{}
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"path":    cfg.MetaDBPath,
					"applied": applied,
					"version": res.Version,
				})
			}
			out := cmd.OutOrStdout()
			for _, v := range applied {
				_, _ = fmt.Fprintf(out, "Applied migration %05d.\n", v)
			}
			_, _ = fmt.Fprintf(out, "Metastore %s is at version %d.\n", cfg.MetaDBPath, res.Version)
			return nil
		},
	}
}
