// Package cli implements the tablebuilder command-line interface. Commands
// work directly on the metastore and data store configured for the server.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// exitCodeError makes Execute return a specific exit code. A nil err exits
// silently, which plan and check use to report "changes found".
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

// globalOptions holds the root persistent flags.
type globalOptions struct {
	envFile    string
	metaDB     string
	dataDriver string
	dataDSN    string
	output     string
	noColor    bool
	verbose    bool
}

// Execute runs the CLI.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	code := 1
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		code = exitErr.code
		if exitErr.err == nil {
			return code
		}
	}

	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == "json" {
		_ = printJSON(stdout, map[string]any{"error": err.Error()})
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "tablebuilder",
		Short:         "Manage dynamic tables",
		Long:          "Command-line interface for creating, changing and inspecting dynamic tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(opts.output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file loaded before the environment is read")
	flags.StringVar(&opts.metaDB, "meta-db", "", "Metastore path (overrides META_DB_PATH)")
	flags.StringVar(&opts.dataDriver, "data-driver", "", "Data store driver: sqlite, duckdb or mysql (overrides DATA_DRIVER)")
	flags.StringVar(&opts.dataDSN, "data-dsn", "", "Data store DSN (overrides DATA_DSN)")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newTablesCmd(opts))
	rootCmd.AddCommand(newRowsCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))

	// Declarative configuration commands
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newPlanCmd(opts))
	rootCmd.AddCommand(newApplyCmd(opts))

	// Agent discovery commands
	rootCmd.AddCommand(newCommandsCmd())

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tablebuilder version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
