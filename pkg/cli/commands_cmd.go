package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandEntry describes one runnable command.
type CommandEntry struct {
	Path    string      `json:"path"`
	Group   string      `json:"group"`
	Short   string      `json:"short"`
	Long    string      `json:"long,omitempty"`
	Example string      `json:"example,omitempty"`
	Args    string      `json:"args,omitempty"`
	Aliases []string    `json:"aliases,omitempty"`
	Flags   []FlagEntry `json:"flags,omitempty"`
}

// FlagEntry describes one local flag of a command.
type FlagEntry struct {
	Name     string `json:"name"`
	Short    string `json:"shorthand,omitempty"`
	Type     string `json:"type"`
	Default  string `json:"default,omitempty"`
	Usage    string `json:"usage,omitempty"`
	Required bool   `json:"required,omitempty"`
}

func (e CommandEntry) matches(filter string) bool {
	if filter == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{e.Path, e.Short, e.Long}, " "))
	return strings.Contains(haystack, strings.ToLower(filter))
}

func newCommandsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List every command with its flags",
		Long:  "Walks the command tree and prints each runnable command. Needs no metastore.",
		Example: `  tablebuilder commands
  tablebuilder commands --filter "rows insert" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := []CommandEntry{}
			for _, e := range listCommands(cmd.Root()) {
				if e.matches(filter) {
					entries = append(entries, e)
				}
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Path, e.Args, e.Short}
			}
			printTable(cmd.OutOrStdout(), []string{"command", "args", "description"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Case-insensitive substring matched against paths and descriptions")
	return cmd
}

// listCommands returns the runnable leaf commands under root, sorted by path.
func listCommands(root *cobra.Command) []CommandEntry {
	var entries []CommandEntry
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, child := range c.Commands() {
			if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
				continue
			}
			if child.HasSubCommands() {
				walk(child)
				continue
			}
			entries = append(entries, describeCommand(root, child))
		}
	}
	walk(root)

	slices.SortFunc(entries, func(a, b CommandEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries
}

func describeCommand(root, c *cobra.Command) CommandEntry {
	path := strings.TrimSpace(strings.TrimPrefix(c.CommandPath(), root.Name()))
	group, _, _ := strings.Cut(path, " ")

	var args string
	if _, rest, ok := strings.Cut(c.Use, " "); ok {
		args = strings.TrimSpace(rest)
	}

	e := CommandEntry{
		Path:    path,
		Group:   group,
		Short:   c.Short,
		Long:    c.Long,
		Example: c.Example,
		Args:    args,
		Aliases: c.Aliases,
	}
	c.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		required := f.Annotations[cobra.BashCompOneRequiredFlag]
		e.Flags = append(e.Flags, FlagEntry{
			Name:     f.Name,
			Short:    f.Shorthand,
			Type:     f.Value.Type(),
			Default:  f.DefValue,
			Usage:    f.Usage,
			Required: len(required) > 0 && required[0] == "true",
		})
	})
	return e
}
