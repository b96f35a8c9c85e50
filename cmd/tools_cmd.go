package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davenport-labs/spindle/internal/catalog"
	"github.com/davenport-labs/spindle/internal/tools"
)

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the builtin tool catalog",
	}
	cmd.AddCommand(toolsListCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tools and their parameters",
		Run: func(cmd *cobra.Command, args []string) {
			runToolsList(jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

type toolListEntry struct {
	Name        string `json:"name"`
	Params      string `json:"params"`
	Description string `json:"description"`
}

func runToolsList(jsonOutput bool) {
	registry := tools.NewRegistry()
	for _, tool := range tools.Builtins(os.Stdout) {
		registry.Register(tool)
	}

	var entries []toolListEntry
	for _, s := range registry.Catalog().Schemas() {
		entries = append(entries, toolListEntry{
			Name:        s.Name,
			Params:      paramSignature(s),
			Description: s.Description,
		})
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Params, e.Description)
	}
	w.Flush()
}

func paramSignature(s *catalog.ToolSchema) string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Name + ": " + p.Kind.String()
	}
	return strings.Join(parts, ", ")
}
