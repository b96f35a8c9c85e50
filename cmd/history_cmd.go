package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davenport-labs/spindle/internal/config"
	"github.com/davenport-labs/spindle/internal/history"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect persisted runs",
	}
	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyExportCmd())
	cmd.AddCommand(historyImportCmd())
	return cmd
}

// openStore requires the sqlite backend; history commands have nothing
// to read otherwise.
func openStore() (*history.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.History.Backend != "sqlite" {
		return nil, fmt.Errorf("history commands need history.backend: sqlite in the config")
	}
	return history.NewSQLiteStore(cfg.History.Path)
}

func historyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs persisted.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTATUS\tITERATIONS\tSTARTED\tQUERY")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					r.RunID, r.Status, r.Iterations, r.StartedAt.Format("2006-01-02 15:04:05"), r.Query)
			}
			return w.Flush()
		},
	}
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one run: outcome, tool usage counts, last payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			snap, err := db.LoadRun(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("run:     %s\n", snap.RunID)
			fmt.Printf("query:   %s\n", snap.Query)
			fmt.Printf("status:  %s\n", snap.Status)
			fmt.Printf("cycles:  %d\n", len(snap.Records))
			if last := history.LastPayload(snap.Records); last != "" {
				fmt.Printf("last:    %s\n", last)
			}
			for _, e := range snap.Errors {
				fmt.Printf("error:   iteration %d: %s\n", e.Iteration, e.Message)
			}

			usage := history.FunctionUsage(snap.Records)
			if len(usage) > 0 {
				names := make([]string, 0, len(usage))
				for name := range usage {
					names = append(names, name)
				}
				sort.Strings(names)

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\nTOOL\tCALLS")
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%d\n", name, usage[name])
				}
				return w.Flush()
			}
			return nil
		},
	}
}

func historyExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			snap, err := db.LoadRun(args[0])
			if err != nil {
				return err
			}

			dest := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				dest = f
			}
			return history.ExportJSON(dest, snap)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func historyImportCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a previously exported run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			snap, err := history.ImportJSON(f)
			if err != nil {
				return err
			}
			if label != "" {
				snap.RunID = config.NormalizeRunLabel(label)
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveRun(snap); err != nil {
				return err
			}
			fmt.Printf("imported run %s (%d records)\n", snap.RunID, len(snap.Records))
			return nil
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "store the run under a new ID")
	return cmd
}
