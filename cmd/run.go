package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/davenport-labs/spindle/internal/bus"
	"github.com/davenport-labs/spindle/internal/config"
	"github.com/davenport-labs/spindle/internal/dispatch"
	"github.com/davenport-labs/spindle/internal/history"
	"github.com/davenport-labs/spindle/internal/loop"
	"github.com/davenport-labs/spindle/internal/prompt"
	"github.com/davenport-labs/spindle/internal/provider"
	"github.com/davenport-labs/spindle/internal/retrieval"
	"github.com/davenport-labs/spindle/internal/tools"
)

func runCmd() *cobra.Command {
	var (
		label    string
		quiet    bool
		maxIters int
	)
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Run a query through the agent loop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if maxIters > 0 {
				cfg.MaxIterations = maxIters
			}
			query := strings.Join(args, " ")
			return runQuery(cmd.Context(), cfg, query, label, quiet)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "human-readable label for the run")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-iteration progress output")
	cmd.Flags().IntVar(&maxIters, "max-iterations", 0, "override the configured iteration ceiling")
	return cmd
}

func runQuery(ctx context.Context, cfg *config.Config, query, label string, quiet bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The --log-level flag wins over the config file.
	if logLevel == "" && cfg.Logging.Level != "" {
		logLevel = cfg.Logging.Level
		setupLogging()
	}

	registry := tools.NewRegistry()
	for _, tool := range tools.Builtins(os.Stdout) {
		registry.Register(tool)
	}
	registry.SetRateLimiter(tools.NewRateLimiter(cfg.Tools.RatePerSec, cfg.Tools.RateBurst))

	store := history.NewMemoryStore()

	viz := dispatch.VisualizationPolicy{
		Enabled:      cfg.Visualization.Enabled,
		TriggerWords: cfg.Visualization.TriggerWords,
		Tool:         cfg.Visualization.Tool,
		Width:        cfg.Visualization.Width,
		Height:       cfg.Visualization.Height,
		Label:        cfg.Visualization.Text,
	}
	dispatcher := dispatch.New(registry, store, viz)

	var index *retrieval.Index
	if cfg.Retrieval.Enabled {
		var err error
		index, err = retrieval.NewIndex(retrieval.BuiltinCorpus())
		if err != nil {
			return err
		}
	}

	gen := provider.NewRateLimited(
		provider.NewOpenAIProvider(cfg.Provider.Name, cfg.APIKey(), cfg.Provider.APIBase, cfg.Provider.Model),
		cfg.Provider.RatePerSec, cfg.Provider.RateBurst,
	)

	events := bus.New()
	if !quiet {
		events.Subscribe("cli", printProgress)
	}

	controller, err := loop.New(loop.Options{
		Catalog:           registry.Catalog(),
		Provider:          gen,
		Dispatcher:        dispatcher,
		Store:             store,
		Builder:           prompt.NewBuilder(prompt.NewTokenCounter(), cfg.Prompt.TokenBudget),
		Index:             index,
		Bus:               events,
		MaxIterations:     cfg.MaxIterations,
		CompletionMarkers: cfg.Markers,
		GenerationTimeout: time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		RetrievalTopK:     cfg.Retrieval.TopK,
	})
	if err != nil {
		return err
	}

	// With a config file present, pick up edits to the tunable knobs
	// (markers, visualization policy, log level) without a restart.
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: config watcher unavailable: %v\n", err)
		} else {
			watcher.OnChange(func(newCfg *config.Config) {
				controller.SetCompletionMarkers(newCfg.Markers)
				dispatcher.SetVisualizationPolicy(dispatch.VisualizationPolicy{
					Enabled:      newCfg.Visualization.Enabled,
					TriggerWords: newCfg.Visualization.TriggerWords,
					Tool:         newCfg.Visualization.Tool,
					Width:        newCfg.Visualization.Width,
					Height:       newCfg.Visualization.Height,
					Label:        newCfg.Visualization.Text,
				})
				if newCfg.Logging.Level != "" {
					logLevel = newCfg.Logging.Level
					setupLogging()
				}
			})
			if err := watcher.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: config watcher not started: %v\n", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	runID := uuid.NewString()
	if label != "" {
		runID = config.NormalizeRunLabel(label) + "-" + runID[:8]
	}

	started := time.Now().UTC()
	res := controller.Run(ctx, runID, query)

	if err := persistRun(cfg, store, res, query, started); err != nil {
		fmt.Fprintf(os.Stderr, "warning: run not persisted: %v\n", err)
	}

	fmt.Printf("\nrun %s finished: %s after %d iteration(s)\n", res.RunID, res.Status, res.Iterations)
	if res.Answer != "" {
		fmt.Printf("answer: %s\n", res.Answer)
	}
	if res.Status == loop.StatusFailed {
		if res.Err != nil {
			return res.Err
		}
		return fmt.Errorf("run failed")
	}
	return nil
}

func persistRun(cfg *config.Config, store *history.MemoryStore, res loop.Result, query string, started time.Time) error {
	if cfg.History.Backend != "sqlite" {
		return nil
	}
	db, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveRun(history.Snapshot{
		RunID:     res.RunID,
		Query:     query,
		Status:    string(res.Status),
		StartedAt: started,
		EndedAt:   time.Now().UTC(),
		Records:   store.Records(),
		Errors:    store.Errors(),
	})
}

func printProgress(e bus.Event) {
	switch e.Type {
	case bus.EventRunStarted:
		fmt.Printf("[%s] started (%s)\n", e.RunID, e.Detail)
	case bus.EventDecision:
		fmt.Printf("  #%d decide: %s\n", e.Iteration, e.Detail)
	case bus.EventToolCalled:
		if e.Detail != "" {
			fmt.Printf("  #%d act:    %s\n", e.Iteration, e.Detail)
		}
	case bus.EventToolFailed:
		fmt.Printf("  #%d failed: %s\n", e.Iteration, e.Detail)
	}
}
