// Package loop runs the observe, decide, act, record cycle until the
// run terminates.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/davenport-labs/spindle/internal/bus"
	"github.com/davenport-labs/spindle/internal/catalog"
	"github.com/davenport-labs/spindle/internal/decision"
	"github.com/davenport-labs/spindle/internal/dispatch"
	"github.com/davenport-labs/spindle/internal/history"
	"github.com/davenport-labs/spindle/internal/perception"
	"github.com/davenport-labs/spindle/internal/prompt"
	"github.com/davenport-labs/spindle/internal/provider"
	"github.com/davenport-labs/spindle/internal/retrieval"
)

// Status is how a run ended. A run never ends silently: one of these is
// always reported.
type Status string

const (
	// StatusFinal: the model produced a final answer, or a completion
	// marker showed up in a tool payload.
	StatusFinal Status = "final"
	// StatusExhausted: the iteration ceiling was reached first.
	StatusExhausted Status = "exhausted"
	// StatusFailed: generation, parsing or dispatch failed.
	StatusFailed Status = "failed"
)

// Result is the terminal report of one run.
type Result struct {
	RunID      string
	Status     Status
	Answer     string
	Iterations int
	Err        error
}

// Options wires a Controller. Catalog, Provider, Dispatcher and Store
// are required; the rest have working defaults.
type Options struct {
	Catalog    *catalog.Catalog
	Provider   provider.Provider
	Dispatcher *dispatch.Dispatcher
	Store      history.Store

	Builder *prompt.Builder
	Index   *retrieval.Index // nil disables retrieval
	Bus     *bus.Bus         // nil disables progress events

	MaxIterations     int
	CompletionMarkers []string
	GenerationTimeout time.Duration
	RetrievalTopK     int
}

// Controller drives the iteration cycle.
type Controller struct {
	opts Options

	markerMu sync.RWMutex
	markers  []string
}

func New(opts Options) (*Controller, error) {
	if opts.Catalog == nil || opts.Provider == nil || opts.Dispatcher == nil || opts.Store == nil {
		return nil, fmt.Errorf("loop: catalog, provider, dispatcher and store are required")
	}
	if err := opts.Catalog.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 5
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 30 * time.Second
	}
	if opts.Builder == nil {
		opts.Builder = prompt.NewBuilder(nil, 0)
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 3
	}
	return &Controller{opts: opts, markers: opts.CompletionMarkers}, nil
}

// SetCompletionMarkers replaces the marker set. Safe to call while a
// run is in flight; config hot-reload uses this.
func (c *Controller) SetCompletionMarkers(markers []string) {
	c.markerMu.Lock()
	defer c.markerMu.Unlock()
	c.markers = append([]string(nil), markers...)
}

// Run executes the cycle for one query. The returned result is definite:
// final, exhausted or failed, never an implicit stop.
func (c *Controller) Run(ctx context.Context, runID, query string) Result {
	snap := perception.Analyze(query)
	slog.Info("run started", "run_id", runID, "query_type", snap.QueryType, "concepts", snap.KeyConcepts)
	c.publish(bus.Event{RunID: runID, Type: bus.EventRunStarted, Detail: string(snap.QueryType)})

	knowledge := ""
	if c.opts.Index != nil {
		knowledge = c.opts.Index.ContextSummary(query, c.opts.RetrievalTopK)
	}
	system := c.opts.Builder.System(c.opts.Catalog, knowledge)

	repeats := bus.NewRepeatDetector(time.Hour, 256)
	var summaries []string
	var lastPayload string

	for iteration := 1; iteration <= c.opts.MaxIterations; iteration++ {
		obs := perception.Observation{
			Query:       query,
			Iteration:   iteration,
			ToolNames:   c.opts.Catalog.Names(),
			LastPayload: lastPayload,
		}
		slog.Debug("observe", "run_id", runID, "iteration", obs.Iteration,
			"tools", len(obs.ToolNames), "last_payload", obs.LastPayload)

		user := c.opts.Builder.UserTurn(obs.Query, summaries)

		text, err := c.generate(ctx, system, user)
		if err != nil {
			return c.fail(runID, iteration, fmt.Errorf("generation failed: %w", err))
		}
		if repeats.Seen(text) {
			slog.Warn("model repeated a decision", "run_id", runID, "iteration", iteration)
		}
		c.publish(bus.Event{RunID: runID, Type: bus.EventDecision, Iteration: iteration, Detail: firstLine(text)})

		dec, err := decision.Parse(text, c.opts.Catalog)
		if err != nil {
			return c.fail(runID, iteration, fmt.Errorf("parse decision: %w", err))
		}

		out := c.opts.Dispatcher.Dispatch(ctx, iteration, dec)
		lastPayload = out.PayloadText()

		if !out.Succeeded {
			c.publish(bus.Event{RunID: runID, Type: bus.EventToolFailed, Iteration: iteration, Detail: lastPayload})
			return c.finish(Result{
				RunID:      runID,
				Status:     StatusFailed,
				Answer:     lastPayload,
				Iterations: iteration,
				Err:        fmt.Errorf("dispatch failed at iteration %d: %s", iteration, lastPayload),
			})
		}
		c.publish(bus.Event{RunID: runID, Type: bus.EventToolCalled, Iteration: iteration, Detail: out.ToolName})

		if dec.Kind == decision.KindFinalAnswer {
			return c.finish(Result{RunID: runID, Status: StatusFinal, Answer: dec.Answer, Iterations: iteration})
		}
		if marker, ok := c.markerIn(lastPayload); ok {
			slog.Info("completion marker observed", "run_id", runID, "marker", marker)
			return c.finish(Result{RunID: runID, Status: StatusFinal, Answer: lastPayload, Iterations: iteration})
		}

		summaries = append(summaries, prompt.IterationSummary(iteration, dec.Tool, dec.Arguments, lastPayload))
	}

	return c.finish(Result{
		RunID:      runID,
		Status:     StatusExhausted,
		Answer:     lastPayload,
		Iterations: c.opts.MaxIterations,
	})
}

func (c *Controller) generate(ctx context.Context, system, user string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, c.opts.GenerationTimeout)
	defer cancel()
	return c.opts.Provider.Generate(genCtx, system, user)
}

// fail records a fatal pre-dispatch error. These cycles never produce
// an iteration record, only a run error.
func (c *Controller) fail(runID string, iteration int, err error) Result {
	slog.Error("run failed", "run_id", runID, "iteration", iteration, "error", err)
	if appendErr := c.opts.Store.AppendError(history.RunError{
		Iteration: iteration,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}); appendErr != nil {
		slog.Error("run error append failed", "error", appendErr)
	}
	return c.finish(Result{RunID: runID, Status: StatusFailed, Iterations: iteration, Err: err})
}

func (c *Controller) finish(res Result) Result {
	slog.Info("run finished", "run_id", res.RunID, "status", res.Status, "iterations", res.Iterations)
	c.publish(bus.Event{RunID: res.RunID, Type: bus.EventRunFinished, Iteration: res.Iterations, Detail: string(res.Status)})
	return res
}

func (c *Controller) markerIn(payload string) (string, bool) {
	c.markerMu.RLock()
	defer c.markerMu.RUnlock()
	for _, marker := range c.markers {
		if strings.Contains(payload, marker) {
			return marker, true
		}
	}
	return "", false
}

func (c *Controller) publish(e bus.Event) {
	c.opts.Bus.Publish(e)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
