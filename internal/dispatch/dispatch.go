// Package dispatch executes decisions against the tool-execution
// transport and normalizes results into non-throwing outcomes.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/davenport-labs/spindle/internal/decision"
	"github.com/davenport-labs/spindle/internal/history"
)

// Transport is the opaque asynchronous tool-execution collaborator:
// (name, arguments) -> result | failure.
type Transport interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// TextValue lets transport payload items expose their own textual
// representation; items without it fall back to a generic conversion.
type TextValue interface {
	Text() string
}

// Outcome is the normalized result of dispatching one decision. It is
// always produced, never thrown: transport failures become
// Succeeded=false with the failure description as payload.
type Outcome struct {
	Succeeded bool
	Payload   []string
	ToolName  string
}

// PayloadText flattens the payload for prompts and completion checks.
func (o Outcome) PayloadText() string {
	return strings.Join(o.Payload, " ")
}

// VisualizationPolicy controls the secondary rectangle invocation that
// fires when a final answer asks for a rendering. The original wired
// this unconditionally; it is a policy here so callers can turn it off.
type VisualizationPolicy struct {
	Enabled      bool
	TriggerWords []string
	Tool         string
	Width        int
	Height       int
	Label        string
}

// DefaultVisualizationPolicy matches the original fixed-shape call.
func DefaultVisualizationPolicy() VisualizationPolicy {
	return VisualizationPolicy{
		Enabled:      true,
		TriggerWords: []string{"draw", "visual"},
		Tool:         "draw_rectangle",
		Width:        300,
		Height:       150,
		Label:        "TSAI",
	}
}

// triggered reports whether the answer text asks for a rendering.
// Case-insensitive substring match over the trigger vocabulary.
func (p VisualizationPolicy) triggered(answer string) bool {
	if !p.Enabled {
		return false
	}
	lower := strings.ToLower(answer)
	for _, word := range p.TriggerWords {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// Dispatcher executes decisions and records every dispatch to history
// before returning, failures included.
type Dispatcher struct {
	transport Transport
	store     history.Store

	vizMu sync.RWMutex
	viz   VisualizationPolicy
}

func New(transport Transport, store history.Store, viz VisualizationPolicy) *Dispatcher {
	return &Dispatcher{transport: transport, store: store, viz: viz}
}

// SetVisualizationPolicy replaces the policy. Safe against concurrent
// dispatches; config hot-reload uses this.
func (d *Dispatcher) SetVisualizationPolicy(viz VisualizationPolicy) {
	d.vizMu.Lock()
	defer d.vizMu.Unlock()
	d.viz = viz
}

func (d *Dispatcher) policy() VisualizationPolicy {
	d.vizMu.RLock()
	defer d.vizMu.RUnlock()
	return d.viz
}

// Dispatch consumes one decision. The returned outcome is falsy on any
// failure; no error propagates past this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, iteration int, dec decision.Decision) Outcome {
	var out Outcome
	switch dec.Kind {
	case decision.KindToolInvocation:
		out = d.invoke(ctx, dec)
	case decision.KindFinalAnswer:
		out = d.finalize(ctx, dec)
	default:
		out = Outcome{Succeeded: false, Payload: []string{fmt.Sprintf("unknown decision kind: %v", dec.Kind)}}
	}

	rec := history.Record{
		Index:     iteration,
		Decision:  decisionRecord(dec),
		Outcome:   history.OutcomeRecord{Succeeded: out.Succeeded, Payload: out.Payload, ToolName: out.ToolName},
		Timestamp: time.Now().UTC(),
	}
	if err := d.store.Append(rec); err != nil {
		slog.Error("history append failed", "iteration", iteration, "error", err)
	}
	return out
}

func (d *Dispatcher) invoke(ctx context.Context, dec decision.Decision) Outcome {
	result, err := d.transport.Call(ctx, dec.Tool, dec.Arguments)
	if err != nil {
		slog.Warn("tool execution failed", "tool", dec.Tool, "error", err)
		return Outcome{Succeeded: false, Payload: []string{err.Error()}, ToolName: dec.Tool}
	}
	return Outcome{Succeeded: true, Payload: normalizePayload(result), ToolName: dec.Tool}
}

func (d *Dispatcher) finalize(ctx context.Context, dec decision.Decision) Outcome {
	viz := d.policy()
	out := Outcome{Succeeded: true, Payload: []string{dec.Answer}}
	if !viz.triggered(dec.Answer) {
		return out
	}

	slog.Info("final answer requests visualization", "tool", viz.Tool)
	args := map[string]any{
		"width":  viz.Width,
		"height": viz.Height,
		"text":   viz.Label,
	}
	result, err := d.transport.Call(ctx, viz.Tool, args)
	if err != nil {
		// A requested rendering that failed must not pass silently: the
		// whole outcome goes falsy even though the answer itself stands.
		slog.Warn("visualization failed", "tool", viz.Tool, "error", err)
		out.Succeeded = false
		out.Payload = append(out.Payload, "visualization failed: "+err.Error())
		return out
	}
	out.Payload = append(out.Payload, normalizePayload(result)...)
	return out
}

// normalizePayload extracts the textual shape of a transport result:
// sequences item by item, scalars via a single conversion.
func normalizePayload(v any) []string {
	switch items := v.(type) {
	case nil:
		return []string{""}
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, itemText(item))
		}
		return out
	default:
		return []string{itemText(v)}
	}
}

func itemText(item any) string {
	switch t := item.(type) {
	case TextValue:
		return t.Text()
	case fmt.Stringer:
		return t.String()
	case string:
		return t
	default:
		return fmt.Sprint(item)
	}
}

func decisionRecord(dec decision.Decision) history.DecisionRecord {
	if dec.Kind == decision.KindFinalAnswer {
		return history.DecisionRecord{Kind: dec.Kind.String(), Answer: dec.Answer}
	}
	return history.DecisionRecord{Kind: dec.Kind.String(), Tool: dec.Tool, Arguments: dec.Arguments}
}
