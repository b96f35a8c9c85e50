package loop

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/davenport-labs/spindle/internal/bus"
	"github.com/davenport-labs/spindle/internal/catalog"
	"github.com/davenport-labs/spindle/internal/dispatch"
	"github.com/davenport-labs/spindle/internal/history"
	"github.com/davenport-labs/spindle/internal/provider"
)

type fakeTransport struct {
	calls   []string
	results map[string]any
	errs    map[string]error
}

func (f *fakeTransport) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return f.results[name], nil
}

// scripted returns each response once, in order.
func scripted(responses ...string) provider.Provider {
	i := 0
	return provider.Func(func(ctx context.Context, system, user string) (string, error) {
		if i >= len(responses) {
			return "", errors.New("script exhausted")
		}
		resp := responses[i]
		i++
		return resp, nil
	})
}

func testCatalog() *catalog.Catalog {
	return catalog.New(
		&catalog.ToolSchema{
			Name:        "add",
			Description: "Adds two integers",
			Params: []catalog.Param{
				{Name: "a", Kind: catalog.KindInteger},
				{Name: "b", Kind: catalog.KindInteger},
			},
		},
	)
}

type fixture struct {
	controller *Controller
	store      *history.MemoryStore
	transport  *fakeTransport
}

func newFixture(t *testing.T, p provider.Provider, mutate func(*Options)) *fixture {
	t.Helper()
	store := history.NewMemoryStore()
	transport := &fakeTransport{results: map[string]any{"add": 5}}
	viz := dispatch.DefaultVisualizationPolicy()
	viz.Enabled = false
	opts := Options{
		Catalog:           testCatalog(),
		Provider:          p,
		Dispatcher:        dispatch.New(transport, store, viz),
		Store:             store,
		MaxIterations:     3,
		GenerationTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{controller: c, store: store, transport: transport}
}

func TestRun_FinalAnswerStopsLoop(t *testing.T) {
	f := newFixture(t, scripted(
		"FUNCTION_CALL: add|2|3",
		"FINAL_ANSWER: [5]",
	), nil)

	res := f.controller.Run(context.Background(), "r1", "compute 2+3")
	if res.Status != StatusFinal {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	if res.Answer != "[5]" {
		t.Fatalf("answer = %q", res.Answer)
	}
	if res.Iterations != 2 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	if got := len(f.store.Records()); got != 2 {
		t.Fatalf("records = %d", got)
	}
}

func TestRun_ExhaustsAtCeiling(t *testing.T) {
	f := newFixture(t, scripted(
		"FUNCTION_CALL: add|1|1",
		"FUNCTION_CALL: add|2|2",
		"FUNCTION_CALL: add|3|3",
		"FUNCTION_CALL: add|4|4", // never reached
	), nil)

	res := f.controller.Run(context.Background(), "r1", "keep adding")
	if res.Status != StatusExhausted {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Iterations != 3 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	if len(f.transport.calls) != 3 {
		t.Fatalf("transport calls = %d", len(f.transport.calls))
	}
	if res.Answer != "5" {
		t.Fatalf("answer = %q", res.Answer)
	}
}

func TestRun_UnknownToolFailsWithoutIterationRecord(t *testing.T) {
	f := newFixture(t, scripted("FUNCTION_CALL: divide|6|2"), nil)

	res := f.controller.Run(context.Background(), "r1", "divide")
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if len(f.store.Records()) != 0 {
		t.Fatalf("unexpected iteration records: %d", len(f.store.Records()))
	}
	errs := f.store.Errors()
	if len(errs) != 1 {
		t.Fatalf("run errors = %d", len(errs))
	}
	if errs[0].Iteration != 1 || !strings.Contains(errs[0].Message, "unknown tool") {
		t.Fatalf("run error = %+v", errs[0])
	}
	if len(f.transport.calls) != 0 {
		t.Fatal("transport must not be reached for an unresolvable decision")
	}
}

func TestRun_MalformedDecisionFails(t *testing.T) {
	f := newFixture(t, scripted("I would rather chat about the weather at length today"), nil)

	res := f.controller.Run(context.Background(), "r1", "compute")
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if len(f.store.Errors()) != 1 {
		t.Fatalf("run errors = %d", len(f.store.Errors()))
	}
}

func TestRun_DispatchFailureBeatsContinuation(t *testing.T) {
	f := newFixture(t, scripted(
		"FUNCTION_CALL: add|2|3",
		"FUNCTION_CALL: add|9|9", // never reached
	), nil)
	f.transport.errs = map[string]error{"add": errors.New("boom")}

	res := f.controller.Run(context.Background(), "r1", "compute")
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Iterations != 1 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	// The failed dispatch is still one recorded cycle.
	recs := f.store.Records()
	if len(recs) != 1 || recs[0].Outcome.Succeeded {
		t.Fatalf("records = %+v", recs)
	}
}

func TestRun_CompletionMarkerEndsRun(t *testing.T) {
	f := newFixture(t, scripted(
		"FUNCTION_CALL: add|1|1",
		"FUNCTION_CALL: add|2|2", // never reached
	), func(o *Options) {
		o.CompletionMarkers = []string{"e31", "e32", "e33"}
	})
	f.transport.results["add"] = "stage complete e32"

	res := f.controller.Run(context.Background(), "r1", "compute")
	if res.Status != StatusFinal {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Iterations != 1 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	if !strings.Contains(res.Answer, "e32") {
		t.Fatalf("answer = %q", res.Answer)
	}
}

func TestRun_MarkerSwapTakesEffect(t *testing.T) {
	f := newFixture(t, scripted(
		"FUNCTION_CALL: add|1|1",
		"FUNCTION_CALL: add|2|2", // never reached
	), nil)
	f.transport.results["add"] = "stage complete e32"

	// No markers at construction; the swapped-in set must be honored.
	f.controller.SetCompletionMarkers([]string{"e32"})

	res := f.controller.Run(context.Background(), "r1", "compute")
	if res.Status != StatusFinal {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Iterations != 1 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
}

func TestRun_GenerationTimeoutIsFatal(t *testing.T) {
	slow := provider.Func(func(ctx context.Context, system, user string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "FINAL_ANSWER: [1]", nil
		}
	})
	f := newFixture(t, slow, func(o *Options) {
		o.GenerationTimeout = 10 * time.Millisecond
	})

	res := f.controller.Run(context.Background(), "r1", "compute")
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "generation failed") {
		t.Fatalf("err = %v", res.Err)
	}
	if len(f.store.Errors()) != 1 {
		t.Fatalf("run errors = %d", len(f.store.Errors()))
	}
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	b := bus.New()
	var types []bus.EventType
	b.Subscribe("test", func(e bus.Event) { types = append(types, e.Type) })

	f := newFixture(t, scripted("FINAL_ANSWER: [9]"), func(o *Options) {
		o.Bus = b
	})

	f.controller.Run(context.Background(), "r1", "answer nine")
	want := []bus.EventType{bus.EventRunStarted, bus.EventDecision, bus.EventToolCalled, bus.EventRunFinished}
	if len(types) != len(want) {
		t.Fatalf("events = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestNew_RejectsMissingCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_RejectsInvalidCatalog(t *testing.T) {
	cat := catalog.New(&catalog.ToolSchema{
		Name: "bad",
		Params: []catalog.Param{
			{Name: "values", Kind: catalog.KindIntegerArray},
			{Name: "after", Kind: catalog.KindInteger},
		},
	})
	store := history.NewMemoryStore()
	_, err := New(Options{
		Catalog:    cat,
		Provider:   scripted(),
		Dispatcher: dispatch.New(&fakeTransport{}, store, dispatch.DefaultVisualizationPolicy()),
		Store:      store,
	})
	if err == nil {
		t.Fatal("expected catalog validation error")
	}
}
