package tools

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davenport-labs/spindle/internal/catalog"
)

// mockTool is a minimal tool for testing the registry.
type mockTool struct {
	name   string
	params []catalog.Param
	execFn func(ctx context.Context, args map[string]any) (any, error)
}

func (m *mockTool) Name() string             { return m.name }
func (m *mockTool) Description() string      { return "mock tool" }
func (m *mockTool) Params() []catalog.Param  { return m.params }
func (m *mockTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if m.execFn != nil {
		return m.execFn(ctx, args)
	}
	return "ok", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "test_tool"})

	got, ok := reg.Get("test_tool")
	if !ok {
		t.Fatal("tool not found")
	}
	if got.Name() != "test_tool" {
		t.Errorf("expected test_tool, got %s", got.Name())
	}
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), "missing", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_CallWrapsToolError(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry()
	reg.Register(&mockTool{
		name:   "fragile",
		execFn: func(context.Context, map[string]any) (any, error) { return nil, boom },
	})

	_, err := reg.Call(context.Background(), "fragile", nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped tool error, got %v", err)
	}
}

func TestRegistry_CatalogPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "b_tool"})
	reg.Register(&mockTool{name: "a_tool", params: []catalog.Param{{Name: "x", Kind: catalog.KindInteger}}})

	cat := reg.Catalog()
	schemas := cat.Schemas()
	if len(schemas) != 2 || schemas[0].Name != "b_tool" || schemas[1].Name != "a_tool" {
		t.Fatalf("unexpected catalog order: %+v", schemas)
	}
	if len(schemas[1].Params) != 1 {
		t.Errorf("params not carried into schema: %+v", schemas[1])
	}
}

func TestRegistry_RateLimiter(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockTool{name: "limited"})
	reg.SetRateLimiter(NewRateLimiter(0.001, 1))

	if _, err := reg.Call(context.Background(), "limited", nil); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if _, err := reg.Call(context.Background(), "limited", nil); err == nil {
		t.Error("second call should hit the rate limit")
	}
}

func TestBuiltin_Add(t *testing.T) {
	reg := NewRegistry()
	for _, tool := range Builtins(nil) {
		reg.Register(tool)
	}

	got, err := reg.Call(context.Background(), "add", map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != 5 {
		t.Errorf("add: got %v, want 5", got)
	}
}

func TestBuiltin_StringsToChars(t *testing.T) {
	tool := stringsToCharsTool()
	got, err := tool.Execute(context.Background(), map[string]any{"text": "INDIA"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []any{73, 78, 68, 73, 65}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuiltin_ExpSum(t *testing.T) {
	tool := expSumTool()
	got, err := tool.Execute(context.Background(), map[string]any{"values": []int{0, 0}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "2" {
		t.Errorf("got %v, want 2", got)
	}
}

func TestBuiltin_Fibonacci(t *testing.T) {
	tool := fibonacciTool()
	got, err := tool.Execute(context.Background(), map[string]any{"n": 6})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []any{0, 1, 1, 2, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := tool.Execute(context.Background(), map[string]any{"n": 200}); err == nil {
		t.Error("expected range error for n=200")
	}
}

func TestBuiltin_DrawRectangle(t *testing.T) {
	var buf strings.Builder
	tool := drawRectangleTool(&buf)
	got, err := tool.Execute(context.Background(), map[string]any{"width": 300, "height": 150, "text": "TSAI"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got.(string), "300x150") || !strings.Contains(got.(string), "TSAI") {
		t.Errorf("unexpected confirmation: %v", got)
	}
	if !strings.Contains(buf.String(), "TSAI") {
		t.Error("rendered box missing label")
	}

	if _, err := tool.Execute(context.Background(), map[string]any{"width": 0, "height": 150, "text": "x"}); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestBuiltin_FetchHeadlines(t *testing.T) {
	tool := fetchHeadlinesTool()
	got, err := tool.Execute(context.Background(), map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	items := got.([]any)
	if len(items) != 3 {
		t.Fatalf("got %d headlines, want 3", len(items))
	}
	if !strings.HasPrefix(items[0].(string), "1. ") {
		t.Errorf("headlines should be numbered: %v", items[0])
	}
}
