// Package tools hosts the in-process tool transport: a registry of
// callable tools and the builtin toolset the agent loop drives.
package tools

import (
	"context"
	"fmt"

	"github.com/davenport-labs/spindle/internal/catalog"
)

// Tool is the interface all tools implement.
type Tool interface {
	Name() string
	Description() string
	Params() []catalog.Param
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// funcTool wraps a plain function as a Tool. The builtin toolset is
// built entirely from these.
type funcTool struct {
	name        string
	description string
	params      []catalog.Param
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

func (t *funcTool) Name() string            { return t.name }
func (t *funcTool) Description() string     { return t.description }
func (t *funcTool) Params() []catalog.Param { return t.params }
func (t *funcTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

// --- argument accessors ---
// The decision parser coerces values before dispatch, so these mostly
// guard against hand-built argument maps.

func intArg(args map[string]any, name string) (int, error) {
	switch v := args[name].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("argument %s: expected integer, got %T", name, args[name])
	}
}

func floatArg(args map[string]any, name string) (float64, error) {
	switch v := args[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("argument %s: expected number, got %T", name, args[name])
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok {
		return "", fmt.Errorf("argument %s: expected string, got %T", name, args[name])
	}
	return v, nil
}

func intSliceArg(args map[string]any, name string) ([]int, error) {
	switch v := args[name].(type) {
	case []int:
		return v, nil
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, fmt.Errorf("argument %s: element %T is not an integer", name, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %s: expected integer array, got %T", name, args[name])
	}
}
