// Package catalog holds the schemas of the tools an agent run may invoke
// and resolves decision-text tool names against them.
package catalog

import (
	"fmt"
	"sort"
)

// ParamKind is the declared type of a tool parameter.
type ParamKind int

const (
	KindInteger ParamKind = iota
	KindNumber
	KindString
	KindIntegerArray
)

func (k ParamKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindIntegerArray:
		return "array-of-integer"
	default:
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
}

// Param is one declared parameter of a tool schema. Order matters: the
// decision parser consumes positional tokens in declaration order.
type Param struct {
	Name string
	Kind ParamKind
}

// ToolSchema describes one callable tool. Immutable after registration.
type ToolSchema struct {
	Name        string
	Description string
	Params      []Param
}

// UnknownToolError is returned when a decision names a tool that is not
// in the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// Catalog is the set of tool schemas available for one run.
// Supplied once at run start; read-only afterwards.
type Catalog struct {
	schemas []*ToolSchema
	byName  map[string]*ToolSchema
}

// New builds a catalog from the given schemas. Duplicate names keep the
// first registration.
func New(schemas ...*ToolSchema) *Catalog {
	c := &Catalog{
		schemas: make([]*ToolSchema, 0, len(schemas)),
		byName:  make(map[string]*ToolSchema, len(schemas)),
	}
	for _, s := range schemas {
		if _, ok := c.byName[s.Name]; ok {
			continue
		}
		c.schemas = append(c.schemas, s)
		c.byName[s.Name] = s
	}
	return c
}

// Resolve looks up a schema by tool name.
func (c *Catalog) Resolve(name string) (*ToolSchema, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return s, nil
}

// Schemas returns all schemas in registration order.
func (c *Catalog) Schemas() []*ToolSchema {
	return c.schemas
}

// Names returns all tool names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered schemas.
func (c *Catalog) Len() int {
	return len(c.schemas)
}

// Validate rejects schemas the positional grammar cannot parse
// unambiguously: an array parameter greedily absorbs all remaining
// tokens, so it must be the last declared parameter.
func (c *Catalog) Validate() error {
	for _, s := range c.schemas {
		for i, p := range s.Params {
			if p.Kind == KindIntegerArray && i != len(s.Params)-1 {
				return fmt.Errorf("tool %s: array parameter %q must be last (position %d of %d)",
					s.Name, p.Name, i+1, len(s.Params))
			}
		}
	}
	return nil
}

// LastParamIsArray reports whether the schema's final parameter absorbs
// remaining positional tokens.
func (s *ToolSchema) LastParamIsArray() bool {
	if len(s.Params) == 0 {
		return false
	}
	return s.Params[len(s.Params)-1].Kind == KindIntegerArray
}
