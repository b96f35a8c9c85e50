// Package prompt assembles the system and user messages for each loop
// cycle and keeps the accumulated conversation inside a token budget.
package prompt

import (
	"fmt"
	"strings"

	"github.com/davenport-labs/spindle/internal/catalog"
)

// Builder renders prompts for a fixed tool catalog.
type Builder struct {
	count  CountFunc
	budget int
}

// NewBuilder returns a Builder. budget <= 0 disables trimming.
func NewBuilder(count CountFunc, budget int) *Builder {
	if count == nil {
		count = estimateTokens
	}
	return &Builder{count: count, budget: budget}
}

// System renders the instruction prompt: the numbered tool list, the
// single-line response protocol and optional retrieved context.
func (b *Builder) System(cat *catalog.Catalog, knowledge string) string {
	var sb strings.Builder
	sb.WriteString("You are an agent that solves problems step by step using tools.\n\n")
	sb.WriteString("Available tools:\n")
	for i, s := range cat.Schemas() {
		sb.WriteString(fmt.Sprintf("%d. %s(%s) - %s\n", i+1, s.Name, paramList(s), s.Description))
	}
	sb.WriteString("\nRespond with EXACTLY ONE line in one of these formats (no other text):\n")
	sb.WriteString("1. FUNCTION_CALL: tool_name|param1|param2|...\n")
	sb.WriteString("2. FINAL_ANSWER: [answer]\n\n")
	sb.WriteString("Pass parameters positionally, separated by | characters. ")
	sb.WriteString("Give FINAL_ANSWER only when the task is fully solved.\n")
	if knowledge != "" {
		sb.WriteString("\nRelevant knowledge:\n")
		sb.WriteString(knowledge)
		sb.WriteString("\n")
	}
	return sb.String()
}

// IterationSummary describes one completed cycle for the next prompt.
func IterationSummary(iteration int, tool string, args map[string]any, result string) string {
	return fmt.Sprintf("In iteration %d you called %s with %v parameters, and the function returned %s.",
		iteration, tool, args, result)
}

// UserTurn appends the iteration summaries to the original query. With
// a positive budget the oldest summaries are dropped first until the
// turn fits; the query itself is never dropped.
func (b *Builder) UserTurn(query string, summaries []string) string {
	kept := summaries
	if b.budget > 0 {
		for len(kept) > 0 && b.count(render(query, kept)) > b.budget {
			kept = kept[1:]
		}
	}
	return render(query, kept)
}

func render(query string, summaries []string) string {
	if len(summaries) == 0 {
		return query
	}
	return query + "\n\n" + strings.Join(summaries, " ") + "  What should I do next?"
}

func paramList(s *catalog.ToolSchema) string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Name + ": " + p.Kind.String()
	}
	return strings.Join(parts, ", ")
}
