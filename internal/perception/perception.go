// Package perception classifies the user query and gathers the
// per-iteration observation snapshot the prompt builder consumes.
package perception

import "strings"

// QueryType is a coarse classification used as a context signal.
type QueryType string

const (
	QueryNews           QueryType = "news_fetching"
	QueryMathematical   QueryType = "mathematical"
	QueryVisual         QueryType = "visual"
	QueryComputation    QueryType = "computation"
	QueryDataProcessing QueryType = "data_processing"
	QueryGeneral        QueryType = "general"
)

var conceptKeywords = []string{
	"ascii", "exponential", "sum", "india", "values", "characters",
	"headlines", "news", "browser", "paint", "draw", "fibonacci",
}

var visualizationKeywords = []string{
	"draw", "show", "display", "graph", "window", "paint", "turtle", "browser",
}

// Snapshot is the processed form of the user query, computed once at
// run start.
type Snapshot struct {
	RawQuery              string
	QueryType             QueryType
	KeyConcepts           []string
	RequiresVisualization bool
}

// Analyze processes the raw query into a snapshot.
func Analyze(query string) Snapshot {
	return Snapshot{
		RawQuery:              query,
		QueryType:             Classify(query),
		KeyConcepts:           ExtractConcepts(query),
		RequiresVisualization: RequiresVisualization(query),
	}
}

// Classify assigns the query to one coarse type. Order matters: the
// first bucket whose keywords appear wins.
func Classify(query string) QueryType {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "headlines", "news"):
		return QueryNews
	case containsAny(q, "sum", "add"):
		return QueryMathematical
	case containsAny(q, "draw", "show", "display"):
		return QueryVisual
	case containsAny(q, "find", "calculate"):
		return QueryComputation
	case containsAny(q, "ascii", "exponential"):
		return QueryDataProcessing
	default:
		return QueryGeneral
	}
}

// ExtractConcepts returns the known concept keywords present in the query.
func ExtractConcepts(query string) []string {
	q := strings.ToLower(query)
	var concepts []string
	for _, kw := range conceptKeywords {
		if strings.Contains(q, kw) {
			concepts = append(concepts, kw)
		}
	}
	return concepts
}

// RequiresVisualization reports whether the query asks for visual output.
func RequiresVisualization(query string) bool {
	q := strings.ToLower(query)
	return containsAny(q, visualizationKeywords...)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Observation is the per-iteration environment snapshot: what the loop
// sees before deciding. Gathering it mutates nothing.
type Observation struct {
	Query       string
	Iteration   int
	ToolNames   []string
	LastPayload string
}
