// Package retrieval is the keyword-scored context helper: given a query
// it returns the knowledge-base snippets most likely to help the model
// pick the right tool sequence.
package retrieval

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Document is one knowledge-base entry.
type Document struct {
	Title    string
	Content  string
	Category string
	Keywords []string
}

// Result pairs a document with its relevance score.
type Result struct {
	Document Document
	Score    int
}

const defaultCacheSize = 128

var functionNameRe = regexp.MustCompile(`\b[a-z]+(?:_[a-z0-9]+)+\b`)

// Index scores documents against queries. Scoring runs are cached per
// query because the loop re-retrieves with the same query every cycle.
type Index struct {
	docs  []Document
	cache *lru.Cache[string, []Result]
}

// NewIndex builds an index over the given documents.
func NewIndex(docs []Document) (*Index, error) {
	cache, err := lru.New[string, []Result](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("retrieval cache: %w", err)
	}
	return &Index{docs: docs, cache: cache}, nil
}

// Retrieve returns up to topK documents with a positive relevance
// score, best first.
func (ix *Index) Retrieve(query string, topK int) []Result {
	if topK <= 0 {
		topK = 3
	}
	scored := ix.scoreAll(query)

	out := make([]Result, 0, topK)
	for _, r := range scored {
		if r.Score <= 0 {
			break
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	slog.Debug("retrieval complete", "query_len", len(query), "results", len(out))
	return out
}

func (ix *Index) scoreAll(query string) []Result {
	if cached, ok := ix.cache.Get(query); ok {
		return cached
	}

	q := strings.ToLower(query)
	words := strings.Fields(q)

	scored := make([]Result, 0, len(ix.docs))
	for _, doc := range ix.docs {
		score := 0
		title := strings.ToLower(doc.Title)
		content := strings.ToLower(doc.Content)
		category := strings.ToLower(doc.Category)

		for _, kw := range doc.Keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				score += 2
			}
		}
		for _, w := range words {
			if strings.Contains(title, w) {
				score += 3
				break
			}
		}
		for _, w := range words {
			if len(w) > 3 && strings.Contains(content, w) {
				score++
				break
			}
		}
		for _, w := range words {
			if strings.Contains(category, w) {
				score += 2
				break
			}
		}
		scored = append(scored, Result{Document: doc, Score: score})
	}

	// Stable by construction: sort on score only, ties keep corpus order.
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	ix.cache.Add(query, scored)
	return scored
}

// ContextSummary formats retrieved documents as a prompt block, or ""
// when nothing relevant was found.
func (ix *Index) ContextSummary(query string, topK int) string {
	results := ix.Retrieve(query, topK)
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("**%s**: %s", r.Document.Title, r.Document.Content))
	}
	return strings.Join(parts, "\n\n")
}

// FunctionRecommendations extracts tool-style snake_case names mentioned
// in the retrieved documents.
func (ix *Index) FunctionRecommendations(query string) []string {
	results := ix.Retrieve(query, 3)
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		for _, name := range functionNameRe.FindAllString(r.Document.Content, -1) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
