// Package history is the append-only execution log of an agent run.
// Exactly one record is appended per completed cycle; past entries are
// never rewritten. Derived views (function usage counts) are computed
// from the log on demand instead of being kept as parallel counters.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// DecisionRecord is the decision half of an iteration record.
type DecisionRecord struct {
	Kind      string         `json:"kind"`
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Answer    string         `json:"answer,omitempty"`
}

// OutcomeRecord is the normalized result half of an iteration record.
type OutcomeRecord struct {
	Succeeded bool     `json:"succeeded"`
	Payload   []string `json:"payload"`
	ToolName  string   `json:"tool_name,omitempty"`
}

// Record is one observe-decide-act-record cycle.
type Record struct {
	Index     int            `json:"index"`
	Decision  DecisionRecord `json:"decision"`
	Outcome   OutcomeRecord  `json:"outcome"`
	Timestamp time.Time      `json:"timestamp"`
}

// RunError is a fatal parse/schema/generation error recorded before the
// run stops. It is kept apart from iteration records: a cycle that never
// dispatched has no outcome.
type RunError struct {
	Iteration int       `json:"iteration"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the serializable export of one run.
type Snapshot struct {
	RunID     string     `json:"run_id"`
	Query     string     `json:"query"`
	Status    string     `json:"status,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at,omitzero"`
	Records   []Record   `json:"records"`
	Errors    []RunError `json:"errors,omitempty"`
}

// Store is the passive recorder the dispatcher and controller write to.
type Store interface {
	Append(rec Record) error
	AppendError(e RunError) error
	Records() []Record
	Errors() []RunError
}

// MemoryStore is the in-process Store used for a live run.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	errors  []RunError
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.records); n > 0 && rec.Index <= s.records[n-1].Index {
		return fmt.Errorf("history: non-increasing iteration index %d after %d", rec.Index, s.records[n-1].Index)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) AppendError(e RunError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, e)
	return nil
}

func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStore) Errors() []RunError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunError, len(s.errors))
	copy(out, s.errors)
	return out
}

// FunctionUsage counts tool invocations per tool name across records.
func FunctionUsage(records []Record) map[string]int {
	usage := make(map[string]int)
	for _, rec := range records {
		if rec.Decision.Kind == "function_call" && rec.Decision.Tool != "" {
			usage[rec.Decision.Tool]++
		}
	}
	return usage
}

// LastPayload returns the flattened payload text of the most recent
// record, or "" when the log is empty.
func LastPayload(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	last := records[len(records)-1]
	switch len(last.Outcome.Payload) {
	case 0:
		return ""
	case 1:
		return last.Outcome.Payload[0]
	default:
		out := ""
		for i, p := range last.Outcome.Payload {
			if i > 0 {
				out += " "
			}
			out += p
		}
		return out
	}
}

// ExportJSON writes a snapshot as indented JSON.
func ExportJSON(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("export history: %w", err)
	}
	return nil
}

// ImportJSON reads a snapshot previously written by ExportJSON.
func ImportJSON(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("import history: %w", err)
	}
	return snap, nil
}
