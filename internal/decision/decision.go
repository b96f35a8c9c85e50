// Package decision turns one model response into a typed decision:
// either a tool invocation or a final answer.
//
// The wire contract with the generative step is line-oriented. Exactly two
// directive prefixes are recognized, byte-for-byte:
//
//	FUNCTION_CALL: name|param1|param2|...
//	FINAL_ANSWER: free text
//
// The generator is instructed to emit a single directive line but often
// prepends commentary; the parser commits to the first matching line and
// discards everything else.
package decision

import "fmt"

// Kind tags the decision variant.
type Kind int

const (
	KindToolInvocation Kind = iota
	KindFinalAnswer
)

func (k Kind) String() string {
	switch k {
	case KindToolInvocation:
		return "function_call"
	case KindFinalAnswer:
		return "final_answer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Decision is the parsed result of one model response. Produced fresh
// each iteration, never mutated, consumed exactly once by the dispatcher.
type Decision struct {
	Kind Kind

	// Tool invocation fields (KindToolInvocation).
	Tool      string
	Arguments map[string]any

	// Final answer text, kept verbatim after trimming (KindFinalAnswer).
	Answer string
}

// Summary returns a short human-readable form for logs and history.
func (d Decision) Summary() string {
	if d.Kind == KindFinalAnswer {
		return "final_answer: " + d.Answer
	}
	return fmt.Sprintf("function_call: %s (%d args)", d.Tool, len(d.Arguments))
}
