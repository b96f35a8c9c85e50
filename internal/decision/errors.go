package decision

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned when no directive line is present and none of
// the fallback extractors could salvage an answer.
var ErrMalformed = errors.New("malformed decision: no recognizable directive or answer")

// ArityError reports a FUNCTION_CALL line whose positional token count
// does not fit the schema: tokens ran out before the parameters did, or
// tokens were left over after a non-array final parameter.
type ArityError struct {
	Tool  string
	Param string // first unfilled parameter, empty for surplus tokens
	Got   int    // positional tokens supplied
	Want  int    // parameters declared
}

func (e *ArityError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("tool %s: not enough parameters (got %d, want %d, missing %q)",
			e.Tool, e.Got, e.Want, e.Param)
	}
	return fmt.Sprintf("tool %s: too many parameters (got %d, want %d)", e.Tool, e.Got, e.Want)
}

// CoercionError reports a positional token that failed conversion to its
// declared parameter kind.
type CoercionError struct {
	Tool  string
	Param string
	Value string
	Kind  string
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("tool %s: parameter %s: cannot coerce %q to %s: %v",
		e.Tool, e.Param, e.Value, e.Kind, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }
