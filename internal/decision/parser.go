package decision

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/davenport-labs/spindle/internal/catalog"
)

const (
	functionCallPrefix = "FUNCTION_CALL:"
	finalAnswerPrefix  = "FINAL_ANSWER:"
)

var (
	scientificRe = regexp.MustCompile(`[\d.]+[eE][+\-]?\d+`)
	decimalRe    = regexp.MustCompile(`\d+\.\d+`)
	integerRe    = regexp.MustCompile(`\d+`)
)

// Parse converts one model response into a Decision. It scans line by
// line and commits to the first line carrying a directive prefix; if no
// line matches, the fallback extractors try to salvage a numeric final
// answer before giving up with ErrMalformed.
func Parse(responseText string, cat *catalog.Catalog) (Decision, error) {
	line, ok := directiveLine(responseText)
	if !ok {
		return salvageAnswer(responseText)
	}

	if rest, found := strings.CutPrefix(line, functionCallPrefix); found {
		return parseInvocation(rest, cat)
	}
	rest, _ := strings.CutPrefix(line, finalAnswerPrefix)
	return Decision{Kind: KindFinalAnswer, Answer: strings.TrimSpace(rest)}, nil
}

// directiveLine returns the first line starting with a recognized prefix.
// Prefix matching is case-sensitive after leading-whitespace trim.
func directiveLine(text string) (string, bool) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, functionCallPrefix) || strings.HasPrefix(line, finalAnswerPrefix) {
			return line, true
		}
	}
	return "", false
}

// salvageAnswer is the best-effort fallback for responses that ignored
// the directive format. Tried in order: scientific notation anywhere,
// a decimal in the trailing 100 bytes, then at most 3 integers in the
// trailing 50 bytes. The last match wins in each case; more than 3
// integers means the text is prose, not an answer.
func salvageAnswer(text string) (Decision, error) {
	if m := scientificRe.FindAllString(text, -1); len(m) > 0 {
		return bracketedAnswer(m[len(m)-1]), nil
	}
	if m := decimalRe.FindAllString(tail(text, 100), -1); len(m) > 0 {
		return bracketedAnswer(m[len(m)-1]), nil
	}
	if m := integerRe.FindAllString(tail(text, 50), -1); len(m) > 0 && len(m) <= 3 {
		return bracketedAnswer(m[len(m)-1]), nil
	}
	return Decision{}, ErrMalformed
}

func bracketedAnswer(number string) Decision {
	return Decision{Kind: KindFinalAnswer, Answer: "[" + number + "]"}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// parseInvocation resolves a FUNCTION_CALL body ("name|p1|p2|...")
// against the catalog, walking the schema's declared parameter order and
// coercing one positional token per parameter.
func parseInvocation(body string, cat *catalog.Catalog) (Decision, error) {
	parts := strings.Split(body, "|")
	name := strings.TrimSpace(parts[0])
	tokens := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		tokens = append(tokens, strings.TrimSpace(p))
	}

	schema, err := cat.Resolve(name)
	if err != nil {
		return Decision{}, err
	}

	args := make(map[string]any, len(schema.Params))
	supplied := len(tokens)
	for _, param := range schema.Params {
		if len(tokens) == 0 {
			return Decision{}, &ArityError{Tool: name, Param: param.Name, Got: supplied, Want: len(schema.Params)}
		}
		token := tokens[0]
		tokens = tokens[1:]

		switch param.Kind {
		case catalog.KindInteger:
			v, err := strconv.Atoi(token)
			if err != nil {
				return Decision{}, &CoercionError{Tool: name, Param: param.Name, Value: token, Kind: param.Kind.String(), Err: err}
			}
			args[param.Name] = v

		case catalog.KindNumber:
			v, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return Decision{}, &CoercionError{Tool: name, Param: param.Name, Value: token, Kind: param.Kind.String(), Err: err}
			}
			args[param.Name] = v

		case catalog.KindString:
			args[param.Name] = token

		case catalog.KindIntegerArray:
			values, rest, err := coerceIntegerArray(name, param.Name, token, tokens)
			if err != nil {
				return Decision{}, err
			}
			args[param.Name] = values
			tokens = rest

		default:
			return Decision{}, &CoercionError{
				Tool: name, Param: param.Name, Value: token,
				Kind: param.Kind.String(), Err: fmt.Errorf("unsupported parameter kind"),
			}
		}
	}

	// Surplus tokens are ignored only when the final parameter is an
	// array: a bracketed list already names its elements, so whatever
	// trails it is noise. After any other tail the extras cannot be
	// attributed to a parameter.
	if len(tokens) > 0 && !schema.LastParamIsArray() {
		return Decision{}, &ArityError{Tool: name, Got: supplied, Want: len(schema.Params)}
	}

	return Decision{Kind: KindToolInvocation, Tool: name, Arguments: args}, nil
}

// coerceIntegerArray accepts the two surface forms the generator
// produces for one array argument:
//
//	bracketed: [73, 78, 68] or ['73', '78', '68'] in a single token
//	bare:      73|78|68 split across tokens; the first token plus every
//	           remaining token are absorbed greedily
//
// Returns the parsed values and the tokens left unconsumed.
func coerceIntegerArray(tool, param, token string, rest []string) ([]int, []string, error) {
	if strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		inner := strings.Trim(token, "[]'\" ")
		var values []int
		if inner != "" {
			for _, elem := range strings.Split(inner, ",") {
				elem = strings.Trim(strings.TrimSpace(elem), "'\"")
				v, err := strconv.Atoi(elem)
				if err != nil {
					return nil, nil, &CoercionError{Tool: tool, Param: param, Value: elem, Kind: "array-of-integer", Err: err}
				}
				values = append(values, v)
			}
		}
		return values, rest, nil
	}

	values := make([]int, 0, 1+len(rest))
	v, err := strconv.Atoi(token)
	if err != nil {
		return nil, nil, &CoercionError{Tool: tool, Param: param, Value: token, Kind: "array-of-integer", Err: err}
	}
	values = append(values, v)
	for _, t := range rest {
		v, err := strconv.Atoi(t)
		if err != nil {
			return nil, nil, &CoercionError{Tool: tool, Param: param, Value: t, Kind: "array-of-integer", Err: err}
		}
		values = append(values, v)
	}
	return values, nil, nil
}
