package decision

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davenport-labs/spindle/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		&catalog.ToolSchema{
			Name: "add",
			Params: []catalog.Param{
				{Name: "a", Kind: catalog.KindInteger},
				{Name: "b", Kind: catalog.KindInteger},
			},
		},
		&catalog.ToolSchema{
			Name: "power",
			Params: []catalog.Param{
				{Name: "base", Kind: catalog.KindNumber},
				{Name: "exponent", Kind: catalog.KindNumber},
			},
		},
		&catalog.ToolSchema{
			Name: "strings_to_chars_to_int",
			Params: []catalog.Param{
				{Name: "text", Kind: catalog.KindString},
			},
		},
		&catalog.ToolSchema{
			Name: "int_list_to_exponential_sum",
			Params: []catalog.Param{
				{Name: "values", Kind: catalog.KindIntegerArray},
			},
		},
	)
}

func TestParse_FunctionCall(t *testing.T) {
	d, err := Parse("FUNCTION_CALL: add|2|3", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Kind != KindToolInvocation || d.Tool != "add" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	want := map[string]any{"a": 2, "b": 3}
	if !reflect.DeepEqual(d.Arguments, want) {
		t.Errorf("arguments: got %v, want %v", d.Arguments, want)
	}
}

func TestParse_ArgumentKeysMatchSchema(t *testing.T) {
	d, err := Parse("FUNCTION_CALL: power|2.5|10", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(d.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(d.Arguments))
	}
	for _, key := range []string{"base", "exponent"} {
		if _, ok := d.Arguments[key]; !ok {
			t.Errorf("missing argument key %q", key)
		}
	}
	if d.Arguments["base"] != 2.5 {
		t.Errorf("base: got %v, want 2.5", d.Arguments["base"])
	}
}

func TestParse_CommentaryBeforeDirective(t *testing.T) {
	plain, err := Parse("FUNCTION_CALL: add|2|3", testCatalog())
	if err != nil {
		t.Fatalf("parse plain: %v", err)
	}
	noisy, err := Parse("I will now compute the sum.\nFUNCTION_CALL: add|2|3", testCatalog())
	if err != nil {
		t.Fatalf("parse noisy: %v", err)
	}
	if !reflect.DeepEqual(plain, noisy) {
		t.Errorf("commentary changed the parse: %+v vs %+v", plain, noisy)
	}
}

func TestParse_FirstDirectiveWins(t *testing.T) {
	text := "FINAL_ANSWER: [1]\nFUNCTION_CALL: add|2|3"
	d, err := Parse(text, testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Kind != KindFinalAnswer || d.Answer != "[1]" {
		t.Errorf("expected first directive line to win, got %+v", d)
	}
}

func TestParse_FinalAnswerVerbatim(t *testing.T) {
	d, err := Parse("FINAL_ANSWER:   [42]  ", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Kind != KindFinalAnswer || d.Answer != "[42]" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestParse_ArrayFormsAreEquivalent(t *testing.T) {
	bare, err := Parse("FUNCTION_CALL: int_list_to_exponential_sum|1|2|3", testCatalog())
	if err != nil {
		t.Fatalf("parse bare: %v", err)
	}
	bracketed, err := Parse("FUNCTION_CALL: int_list_to_exponential_sum|[1, 2, 3]", testCatalog())
	if err != nil {
		t.Fatalf("parse bracketed: %v", err)
	}
	quoted, err := Parse("FUNCTION_CALL: int_list_to_exponential_sum|['1', '2', '3']", testCatalog())
	if err != nil {
		t.Fatalf("parse quoted: %v", err)
	}

	want := []int{1, 2, 3}
	for name, d := range map[string]Decision{"bare": bare, "bracketed": bracketed, "quoted": quoted} {
		got, ok := d.Arguments["values"].([]int)
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("%s form: got %v, want %v", name, d.Arguments["values"], want)
		}
	}
}

func TestParse_BracketedArrayIgnoresTrailingTokens(t *testing.T) {
	d, err := Parse("FUNCTION_CALL: int_list_to_exponential_sum|[1, 2, 3]|leftover", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.Arguments["values"].([]int); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
	if len(d.Arguments) != 1 {
		t.Errorf("trailing token leaked into arguments: %v", d.Arguments)
	}
}

func TestParse_SingleElementBareArray(t *testing.T) {
	d, err := Parse("FUNCTION_CALL: int_list_to_exponential_sum|7", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.Arguments["values"].([]int); !reflect.DeepEqual(got, []int{7}) {
		t.Errorf("got %v, want [7]", got)
	}
}

func TestParse_UnknownTool(t *testing.T) {
	_, err := Parse("FUNCTION_CALL: add_xyz|1|2", testCatalog())
	var unknown *catalog.UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
}

func TestParse_ArityTooFew(t *testing.T) {
	_, err := Parse("FUNCTION_CALL: add|1", testCatalog())
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError, got %v", err)
	}
	if arity.Param != "b" {
		t.Errorf("missing param: got %q, want b", arity.Param)
	}
}

func TestParse_ArityTooMany(t *testing.T) {
	_, err := Parse("FUNCTION_CALL: add|1|2|3", testCatalog())
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError for surplus tokens, got %v", err)
	}
}

func TestParse_CoercionError(t *testing.T) {
	_, err := Parse("FUNCTION_CALL: add|two|3", testCatalog())
	var coercion *CoercionError
	if !errors.As(err, &coercion) {
		t.Fatalf("expected CoercionError, got %v", err)
	}
	if coercion.Param != "a" || coercion.Value != "two" {
		t.Errorf("unexpected coercion error: %+v", coercion)
	}
}

func TestParse_FallbackScientificNotation(t *testing.T) {
	d, err := Parse("The sum of exponentials works out to roughly 7.599e+33 in the end.", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Kind != KindFinalAnswer || d.Answer != "[7.599e+33]" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestParse_FallbackDecimal(t *testing.T) {
	d, err := Parse("After careful calculation, the result is 3.14159 at the end", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Answer != "[3.14159]" {
		t.Errorf("got %q, want [3.14159]", d.Answer)
	}
}

func TestParse_FallbackDecimalOnlyInTail(t *testing.T) {
	// A decimal buried before the trailing 100 bytes must not be salvaged.
	text := "the interim value 2.71828 appeared early on " + strings.Repeat("and the work continued ", 6) + "with no conclusion"
	if _, err := Parse(text, testCatalog()); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestParse_FallbackIntegers(t *testing.T) {
	d, err := Parse("the answer should be 42", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Answer != "[42]" {
		t.Errorf("got %q, want [42]", d.Answer)
	}
}

func TestParse_FallbackTooManyIntegers(t *testing.T) {
	// Four integers in the trailing window look like prose, not an answer.
	_, err := Parse("values were 1 then 2 then 3 then 4", testCatalog())
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("I am not sure what to do next.", testCatalog())
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestParse_DirectiveBeatsFallback(t *testing.T) {
	// An explicit directive must always win over salvageable numbers.
	d, err := Parse("interim results 1.5 and 2.5\nFINAL_ANSWER: [99]", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Answer != "[99]" {
		t.Errorf("got %q, want [99]", d.Answer)
	}
}

func TestParse_StringParameterVerbatim(t *testing.T) {
	d, err := Parse("FUNCTION_CALL: strings_to_chars_to_int|INDIA", testCatalog())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Arguments["text"] != "INDIA" {
		t.Errorf("got %v, want INDIA", d.Arguments["text"])
	}
}
