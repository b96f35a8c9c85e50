package tools

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/davenport-labs/spindle/internal/catalog"
)

// Builtins returns the default toolset: the arithmetic and text tools
// the loop exercises, plus the rectangle renderer used by the
// visualization policy. Rendering writes a plain text box to w; real
// graphical output is out of scope here.
func Builtins(w io.Writer) []Tool {
	return []Tool{
		addTool(),
		subtractTool(),
		multiplyTool(),
		powerTool(),
		stringsToCharsTool(),
		expSumTool(),
		fibonacciTool(),
		drawRectangleTool(w),
		fetchHeadlinesTool(),
	}
}

func addTool() Tool {
	return &funcTool{
		name:        "add",
		description: "Add two integers",
		params: []catalog.Param{
			{Name: "a", Kind: catalog.KindInteger},
			{Name: "b", Kind: catalog.KindInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			a, err := intArg(args, "a")
			if err != nil {
				return nil, err
			}
			b, err := intArg(args, "b")
			if err != nil {
				return nil, err
			}
			return a + b, nil
		},
	}
}

func subtractTool() Tool {
	return &funcTool{
		name:        "subtract",
		description: "Subtract the second integer from the first",
		params: []catalog.Param{
			{Name: "a", Kind: catalog.KindInteger},
			{Name: "b", Kind: catalog.KindInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			a, err := intArg(args, "a")
			if err != nil {
				return nil, err
			}
			b, err := intArg(args, "b")
			if err != nil {
				return nil, err
			}
			return a - b, nil
		},
	}
}

func multiplyTool() Tool {
	return &funcTool{
		name:        "multiply",
		description: "Multiply two integers",
		params: []catalog.Param{
			{Name: "a", Kind: catalog.KindInteger},
			{Name: "b", Kind: catalog.KindInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			a, err := intArg(args, "a")
			if err != nil {
				return nil, err
			}
			b, err := intArg(args, "b")
			if err != nil {
				return nil, err
			}
			return a * b, nil
		},
	}
}

func powerTool() Tool {
	return &funcTool{
		name:        "power",
		description: "Raise base to the given exponent",
		params: []catalog.Param{
			{Name: "base", Kind: catalog.KindNumber},
			{Name: "exponent", Kind: catalog.KindNumber},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			base, err := floatArg(args, "base")
			if err != nil {
				return nil, err
			}
			exp, err := floatArg(args, "exponent")
			if err != nil {
				return nil, err
			}
			return math.Pow(base, exp), nil
		},
	}
}

func stringsToCharsTool() Tool {
	return &funcTool{
		name:        "strings_to_chars_to_int",
		description: "Return the ASCII values of the characters in a word",
		params: []catalog.Param{
			{Name: "text", Kind: catalog.KindString},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			text, err := stringArg(args, "text")
			if err != nil {
				return nil, err
			}
			values := make([]any, 0, len(text))
			for _, r := range text {
				values = append(values, int(r))
			}
			return values, nil
		},
	}
}

func expSumTool() Tool {
	return &funcTool{
		name:        "int_list_to_exponential_sum",
		description: "Sum e^v over a list of integers",
		params: []catalog.Param{
			{Name: "values", Kind: catalog.KindIntegerArray},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			values, err := intSliceArg(args, "values")
			if err != nil {
				return nil, err
			}
			sum := 0.0
			for _, v := range values {
				sum += math.Exp(float64(v))
			}
			return fmt.Sprintf("%g", sum), nil
		},
	}
}

func fibonacciTool() Tool {
	return &funcTool{
		name:        "fibonacci_numbers",
		description: "Return the first n Fibonacci numbers",
		params: []catalog.Param{
			{Name: "n", Kind: catalog.KindInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			n, err := intArg(args, "n")
			if err != nil {
				return nil, err
			}
			if n < 0 || n > 90 {
				return nil, fmt.Errorf("n must be between 0 and 90, got %d", n)
			}
			fibs := make([]any, 0, n)
			a, b := 0, 1
			for i := 0; i < n; i++ {
				fibs = append(fibs, a)
				a, b = b, a+b
			}
			return fibs, nil
		},
	}
}

// drawRectangleTool renders a bordered text box. It stands in for the
// original's canvas window so the visualization path stays exercisable
// end to end.
func drawRectangleTool(w io.Writer) Tool {
	return &funcTool{
		name:        "draw_rectangle",
		description: "Draw a rectangle with a text label inside",
		params: []catalog.Param{
			{Name: "width", Kind: catalog.KindInteger},
			{Name: "height", Kind: catalog.KindInteger},
			{Name: "text", Kind: catalog.KindString},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			width, err := intArg(args, "width")
			if err != nil {
				return nil, err
			}
			height, err := intArg(args, "height")
			if err != nil {
				return nil, err
			}
			text, err := stringArg(args, "text")
			if err != nil {
				return nil, err
			}
			if width <= 0 || height <= 0 {
				return nil, fmt.Errorf("rectangle dimensions must be positive, got %dx%d", width, height)
			}
			if w != nil {
				renderRectangle(w, text)
			}
			return fmt.Sprintf("rectangle %dx%d drawn with text %q", width, height, text), nil
		},
	}
}

// renderRectangle writes a fixed-size bordered box; the requested pixel
// dimensions only appear in the confirmation text.
func renderRectangle(w io.Writer, text string) {
	inner := len(text) + 6
	border := "+" + strings.Repeat("-", inner) + "+"
	fmt.Fprintln(w, border)
	fmt.Fprintf(w, "|   %s   |\n", text)
	fmt.Fprintln(w, border)
}

// sampleHeadlines is a static stand-in for a live feed; fetching real
// news is outside the loop's scope.
var sampleHeadlines = []string{
	"Global markets rally as rates hold steady",
	"Breakthrough battery promises week-long charge",
	"Historic comet visible to naked eye this month",
	"Chess prodigy wins national title at age nine",
	"City unveils plan for car-free downtown",
	"Deep-sea expedition films unknown squid species",
	"Drought-resistant wheat clears field trials",
	"Museum recovers painting missing for decades",
	"Startups race to map the ocean floor",
	"Library loans hit record high among teens",
}

func fetchHeadlinesTool() Tool {
	return &funcTool{
		name:        "fetch_headlines",
		description: "Fetch the latest news headlines",
		params: []catalog.Param{
			{Name: "count", Kind: catalog.KindInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			count, err := intArg(args, "count")
			if err != nil {
				return nil, err
			}
			if count <= 0 {
				return nil, fmt.Errorf("count must be positive, got %d", count)
			}
			if count > len(sampleHeadlines) {
				count = len(sampleHeadlines)
			}
			out := make([]any, count)
			for i := 0; i < count; i++ {
				out[i] = fmt.Sprintf("%d. %s", i+1, sampleHeadlines[i])
			}
			return out, nil
		},
	}
}
