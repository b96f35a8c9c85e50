package retrieval

// BuiltinCorpus returns the knowledge base shipped with the agent. It
// covers the workflows the builtin tool set supports.
func BuiltinCorpus() []Document {
	return []Document{
		{
			Title:    "ASCII exponential pipeline",
			Content:  "To sum the exponentials of a word's character codes, call strings_to_chars_to_int to turn the string into ASCII values, then pass that list to int_list_to_exponential_sum. The second call takes the whole list as one array argument.",
			Category: "mathematical",
			Keywords: []string{"ascii", "exponential", "sum", "characters", "values"},
		},
		{
			Title:    "Basic arithmetic",
			Content:  "Integer arithmetic is covered by add, subtract, multiply and power. Each takes exactly two integers and returns one.",
			Category: "computation",
			Keywords: []string{"add", "subtract", "multiply", "power", "arithmetic"},
		},
		{
			Title:    "Fibonacci sequences",
			Content:  "fibonacci_numbers returns the first n values of the Fibonacci sequence as a list. n may be zero, which yields an empty list.",
			Category: "mathematical",
			Keywords: []string{"fibonacci", "sequence", "numbers"},
		},
		{
			Title:    "Canvas drawing",
			Content:  "When the user asks to draw or visualize a result, draw_rectangle renders a labelled rectangle on the canvas. It takes width, height and the label text. The loop triggers this automatically after the final answer when the query contains drawing language.",
			Category: "visualization",
			Keywords: []string{"draw", "rectangle", "canvas", "visual", "render"},
		},
		{
			Title:    "Headline fetching",
			Content:  "fetch_headlines returns the current top news headlines as a numbered list. It takes a single integer saying how many headlines to return.",
			Category: "news_fetching",
			Keywords: []string{"news", "headlines", "fetch", "latest", "current"},
		},
	}
}
