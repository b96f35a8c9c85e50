package prompt

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// CountFunc reports the token length of a string.
type CountFunc func(string) int

// NewTokenCounter returns a CountFunc backed by the cl100k_base
// encoding. When the encoding data is unavailable it falls back to a
// bytes/4 estimate so prompt budgeting still works offline.
func NewTokenCounter() CountFunc {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, using byte estimate", "error", err)
		return estimateTokens
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
