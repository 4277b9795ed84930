// Package tokencount estimates token usage for prompt budgeting. It prefers
// an exact tiktoken encoding and falls back to a character-based estimate
// when the encoding for a model is unavailable (e.g. offline).
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the rough average for English prose, used by the
// fallback estimator.
const charsPerToken = 4

// Counter counts tokens for one model.
type Counter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// ForModel returns a counter for the given model name. Unknown models get
// the estimator fallback rather than an error.
func ForModel(model string) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	return &Counter{enc: enc}
}

// Count returns the token count of text, exact when an encoding is loaded.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return estimate(text)
}

// Exact reports whether the counter uses a real encoding.
func (c *Counter) Exact() bool {
	return c.enc != nil
}

func estimate(text string) int {
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
