// Package tokenizer wraps tiktoken for client-side token counting. The
// summarizer uses it to clamp generation budgets to the input size.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Tokenizer counts tokens with a fixed encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer with the default encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", defaultEncoding, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the token count of text. A nil tokenizer falls back
// to a rough 4-characters-per-token estimate so callers never need a nil
// check on the hot path.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}
