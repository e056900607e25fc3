// Package tokens provides token counting for usage accounting. Counts
// use tiktoken when available and fall back to a character-based
// estimate.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens in text.
type Counter interface {
	// Count returns the token count and whether it is an estimate.
	Count(text string) (n int, estimated bool)
}

// estimatorCharsPerToken is the average characters per token used by
// the fallback estimate.
const estimatorCharsPerToken = 4

// TiktokenCounter counts with the cl100k_base encoding. Counts for
// non-OpenAI vocabularies are close but not exact, which is good enough
// for accounting; the estimated flag is only set when tiktoken itself
// is unavailable.
type TiktokenCounter struct {
	once  sync.Once
	codec tokenizer.Codec
	err   error
}

// NewTiktokenCounter creates the counter. The encoding is loaded
// lazily on first use.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) (int, bool) {
	c.once.Do(func() {
		c.codec, c.err = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if c.err != nil {
		return Estimate(text), true
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return Estimate(text), true
	}
	return n, false
}

// Estimate returns a character-based token estimate.
func Estimate(text string) int {
	return len(text) / estimatorCharsPerToken
}

// Estimator always estimates. Useful in tests and when the tokenizer
// data is unavailable.
type Estimator struct{}

// Count implements Counter.
func (Estimator) Count(text string) (int, bool) {
	return Estimate(text), true
}
