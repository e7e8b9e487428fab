// File: internal/infra/adapters/tokenizer/tokenizer.go
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers models tiktoken has no table for; cl100k is close
// enough for bookkeeping.
const fallbackEncoding = "cl100k_base"

// Counter estimates token counts per model. Encoders are expensive to build,
// so they are cached per model name.
type Counter struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	enc := c.encoderFor(model)
	if enc == nil {
		// Rough heuristic when no encoding table applies.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encoderFor(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			enc = nil
		}
	}
	c.cache[model] = enc
	return enc
}
