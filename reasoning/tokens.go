package reasoning

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter estimates prompt/completion tokens when a provider
// response carries a zero Usage (the fake provider and some
// OpenAI-compatible backends omit it for streaming calls). Real
// providers that report usage bypass this entirely.
type tokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

var sharedTokenCounter = &tokenCounter{}

func (c *tokenCounter) count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		// Offline fallback: a rough 4-characters-per-token estimate, used
		// only when the encoding assets could not be loaded.
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
