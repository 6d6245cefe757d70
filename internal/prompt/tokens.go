// Package prompt assembles the ordered message list sent to the AI client.
// It owns token budgeting, the static and dynamic context blocks, and the
// single-slot retrieval context cache attached to the game state.
package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// TokenCounter counts model tokens in a string. Implementations must be safe
// for concurrent use.
type TokenCounter interface {
	// Count returns the number of tokens in text. A counter whose backing
	// tokenizer failed to load returns 0 for every input.
	Count(text string) int

	// Available reports whether real token counts are being produced. When
	// false the assembler falls back to bounding history by message count.
	Available() bool
}

// TiktokenCounter counts with the cl100k_base byte-pair encoding, loaded
// lazily on first use. A load failure is logged once and downgrades every
// Count to zero so the assembler's message-count fallback takes over.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenCounter creates a counter. The encoding is not loaded until the
// first Count or Available call.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) load() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
		if c.err != nil {
			logging.Get(logging.CategoryPrompt).Warn(
				"Tokenizer unavailable, budgeting by message count: %v", c.err)
		}
	})
}

// Count returns the cl100k_base token count of text, or 0 when the encoding
// could not be loaded.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.load()
	if c.err != nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Available reports whether the encoding loaded.
func (c *TiktokenCounter) Available() bool {
	c.load()
	return c.err == nil
}
