package counter

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter implements token counting using tiktoken w/ cl100k_base encoding.
// The encoding is loaded on first use; if it cannot be loaded the counter
// falls back to counting words.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
	fallback Counter
}

// NewTokenCounter creates a new TokenCounter w/ cl100k_base encoding
func NewTokenCounter() Counter {
	return &TokenCounter{fallback: NewWordCounter()}
}

func (tc *TokenCounter) load() {
	tc.once.Do(func() {
		slog.Debug("Initializing TokenCounter with cl100k_base encoding")
		encoding, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Debug("Token encoding unavailable, counting words instead", "error", err)
			return
		}
		tc.encoding = encoding
	})
}

// Count returns the number of tokens in the given text using cl100k_base encoding.
// This can be called concurrently
func (tc *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	tc.load()
	if tc.encoding == nil {
		return tc.fallback.Count(text)
	}

	// nil params mean no special tokens allowed/disallowed
	return len(tc.encoding.Encode(text, nil, nil))
}

// Name returns the name of this counting method (for logging and debugging).
func (tc *TokenCounter) Name() string {
	return "tokens (cl100k_base)"
}
