// Package counter measures text length for recognition heuristics.
//
// Match scoring rewards fields that are "sufficiently long" and coverage compares
// recovered text against the input; both need a length unit. Characters ignore
// whitespace so reflowed text measures the same, words treat every CJK character
// as a word, and tokens use OpenAI's tiktoken with the cl100k_base encoding.
//
// Usage Example:
//
//	c, _ := counter.NewCounter(counter.Words)
//	n := c.Count("什么是递归 recursion")
//	// n == 6
package counter

import "fmt"

// Counter defines the interface for different text counting strategies.
type Counter interface {
	// Count returns the number of units (tokens, words, or characters) in given text.
	Count(text string) int

	// Name returns a human-readable name for this counting method (for logging)
	Name() string
}

// CountingMethod represents the different available counting strategies.
type CountingMethod int

const (
	// Characters counts non-whitespace characters (default)
	Characters CountingMethod = iota
	// Words counts whitespace separated words, each CJK character as one word
	Words
	// Tokens uses tiktoken with cl100k_base encoding
	Tokens
)

// String returns the string representation of the counting method.
func (cm CountingMethod) String() string {
	switch cm {
	case Tokens:
		return "tokens"
	case Words:
		return "words"
	case Characters:
		return "characters"
	default:
		return "unknown"
	}
}

// MinFieldLength returns how many units a question and an answer need before
// they count as sufficiently long.
func (cm CountingMethod) MinFieldLength() (question, answer int) {
	switch cm {
	case Words, Tokens:
		return 2, 1
	default:
		return 5, 3
	}
}

// ParseMethod maps a unit name to a CountingMethod.
func ParseMethod(name string) (CountingMethod, error) {
	switch name {
	case "", "characters", "chars":
		return Characters, nil
	case "words":
		return Words, nil
	case "tokens":
		return Tokens, nil
	default:
		return Characters, fmt.Errorf("unknown length unit %q (want characters, words or tokens)", name)
	}
}

// NewCounter creates a new Counter instance based on the specified method.
// This functions as a factory; it returns concrete Counter types,
// providing a single, simple entry point for to get a counter instance.
func NewCounter(method CountingMethod) (Counter, error) {
	switch method {
	case Tokens:
		return NewTokenCounter(), nil
	case Words:
		return NewWordCounter(), nil
	case Characters:
		return NewCharCounter(), nil
	default:
		return nil, fmt.Errorf("unknown counting method %d", method)
	}
}
