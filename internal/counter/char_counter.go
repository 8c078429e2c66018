package counter

import (
	"unicode"
)

// CharCounter counts characters, ignoring whitespace so that reflowed or
// re-indented text measures the same as the original.
type CharCounter struct{}

// NewCharCounter creates a new CharCounter instance.
func NewCharCounter() Counter {
	return &CharCounter{}
}

// Count returns the number of non-whitespace runes in the given text.
func (cc *CharCounter) Count(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// Name returns the name of this counting method for logging and debugging.
func (cc *CharCounter) Name() string {
	return "characters"
}
