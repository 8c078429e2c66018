package counter

import (
	"strings"
	"unicode"
)

// WordCounter counts whitespace separated words. Scripts written without
// spaces (Han, Hiragana, Katakana) count one word per character.
type WordCounter struct{}

// NewWordCounter creates a new WordCounter instance.
func NewWordCounter() Counter {
	return &WordCounter{}
}

// Count returns the number of words in the given text.
func (wc *WordCounter) Count(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		latin := false
		for _, r := range field {
			if isIdeographic(r) {
				count++
				if latin {
					count++
					latin = false
				}
				continue
			}
			latin = true
		}
		if latin {
			count++
		}
	}
	return count
}

// Name returns the name of this counting method for logging and debugging.
func (wc *WordCounter) Name() string {
	return "words"
}

func isIdeographic(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}
