// Package classify provides content classification for notes that recognition
// could not structure, and for boilerplate blocks in imported pages.
//
// Analyze extracts structural features from a note. FallbackTemplate maps the
// features to the id of a template the note could be filed under instead, and
// RepairSuggestions turns them into human-readable hints. IsExtraneous uses
// stopword analysis and position-based thresholding to flag navigation,
// footer and legal blocks clipped from web pages so batch imports can skip them.
package classify

import (
	"math"
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// extraneousStopwords contains stemmed words that commonly appear in clipped
// page boilerplate such as navigation, footers, cookie banners and legal text
var extraneousStopwords = map[string]struct{}{
	// --- Page Structure ---
	"author":   {},
	"chapter":  {},
	"content":  {}, // from "table of contents"
	"footer":   {},
	"menu":     {},
	"navig":    {},
	"page":     {},
	"sidebar":  {},
	"skip":     {}, // from "skip to content"
	"previous": {},
	"next":     {},

	// --- Interaction ---
	"about":     {},
	"comment":   {},
	"cooki":     {},
	"login":     {},
	"newslett":  {},
	"share":     {},
	"sign":      {},
	"subscrib":  {},
	"advertis":  {},
	"sponsor":   {},
	"accept":    {},
	"follow":    {},
	"profil":    {},
	"notif":     {},
	"download":  {},
	"updat":     {},
	"subscript": {},

	// --- Legal ---
	"copyright": {},
	"licens":    {},
	"permiss":   {},
	"polici":    {},
	"privaci":   {},
	"reserv":    {},
	"right":     {},
	"term":      {},
	"use":       {},

	// --- References ---
	"citat": {},
	"https": {}, // from URLs
	"isbn":  {},
	"refer": {},
}

// Classifier flags boilerplate blocks using stopword analysis and
// position-based thresholding
type Classifier struct {
	// tokenRegex extracts word tokens from text
	tokenRegex *regexp.Regexp
}

// NewClassifier creates and initializes a new Classifier instance
func NewClassifier() *Classifier {
	return &Classifier{
		tokenRegex: regexp.MustCompile(`\b[a-zA-Z]+\b`),
	}
}

// IsExtraneous determines if a block of an imported note is boilerplate.
// It compares the ratio of stemmed stopwords to total tokens against a
// threshold that is lower for blocks at the beginning and end of the note,
// where navigation and footers sit.
//
// Parameters:
//   - blockText: the text content of the block to analyze
//   - blockIndex: zero-based index of the block within the note
//   - totalBlocks: total number of blocks in the note
//
// Returns true if the block should be skipped.
func (c *Classifier) IsExtraneous(blockText string, blockIndex int, totalBlocks int) bool {
	// invalid params are never classified as extraneous
	if totalBlocks <= 0 || blockIndex < 0 || blockIndex >= totalBlocks {
		return false
	}

	tokens := c.tokenRegex.FindAllString(strings.ToLower(blockText), -1)
	if len(tokens) == 0 {
		// blocks with no latin words may be CJK cards; keep them unless blank
		return strings.TrimSpace(blockText) == ""
	}

	stopwordCount := 0
	for _, token := range tokens {
		if _, isStopword := extraneousStopwords[stemWord(token)]; isStopword {
			stopwordCount++
		}
	}

	stopwordRatio := float64(stopwordCount) / float64(len(tokens))
	return stopwordRatio > c.calculateThreshold(blockIndex, totalBlocks)
}

// calculateThreshold computes a dynamic threshold based on block position:
// low at the edges of the note and higher in the middle.
func (c *Classifier) calculateThreshold(blockIndex int, totalBlocks int) float64 {
	if totalBlocks <= 0 || blockIndex < 0 || blockIndex >= totalBlocks {
		return 0.33
	}
	if totalBlocks <= 3 {
		// short notes are rarely wrapped in boilerplate
		return 0.5
	}

	relativePosition := float64(blockIndex) / float64(totalBlocks-1)

	// inverted V curve
	positionFactor := 1.0 - math.Abs(2.0*relativePosition-1.0)

	minThreshold := 0.1
	maxThreshold := 0.33
	return minThreshold + (maxThreshold-minThreshold)*positionFactor
}

// stemWord stems an English token, falling back to the token itself
func stemWord(token string) string {
	stemmed, err := snowball.Stem(token, "english", true)
	if err != nil || stemmed == "" {
		return token
	}
	return stemmed
}
