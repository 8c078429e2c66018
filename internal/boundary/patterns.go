package boundary

import (
	"regexp"
	"sync"
)

// linePatterns holds compiled line classifiers for structural segmentation
type linePatterns struct {
	headingRegex   *regexp.Regexp
	separatorRegex *regexp.Regexp
	listItemRegex  *regexp.Regexp
	boldRegex      *regexp.Regexp
}

var (
	patterns     *linePatterns
	patternsOnce sync.Once
)

// getLinePatterns returns the singleton instance of compiled line classifiers
func getLinePatterns() *linePatterns {
	patternsOnce.Do(func() {
		patterns = &linePatterns{
			headingRegex:   regexp.MustCompile(`^[ \t]{0,3}(#{1,6})[ \t]+(.*?)[ \t#]*$`),
			separatorRegex: regexp.MustCompile(`^[ \t]*(?:-{3,}|={3,}|\*{3,}|_{3,})[ \t]*$`),
			listItemRegex:  regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`),
			boldRegex:      regexp.MustCompile(`\*\*|__`),
		}
	})
	return patterns
}
