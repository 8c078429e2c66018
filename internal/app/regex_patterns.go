package app

import (
	"regexp"
	"strings"
	"sync"
)

// regexPatterns holds compiled regex patterns for Markdown markup that plain
// text output strips
type regexPatterns struct {
	headerRegex     *regexp.Regexp
	codeFenceRegex  *regexp.Regexp
	inlineCodeRegex *regexp.Regexp
	boldRegex       *regexp.Regexp
	italicRegex     *regexp.Regexp
	highlightRegex  *regexp.Regexp
	linkRegex       *regexp.Regexp
}

var (
	patterns     *regexPatterns
	patternsOnce sync.Once
)

// getRegexPatterns returns the singleton instance of compiled regex patterns
func getRegexPatterns() *regexPatterns {
	patternsOnce.Do(func() {
		patterns = &regexPatterns{
			headerRegex:     regexp.MustCompile(`^\s*#{1,6}\s+`),
			codeFenceRegex:  regexp.MustCompile(`^\s*(?:\x60{3}|~{3})`),
			inlineCodeRegex: regexp.MustCompile(`\x60([^\x60]+)\x60`),
			boldRegex:       regexp.MustCompile(`\*\*([^*\s](?:[^*]*[^*\s])?)\*\*`),
			italicRegex:     regexp.MustCompile(`(^|[^*\w])\*([^*\s](?:[^*]*[^*\s])?)\*`),
			highlightRegex:  regexp.MustCompile(`==([^=\s](?:[^=]*[^=\s])?)==`),
			linkRegex:       regexp.MustCompile(`!?\[([^\]\n]*)\]\([^)\n]*\)`),
		}
	})
	return patterns
}

// stripMarkdown removes inline Markdown markup and heading markers, keeping
// the text they wrap. Code fence lines are dropped; their contents stay.
func stripMarkdown(text string) string {
	p := getRegexPatterns()
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if p.codeFenceRegex.MatchString(line) {
			continue
		}
		line = p.headerRegex.ReplaceAllString(line, "")
		line = p.linkRegex.ReplaceAllString(line, "$1")
		line = p.inlineCodeRegex.ReplaceAllString(line, "$1")
		line = p.boldRegex.ReplaceAllString(line, "$1")
		line = p.italicRegex.ReplaceAllString(line, "$1$2")
		line = p.highlightRegex.ReplaceAllString(line, "$1")
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
