package recognize

import (
	"regexp"
	"strings"

	"github.com/chriscorrea/notecard/internal/language"
)

var hashtagLine = regexp.MustCompile(`^[ \t]*#[^\s#]+(?:[ \t]+#[^\s#]+)*[ \t]*$`)

// splitTags removes trailing tag lines from content and returns their tags.
// A tag line is a "Tags: a, b" label line in any language or a line made only
// of #hashtags. A single hashtag counts only below other content.
func splitTags(content string) (string, []string) {
	lines := strings.Split(strings.TrimRight(content, " \t\n"), "\n")
	var tags []string
	end := len(lines)
	for end > 0 {
		line := lines[end-1]
		if strings.TrimSpace(line) == "" {
			end--
			continue
		}
		found, ok := tagLine(line)
		if !ok {
			break
		}
		// a lone "#Word" with nothing above it is the note, not a tag
		if len(found) == 1 && hashtagLine.MatchString(line) && !hasText(lines[:end-1]) {
			break
		}
		tags = append(found, tags...)
		end--
	}
	if end == len(lines) {
		return content, nil
	}
	return strings.Join(lines[:end], "\n"), tags
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

func tagLine(line string) ([]string, bool) {
	if hashtagLine.MatchString(line) {
		return splitTagList(line), true
	}
	for _, s := range language.All() {
		if v, ok := s.IsTagLine(line); ok {
			return splitTagList(v), true
		}
	}
	return nil, false
}

func splitTagList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimPrefix(strings.TrimSpace(p), "#"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeTags joins tag lists, dropping duplicates and keeping first-seen order.
func mergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, t := range l {
			key := strings.ToLower(t)
			if !seen[key] {
				seen[key] = true
				out = append(out, t)
			}
		}
	}
	return out
}
