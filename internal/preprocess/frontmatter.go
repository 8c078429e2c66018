package preprocess

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/adrg/frontmatter"
)

// NoteMeta holds the frontmatter fields recognition cares about.
type NoteMeta struct {
	Title   string `yaml:"title"`
	Tags    any    `yaml:"tags"`
	Aliases any    `yaml:"aliases"`
}

// TagList flattens the tags value, which authors write either as a YAML list
// or as a comma/space separated string.
func (m NoteMeta) TagList() []string {
	var raw []string
	switch v := m.Tags.(type) {
	case string:
		raw = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '，' })
	case []any:
		for _, item := range v {
			raw = append(raw, fmt.Sprint(item))
		}
	case []string:
		raw = v
	}

	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// SplitFrontmatter separates a leading YAML frontmatter block from the note
// body. Text without a well-formed block is returned unchanged.
func SplitFrontmatter(text string) (string, NoteMeta) {
	var meta NoteMeta
	normalized := unifyLineEndings(text)
	if !strings.HasPrefix(normalized, "---\n") || !strings.Contains(normalized[4:], "\n---") {
		return text, meta
	}

	body, err := frontmatter.Parse(strings.NewReader(normalized), &meta)
	if err != nil {
		// malformed frontmatter stays in the body so no text is lost
		slog.Debug("Frontmatter parse failed, treating as body", "error", err)
		return text, NoteMeta{}
	}
	return strings.TrimLeft(string(body), "\n"), meta
}
