// Package pattern provides the declarative pattern library used to recognize
// card structure in note text.
//
// A ContentPattern pairs a regular expression with a mapping from card field
// names to capture groups. Patterns live in an explicit Registry that compiles
// and caches them; user supplied patterns additionally pass a complexity screen
// (see SafetyValidator) before they are accepted. Expressions use the .NET
// flavoured engine of github.com/dlclark/regexp2, which supports lookaround and
// enforces a per-match timeout.
package pattern

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/chriscorrea/notecard/internal/card"
)

// Category groups patterns by the structural cue they recognize.
type Category string

const (
	CategoryHeading   Category = "heading"
	CategoryLabel     Category = "label"
	CategoryChoice    Category = "choice"
	CategorySeparator Category = "separator"
	CategoryInline    Category = "inline"
	CategoryCloze     Category = "cloze"
	CategoryHeuristic Category = "heuristic"
	CategoryCustom    Category = "custom"
)

// ContentPattern is a declarative recognition rule.
type ContentPattern struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Regex string `json:"regex" yaml:"regex"`
	// Flags holds single-letter options: i (ignore case), m (multiline),
	// s (dot matches newline). g and u are accepted and ignored.
	Flags string `json:"flags,omitempty" yaml:"flags,omitempty"`
	// GroupCount is the declared number of capture groups; zero means derive it.
	GroupCount     int            `json:"groupCount,omitempty" yaml:"groupCount,omitempty"`
	FieldMapping   map[string]int `json:"fieldMapping" yaml:"fieldMapping"`
	Priority       int            `json:"priority" yaml:"priority"`
	BaseConfidence float64        `json:"baseConfidence" yaml:"baseConfidence"`
	Category       Category       `json:"category" yaml:"category"`
	Examples       []string       `json:"examples,omitempty" yaml:"examples,omitempty"`

	// Custom marks user supplied patterns, which are screened for ReDoS shapes.
	Custom bool `json:"custom,omitempty" yaml:"-"`
}

// FromTemplate converts a bound card template into a pattern.
func FromTemplate(t *card.Template) ContentPattern {
	return ContentPattern{
		ID:             "template:" + t.ID,
		Name:           t.Name,
		Regex:          t.Regex,
		Flags:          t.Flags,
		FieldMapping:   t.FieldMapping,
		BaseConfidence: 1,
		Category:       CategoryCustom,
		Custom:         true,
	}
}

// Options converts the pattern's flag letters to regexp2 options.
func (p ContentPattern) Options() (regexp2.RegexOptions, error) {
	return ParseFlags(p.Flags)
}

// ParseFlags converts flag letters to regexp2 options.
func ParseFlags(flags string) (regexp2.RegexOptions, error) {
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'g', 'u', ' ':
		default:
			return opts, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	return opts, nil
}

// Fields returns the mapped field names in sorted order.
func (p ContentPattern) Fields() []string {
	names := make(card.Fields, len(p.FieldMapping))
	for k := range p.FieldMapping {
		names[k] = ""
	}
	return names.Names()
}

// Capture is the result of applying one pattern to content.
type Capture struct {
	Fields card.Fields
	// Groups holds the raw capture groups; Groups[0] is the whole match.
	Groups  []string
	Matched string
	// Index and Length are rune offsets of the match within the content.
	Index  int
	Length int
}

// Apply runs re over content and extracts the fields mapped by p. It returns
// a nil Capture when the pattern does not match.
func Apply(re *regexp2.Regexp, p ContentPattern, content string) (*Capture, error) {
	m, err := re.FindStringMatch(content)
	if err != nil {
		return nil, fmt.Errorf("applying pattern %s: %w", p.ID, err)
	}
	if m == nil {
		return nil, nil
	}

	groups := m.Groups()
	raw := make([]string, len(groups))
	for i, g := range groups {
		raw[i] = g.String()
	}

	fields := make(card.Fields, len(p.FieldMapping))
	for name, idx := range p.FieldMapping {
		g := m.GroupByNumber(idx)
		if g == nil {
			fields[name] = ""
			continue
		}
		fields[name] = strings.TrimSpace(g.String())
	}

	return &Capture{
		Fields:  fields,
		Groups:  raw,
		Matched: m.String(),
		Index:   m.Index,
		Length:  m.Length,
	}, nil
}

// groupCount returns the number of capture groups in re, excluding group 0.
func groupCount(re *regexp2.Regexp) int {
	return len(re.GetGroupNumbers()) - 1
}
