package boundary

import (
	"fmt"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/language"
)

// Completeness reports how much of a note a parse recovered.
type Completeness struct {
	Coverage float64 `json:"coverage"`
	Warning  string  `json:"warning,omitempty"`
}

// Truncated reports whether coverage fell below CompletenessThreshold.
func (c Completeness) Truncated() bool {
	return c.Warning != ""
}

// Err returns a TruncationRisk error when the parse looks truncated.
func (c Completeness) Err() error {
	if !c.Truncated() {
		return nil
	}
	return card.NewError(card.TruncationRisk, card.FieldAnswer, "%s", c.Warning)
}

// ValidateCompleteness measures the whitespace-insensitive coverage of
// question and answer against original. Structural markers (heading hashes,
// labels, separator lines and bold markup) are ignored on both sides so a
// clean parse of a fully recovered note scores 1. Low coverage is reported
// as a warning, never as a failure.
func ValidateCompleteness(original, question, answer string) Completeness {
	total := significant(original)
	if total == 0 {
		return Completeness{Coverage: 1}
	}
	got := significant(question + "\n" + answer)
	c := Completeness{Coverage: clamp(float64(got) / float64(total))}
	if c.Coverage < CompletenessThreshold {
		c.Warning = fmt.Sprintf("possible truncation: question and answer cover %.0f%% of the note", c.Coverage*100)
	}
	return c
}

// Completeness validates p against the content it was parsed from.
func (p ParsedContent) Completeness(original string) Completeness {
	return ValidateCompleteness(original, p.Question, p.Answer)
}

// significant counts the characters of s that carry content.
func significant(s string) int {
	pat := getLinePatterns()
	n := 0
	for _, l := range splitLines(s) {
		if pat.separatorRegex.MatchString(l) {
			continue
		}
		if m := pat.headingRegex.FindStringSubmatch(l); m != nil {
			l = m[2]
		}
		if out, ok := language.StripAnyQuestionMarker(l); ok {
			l = out
		} else if out, ok := language.StripAnyAnswerMarker(l); ok {
			l = out
		}
		l = pat.boldRegex.ReplaceAllString(l, "")
		n += chars.Count(l)
	}
	return n
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NaiveSplit treats the first non-blank line as the question and the rest as
// the answer. It is the last-ditch reading used when nothing else applies.
func NaiveSplit(content string) (question, answer string) {
	lines := splitLines(strings.TrimSpace(content))
	if len(lines) == 0 {
		return "", ""
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(strings.Join(lines[1:], "\n"))
}
