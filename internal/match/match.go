// Package match applies every registered pattern to note content and selects
// the best scoring candidate.
//
// Patterns are tried in registry order (priority descending, then registration
// order). Each match becomes a Candidate whose confidence is
//
//	base × (0.5 + 0.5 × coverage) + quality bonus
//
// clamped to [0,1]. Coverage is the whitespace-insensitive share of the content
// covered by the match. The bonus rewards sufficiently long fields, a question
// that reads like one and a balanced question/answer ratio, and penalizes empty
// mapped fields. The highest confidence wins; an equal score never replaces an
// earlier candidate, so ties go to the higher priority and then to the earlier
// registration.
package match

import (
	"log/slog"
	"math"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/counter"
	"github.com/chriscorrea/notecard/internal/language"
	"github.com/chriscorrea/notecard/internal/pattern"
)

// Score components.
const (
	lengthBonus   = 0.02
	questionBonus = 0.03
	ratioBonus    = 0.03
	emptyPenalty  = 0.2
	ratioMin      = 0.1
	ratioMax      = 0.5
)

// Candidate is one pattern's match against the content.
type Candidate struct {
	Pattern pattern.ContentPattern `json:"-"`
	// PatternID repeats Pattern.ID for serialized output.
	PatternID  string            `json:"pattern_id"`
	Groups     []string          `json:"groups"`
	Fields     card.Fields       `json:"fields"`
	Confidence float64           `json:"confidence"`
	Coverage   float64           `json:"coverage"`
	Language   language.Language `json:"language"`
	Order      int               `json:"-"`
}

// Result is the outcome of matching one content string. Best is nil when no
// pattern matched, which is not an error.
type Result struct {
	Best     *Candidate  `json:"best,omitempty"`
	All      []Candidate `json:"all"`
	Attempts int         `json:"attempts"`
}

// LengthRule decides when a field is sufficiently long.
type LengthRule struct {
	Counter     counter.Counter
	MinQuestion int
	MinAnswer   int
}

// DefaultLengthRule measures in whitespace-insensitive characters.
func DefaultLengthRule() LengthRule {
	q, a := counter.Characters.MinFieldLength()
	return LengthRule{Counter: counter.NewCharCounter(), MinQuestion: q, MinAnswer: a}
}

// Matcher scores registry patterns against content.
type Matcher struct {
	registry *pattern.Registry
	rule     LengthRule
	filter   func(pattern.ContentPattern) bool
}

// chars measures coverage and ratios, independent of the configured length unit.
var chars = counter.NewCharCounter()

// Option configures a Matcher.
type Option func(*Matcher)

// WithLengthUnit measures field length in the given unit.
func WithLengthUnit(method counter.CountingMethod) Option {
	return func(m *Matcher) {
		c, err := counter.NewCounter(method)
		if err != nil {
			slog.Debug("Keeping default length unit", "error", err)
			return
		}
		q, a := method.MinFieldLength()
		m.rule = LengthRule{Counter: c, MinQuestion: q, MinAnswer: a}
	}
}

// WithFilter restricts matching to patterns accepted by keep.
func WithFilter(keep func(pattern.ContentPattern) bool) Option {
	return func(m *Matcher) {
		m.filter = keep
	}
}

// New returns a matcher over reg.
func New(reg *pattern.Registry, opts ...Option) *Matcher {
	m := &Matcher{
		registry: reg,
		rule:     DefaultLengthRule(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match applies every pattern to content and returns all candidates and the best.
func (m *Matcher) Match(content string) Result {
	var res Result
	lang := language.Detect(content)
	total := chars.Count(content)

	for _, c := range m.registry.Snapshot() {
		if m.filter != nil && !m.filter(c.Pattern) {
			continue
		}
		res.Attempts++

		capture, err := pattern.Apply(c.Regex, c.Pattern, content)
		if err != nil {
			// a timed out pattern is skipped, never fatal
			slog.Debug("Pattern failed to run", "pattern", c.Pattern.ID, "error", err)
			continue
		}
		if capture == nil {
			continue
		}

		coverage := ratio(chars.Count(capture.Matched), total)
		cand := Candidate{
			Pattern:    c.Pattern,
			PatternID:  c.Pattern.ID,
			Groups:     capture.Groups,
			Fields:     capture.Fields,
			Coverage:   coverage,
			Confidence: Score(c.Pattern, capture.Fields, coverage, lang, m.rule),
			Language:   lang,
			Order:      c.Order,
		}
		res.All = append(res.All, cand)
	}

	for i := range res.All {
		if res.Best == nil || res.All[i].Confidence > res.Best.Confidence {
			res.Best = &res.All[i]
		}
	}

	if res.Best != nil {
		slog.Debug("Pattern match complete", "attempts", res.Attempts, "matches", len(res.All),
			"best", res.Best.PatternID, "confidence", res.Best.Confidence, "coverage", res.Best.Coverage)
	} else {
		slog.Debug("No pattern matched", "attempts", res.Attempts)
	}
	return res
}

// Rule returns the length rule used for quality bonuses.
func (m *Matcher) Rule() LengthRule {
	return m.rule
}

// MatchBest returns the best candidate, or nil when nothing matched.
func (m *Matcher) MatchBest(content string) *Candidate {
	return m.Match(content).Best
}

// Score computes the composite confidence of a match.
func Score(p pattern.ContentPattern, fields card.Fields, coverage float64, lang language.Language, rule LengthRule) float64 {
	if rule.Counter == nil {
		rule = DefaultLengthRule()
	}
	score := p.BaseConfidence * (0.5 + 0.5*clamp(coverage))

	_, hasQ := p.FieldMapping[card.FieldQuestion]
	_, hasA := p.FieldMapping[card.FieldAnswer]

	for name := range p.FieldMapping {
		if !fields.NonEmpty(name) {
			score -= emptyPenalty
			break
		}
	}

	if hasQ && hasA {
		q, a := fields[card.FieldQuestion], fields[card.FieldAnswer]
		if rule.Counter.Count(q) >= rule.MinQuestion {
			score += lengthBonus
		}
		if rule.Counter.Count(a) >= rule.MinAnswer {
			score += lengthBonus
		}
		if language.EndsWithQuestionMark(q) || language.For(lang).HasQuestionWord(q) {
			score += questionBonus
		}
		qn, an := float64(chars.Count(q)), float64(chars.Count(a))
		if qn+an > 0 {
			if r := qn / (qn + an); r >= ratioMin && r <= ratioMax {
				score += ratioBonus
			}
		}
	} else if len(p.FieldMapping) > 0 {
		all := true
		for name := range p.FieldMapping {
			if rule.Counter.Count(fields[name]) < rule.MinAnswer {
				all = false
				break
			}
		}
		if all {
			score += 2 * lengthBonus
		}
	}

	return round(clamp(score))
}

// Coverage returns the whitespace-insensitive share of content found in part.
func Coverage(part, content string) float64 {
	return ratio(chars.Count(part), chars.Count(content))
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return clamp(float64(part) / float64(total))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round trims float noise so equal scores compare equal.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
