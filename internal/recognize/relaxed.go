package recognize

import (
	"fmt"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/match"
	"github.com/chriscorrea/notecard/internal/pattern"
)

// relaxedScale discounts matches of loosened expressions.
const relaxedScale = 0.8

// relaxedPatterns tolerate preamble text, odd label punctuation and missing
// answer labels that the built-in set rejects.
func relaxedPatterns() []pattern.ContentPattern {
	qa := func() map[string]int { return map[string]int{card.FieldQuestion: 1, card.FieldAnswer: 2} }
	return []pattern.ContentPattern{
		{
			ID: "relaxed-labels", Name: "Question label anywhere",
			Regex: `(?:^|\n)[ \t]*(?:\*\*)?(?:q|question|问题|質問)\d*(?:\*\*)?[ \t]*[-:：.)][ \t]*([^\n]+)\n+` +
				`(?:[ \t]*(?:\*\*)?(?:a|answer|答案|答え)\d*(?:\*\*)?[ \t]*[-:：.)][ \t]*)?([\s\S]+?)\s*\z`,
			Flags: "i", FieldMapping: qa(), Priority: 30, BaseConfidence: 0.8, Category: pattern.CategoryLabel,
		},
		{
			ID: "relaxed-inline-labels", Name: "Question and answer labels on one line",
			Regex: `\bq(?:uestion)?[ \t]*[:：][ \t]*([\s\S]+?)[ \t]+a(?:nswer)?[ \t]*[:：][ \t]*([\s\S]+?)\s*\z`,
			Flags: "i", FieldMapping: qa(), Priority: 28, BaseConfidence: 0.8, Category: pattern.CategoryInline,
		},
		{
			ID: "relaxed-arrow", Name: "term -> definition",
			Regex:        `^[ \t]*([^\n]{1,200}?)[ \t]+(?:-{1,2}>|=>|→|[-–—])[ \t]+([^\n]+?)\s*\z`,
			FieldMapping: qa(), Priority: 25, BaseConfidence: 0.7, Category: pattern.CategoryInline,
		},
		{
			ID: "relaxed-first-line", Name: "First line then the rest",
			Regex:        `^\s*([^\n]+?)[ \t]*\n+([\s\S]+?)\s*\z`,
			FieldMapping: qa(), Priority: 10, BaseConfidence: 0.6, Category: pattern.CategoryHeuristic,
		},
	}
}

// relaxedRegex retries with loosened expressions: the bound template without
// anchors and case sensitivity, and a small set of forgiving patterns.
type relaxedRegex struct {
	registry *pattern.Registry
	matcher  *match.Matcher
	rule     match.LengthRule
}

// NewRelaxedRegex returns the fuzzy regex strategy. reg compiles relaxed
// template expressions; the forgiving patterns live in a private registry.
func NewRelaxedRegex(reg *pattern.Registry, rule match.LengthRule) ParseStrategy {
	own := pattern.NewRegistry(pattern.WithMatchTimeout(reg.MatchTimeout()))
	for _, p := range relaxedPatterns() {
		if _, err := own.Register(p); err != nil {
			panic(fmt.Sprintf("registering relaxed pattern %s: %v", p.ID, err))
		}
	}
	return &relaxedRegex{registry: reg, matcher: match.New(own), rule: rule}
}

func (s *relaxedRegex) Name() string { return RelaxedRegex }

func (s *relaxedRegex) Execute(in Input) card.Attempt {
	best := card.Failure(RelaxedRegex, "no relaxed pattern matched")

	if in.Template.HasRegex() {
		if a, ok := s.relaxTemplate(in); ok {
			best = a
		}
	}

	if c := s.matcher.MatchBest(in.Content); c != nil {
		conf := c.Confidence * relaxedScale
		if best.Outcome == card.Failed || conf > best.Confidence {
			names := c.Pattern.Fields()
			best = card.Attempt{
				Strategy:   RelaxedRegex,
				Outcome:    outcome(c.Fields, names),
				Method:     card.Regex,
				Fields:     c.Fields.Clone(),
				Confidence: conf,
				PatternID:  c.PatternID,
				Warnings:   append([]string{"matched by a relaxed pattern"}, emptyFieldWarnings(c.Fields, names)...),
			}
		}
	}
	return best
}

func (s *relaxedRegex) relaxTemplate(in Input) (card.Attempt, bool) {
	t := *in.Template
	t.ID += ":relaxed"
	t.Regex = unanchor(t.Regex)
	for _, f := range "is" {
		if !strings.ContainsRune(t.Flags, f) {
			t.Flags += string(f)
		}
	}

	p, re, err := s.registry.CompileTemplate(&t)
	if err != nil {
		return card.Attempt{}, false
	}
	capture, err := pattern.Apply(re, p, in.Content)
	if err != nil || capture == nil {
		return card.Attempt{}, false
	}

	names := t.RequiredFields
	if len(names) == 0 {
		names = p.Fields()
	}
	coverage := match.Coverage(capture.Matched, in.Content)
	return card.Attempt{
		Strategy:   RelaxedRegex,
		Outcome:    outcome(capture.Fields, names),
		Method:     card.Regex,
		Fields:     capture.Fields,
		Confidence: match.Score(p, capture.Fields, coverage, in.Language, s.rule) * relaxedScale,
		PatternID:  p.ID,
		Warnings:   append([]string{"matched the template without anchors or case"}, emptyFieldWarnings(capture.Fields, names)...),
	}, true
}

// unanchor drops a leading ^ and an unescaped trailing $.
func unanchor(expr string) string {
	expr = strings.TrimPrefix(expr, "^")
	if strings.HasSuffix(expr, "$") && !strings.HasSuffix(expr, `\$`) {
		expr = strings.TrimSuffix(expr, "$")
	}
	return expr
}
