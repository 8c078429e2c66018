package recognize

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/chriscorrea/notecard/internal/boundary"
	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/match"
	"github.com/chriscorrea/notecard/internal/pattern"
)

// strictRegex applies the bound template's own expression.
type strictRegex struct {
	registry *pattern.Registry
	rule     match.LengthRule
}

// NewStrictRegex returns the strategy that matches a bound template's
// expression and nothing else.
func NewStrictRegex(reg *pattern.Registry, rule match.LengthRule) ParseStrategy {
	return &strictRegex{registry: reg, rule: rule}
}

func (s *strictRegex) Name() string { return StrictRegex }

func (s *strictRegex) Execute(in Input) card.Attempt {
	if !in.Template.HasRegex() {
		return card.Failure(StrictRegex, "no bound template expression")
	}
	p, re, err := s.registry.CompileTemplate(in.Template)
	if err != nil {
		return card.Failure(StrictRegex, err.Error())
	}
	capture, err := pattern.Apply(re, p, in.Content)
	if err != nil {
		return card.Failure(StrictRegex, err.Error())
	}
	if capture == nil {
		return card.Failure(StrictRegex, "template expression did not match")
	}

	names := in.Template.RequiredFields
	if len(names) == 0 {
		names = p.Fields()
	}
	coverage := match.Coverage(capture.Matched, in.Content)
	return card.Attempt{
		Strategy:   StrictRegex,
		Outcome:    outcome(capture.Fields, names),
		Method:     card.Regex,
		Fields:     capture.Fields,
		Confidence: match.Score(p, capture.Fields, coverage, in.Language, s.rule),
		PatternID:  p.ID,
		Warnings:   emptyFieldWarnings(capture.Fields, names),
	}
}

// multiPattern picks the best registry pattern.
type multiPattern struct {
	matcher *match.Matcher
}

// NewMultiPattern returns the strategy that scores every registered pattern
// and keeps the best.
func NewMultiPattern(m *match.Matcher) ParseStrategy {
	return &multiPattern{matcher: m}
}

func (s *multiPattern) Name() string { return MultiPattern }

func (s *multiPattern) Execute(in Input) card.Attempt {
	res := s.matcher.Match(in.Content)
	if res.Best == nil {
		return card.Failure(MultiPattern, fmt.Sprintf("no pattern matched (%d tried)", res.Attempts))
	}
	best := res.Best
	names := best.Pattern.Fields()
	return card.Attempt{
		Strategy:   MultiPattern,
		Outcome:    outcome(best.Fields, names),
		Method:     card.Regex,
		Fields:     best.Fields.Clone(),
		Confidence: best.Confidence,
		PatternID:  best.PatternID,
		Warnings:   emptyFieldWarnings(best.Fields, names),
	}
}

// structural reads the note with the boundary detector.
type structural struct {
	detector *boundary.Detector
}

// NewBoundary returns the structural, regex-free strategy.
func NewBoundary(d *boundary.Detector) ParseStrategy {
	return &structural{detector: d}
}

func (s *structural) Name() string { return Boundary }

func (s *structural) Execute(in Input) card.Attempt {
	pc := s.detector.Analyze(in.Content)
	if !pc.Found() {
		return card.Failure(Boundary, strings.Join(pc.Warnings, "; "))
	}
	fields := qaFields(pc.Question, pc.Answer)
	return card.Attempt{
		Strategy:   Boundary,
		Outcome:    outcome(fields, qaNames),
		Method:     card.Intelligent,
		Fields:     fields,
		Confidence: pc.Confidence,
		Warnings:   pc.Warnings,
	}
}

// hybrid cross-checks the best question/answer match against the boundary
// detector and extends an answer the expression cut short.
type hybrid struct {
	matcher  *match.Matcher
	detector *boundary.Detector
}

// agreementBonus is added when regex and structure produce the same card.
const agreementBonus = 0.05

// NewHybrid returns the strategy that validates regex answers structurally.
func NewHybrid(m *match.Matcher, d *boundary.Detector) ParseStrategy {
	return &hybrid{matcher: m, detector: d}
}

func (s *hybrid) Name() string { return Hybrid }

func (s *hybrid) Execute(in Input) card.Attempt {
	var cand *match.Candidate
	res := s.matcher.Match(in.Content)
	for i := range res.All {
		c := &res.All[i]
		_, q := c.Pattern.FieldMapping[card.FieldQuestion]
		_, a := c.Pattern.FieldMapping[card.FieldAnswer]
		if q && a && (cand == nil || c.Confidence > cand.Confidence) {
			cand = c
		}
	}
	if cand == nil {
		return card.Failure(Hybrid, "no question/answer pattern matched")
	}

	fields := cand.Fields.Clone()
	confidence := cand.Confidence
	var warnings []string

	regexCov := boundary.ValidateCompleteness(in.Content, fields[card.FieldQuestion], fields[card.FieldAnswer])
	pc := s.detector.Analyze(in.Content)
	if pc.Found() && pc.Answer != "" {
		same := sameText(pc.Question, fields[card.FieldQuestion])
		structCov := pc.Completeness(in.Content)
		switch {
		case structCov.Coverage > regexCov.Coverage+0.01 && same:
			warnings = append(warnings, fmt.Sprintf("answer extended to the structural boundary (coverage %.0f%% -> %.0f%%)",
				regexCov.Coverage*100, structCov.Coverage*100))
			fields[card.FieldAnswer] = pc.Answer
			regexCov = structCov
		case structCov.Coverage > regexCov.Coverage+0.01:
			warnings = append(warnings, fmt.Sprintf("possible truncation: pattern %s covers %.0f%%, structure covers %.0f%%",
				cand.PatternID, regexCov.Coverage*100, structCov.Coverage*100))
		case same && sameText(pc.Answer, fields[card.FieldAnswer]):
			confidence = math.Min(1, confidence+agreementBonus)
		}
	}
	if regexCov.Truncated() {
		warnings = append(warnings, regexCov.Warning)
	}

	return card.Attempt{
		Strategy:   Hybrid,
		Outcome:    outcome(fields, qaNames),
		Method:     card.Hybrid,
		Fields:     fields,
		Confidence: confidence,
		PatternID:  cand.PatternID,
		Warnings:   append(warnings, emptyFieldWarnings(fields, qaNames)...),
	}
}

// sameText compares ignoring case, whitespace and markup.
func sameText(a, b string) bool {
	squash := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) || r == '*' || r == '_' || r == '#' {
				return -1
			}
			return unicode.ToLower(r)
		}, s)
	}
	return squash(a) == squash(b)
}
