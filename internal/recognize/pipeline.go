// Package recognize runs the ordered chain of recognition strategies over a
// note and returns a single result that always keeps the author's text.
//
// The default chain is strict-regex, multi-pattern, boundary, hybrid,
// relaxed-regex and keyword-heuristic. Each strategy returns a card.Attempt.
// The first successful attempt whose confidence exceeds the acceptance
// threshold is returned at once. Otherwise the best successful attempt wins,
// and when there is none a protective result splits the note into its first
// line and the rest. Every exit goes through finish, which records the full
// original text under the "notes" field.
package recognize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chriscorrea/notecard/internal/boundary"
	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/choice"
	"github.com/chriscorrea/notecard/internal/counter"
	"github.com/chriscorrea/notecard/internal/language"
	"github.com/chriscorrea/notecard/internal/match"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/preprocess"
)

// DefaultThreshold is the confidence an attempt must exceed to be accepted.
const DefaultThreshold = 0.5

// Protective is the strategy name of the last-ditch result.
const Protective = "protective"

// ProtectiveConfidence is the confidence of a protective result.
const ProtectiveConfidence = 0.3

// Pipeline recognizes notes with an ordered list of strategies.
type Pipeline struct {
	registry   *pattern.Registry
	matcher    *match.Matcher
	detector   *boundary.Detector
	strategies []ParseStrategy
	threshold  float64
	normalize  preprocess.Options
	unit       counter.CountingMethod
	order      []string
	filter     func(pattern.ContentPattern) bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThreshold sets the acceptance threshold.
func WithThreshold(t float64) Option {
	return func(p *Pipeline) {
		if t >= 0 && t <= 1 {
			p.threshold = t
		}
	}
}

// WithStrategies replaces the strategy chain.
func WithStrategies(s ...ParseStrategy) Option {
	return func(p *Pipeline) {
		p.strategies = append([]ParseStrategy{}, s...)
	}
}

// WithStrategyOrder reorders or narrows the default chain by name. Unknown
// names make New fail.
func WithStrategyOrder(names ...string) Option {
	return func(p *Pipeline) {
		p.order = names
	}
}

// WithLengthUnit measures field length for quality bonuses in the given unit.
func WithLengthUnit(method counter.CountingMethod) Option {
	return func(p *Pipeline) {
		p.unit = method
	}
}

// WithNormalize sets the preprocessing passes.
func WithNormalize(opts preprocess.Options) Option {
	return func(p *Pipeline) {
		p.normalize = opts
	}
}

// WithPatternFilter restricts the registry patterns the chain may match.
func WithPatternFilter(keep func(pattern.ContentPattern) bool) Option {
	return func(p *Pipeline) {
		p.filter = keep
	}
}

// WithDetector replaces the boundary detector used by the default chain.
func WithDetector(d *boundary.Detector) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.detector = d
		}
	}
}

// New builds a pipeline over reg.
func New(reg *pattern.Registry, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		registry:  reg,
		detector:  boundary.NewDetector(),
		threshold: DefaultThreshold,
		normalize: preprocess.DefaultOptions(),
		unit:      counter.Characters,
	}
	for _, opt := range opts {
		opt(p)
	}
	mopts := []match.Option{match.WithLengthUnit(p.unit)}
	if p.filter != nil {
		mopts = append(mopts, match.WithFilter(p.filter))
	}
	p.matcher = match.New(reg, mopts...)

	if p.strategies == nil {
		p.strategies = DefaultStrategies(reg, p.matcher, p.detector)
	}
	if len(p.order) > 0 {
		ordered, err := ByName(p.strategies, p.order)
		if err != nil {
			return nil, fmt.Errorf("configuring strategy order: %w", err)
		}
		p.strategies = ordered
	}
	if len(p.strategies) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one strategy")
	}
	return p, nil
}

// DefaultStrategies returns the standard chain in order.
func DefaultStrategies(reg *pattern.Registry, m *match.Matcher, d *boundary.Detector) []ParseStrategy {
	return []ParseStrategy{
		NewStrictRegex(reg, m.Rule()),
		NewMultiPattern(m),
		NewBoundary(d),
		NewHybrid(m, d),
		NewRelaxedRegex(reg, m.Rule()),
		NewKeywordHeuristic(),
	}
}

// Names returns the strategy names in chain order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Threshold returns the acceptance threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Matcher returns the pattern matcher shared by the chain.
func (p *Pipeline) Matcher() *match.Matcher {
	return p.matcher
}

// Registry returns the pattern registry the pipeline matches against.
func (p *Pipeline) Registry() *pattern.Registry {
	return p.registry
}

// Prepared is a note ready for the strategies.
type Prepared struct {
	Input
	Original string
	Norm     preprocess.Result
	Tags     []string
}

// Prepare splits frontmatter and tag lines off content and normalizes it.
func (p *Pipeline) Prepare(content string, tmpl *card.Template) Prepared {
	body, meta := preprocess.SplitFrontmatter(content)
	body, lineTags := splitTags(body)
	norm := preprocess.Normalize(body, p.normalize)
	return Prepared{
		Input: Input{
			Content:  norm.Masked,
			Template: tmpl,
			Language: language.Detect(norm.Processed),
		},
		Original: content,
		Norm:     norm,
		Tags:     mergeTags(meta.TagList(), lineTags),
	}
}

// Parse runs the chain over content. It never fails: the result carries the
// original text on every path.
func (p *Pipeline) Parse(content string, tmpl *card.Template) card.Result {
	prep := p.Prepare(content, tmpl)
	if strings.TrimSpace(prep.Content) == "" {
		slog.Debug("Empty note, returning protective result")
		return p.finish(prep, protective(prep, nil, "content is empty"), nil)
	}

	var attempts []card.Attempt
	best, partial := -1, -1
	for _, s := range p.strategies {
		a := s.Execute(prep.Input)
		if a.Strategy == "" {
			a.Strategy = s.Name()
		}
		attempts = append(attempts, a)
		slog.Debug("Strategy finished", "strategy", a.Strategy, "outcome", a.Outcome, "confidence", a.Confidence)

		switch a.Outcome {
		case card.OK:
			if a.Confidence > p.threshold {
				return p.finish(prep, a, attempts)
			}
			if best < 0 || a.Confidence > attempts[best].Confidence {
				best = len(attempts) - 1
			}
		case card.Partial:
			if partial < 0 || a.Confidence > attempts[partial].Confidence {
				partial = len(attempts) - 1
			}
		}
	}

	if best >= 0 {
		chosen := attempts[best]
		chosen.Warnings = append(append([]string(nil), chosen.Warnings...),
			fmt.Sprintf("low confidence: %.2f is below the %.2f acceptance threshold", chosen.Confidence, p.threshold))
		return p.finish(prep, chosen, attempts)
	}

	var bestPartial *card.Attempt
	if partial >= 0 {
		bestPartial = &attempts[partial]
	}
	return p.finish(prep, protective(prep, bestPartial, "no strategy recognized the note"), attempts)
}

// protective splits the note into its first line and the rest.
func protective(prep Prepared, partial *card.Attempt, reason string) card.Attempt {
	q, a := boundary.NaiveSplit(prep.Content)
	warnings := []string{
		reason,
		"fell back to first line as question and the rest as answer; the full note is kept in notes",
	}
	if partial != nil {
		warnings = append(warnings, fmt.Sprintf("best partial result came from %s (confidence %.2f)", partial.Strategy, partial.Confidence))
	}
	return card.Attempt{
		Strategy:   Protective,
		Outcome:    card.Failed,
		Method:     card.Intelligent,
		Fields:     qaFields(q, a),
		Confidence: ProtectiveConfidence,
		Warnings:   warnings,
		Reason:     reason,
	}
}

// Complete turns an attempt made outside the chain into a result: fields are
// restored, choice answers resolved and the original text recorded.
func (p *Pipeline) Complete(prep Prepared, a card.Attempt) card.Result {
	return p.finish(prep, a, []card.Attempt{a})
}

// finish builds the result of every exit path.
func (p *Pipeline) finish(prep Prepared, a card.Attempt, attempts []card.Attempt) card.Result {
	fields := make(card.Fields, len(a.Fields)+2)
	for name, v := range a.Fields {
		fields[name] = prep.Norm.Restore(v)
	}
	warnings := append([]string(nil), a.Warnings...)

	if fields.NonEmpty(card.FieldOptions) {
		warnings = append(warnings, postProcessChoice(fields)...)
	}
	if a.Method == card.Regex && fields.NonEmpty(card.FieldQuestion) && fields.NonEmpty(card.FieldAnswer) {
		c := boundary.ValidateCompleteness(prep.Norm.Processed, fields[card.FieldQuestion], fields[card.FieldAnswer])
		if c.Truncated() {
			warnings = append(warnings, c.Warning)
		}
	}
	if len(prep.Tags) > 0 && !fields.NonEmpty(card.FieldTags) {
		fields[card.FieldTags] = strings.Join(prep.Tags, ", ")
	}
	fields[card.FieldNotes] = prep.Original

	return card.Result{
		Success:         a.Outcome == card.OK,
		Fields:          fields,
		Confidence:      a.Confidence,
		Method:          a.Method,
		Strategy:        a.Strategy,
		PatternID:       a.PatternID,
		Warnings:        warnings,
		OriginalContent: prep.Original,
		Attempts:        attempts,
	}
}

// postProcessChoice resolves the correct answer of a multiple-choice card to
// option ids and returns the parser's warnings.
func postProcessChoice(fields card.Fields) []string {
	q, err := choice.ParseChoiceQuestion(fields[card.FieldOptions], fields[card.FieldCorrectAnswer])
	warnings := q.Warnings
	if err != nil {
		return append(warnings, err.Error())
	}
	fields[card.FieldCorrectAnswer] = strings.Join(q.CorrectIDs, ",")
	return warnings
}
