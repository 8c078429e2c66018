// Package dualmode wraps the recognition pipeline in the two parsing policies
// a caller chooses between.
//
// Lenient parsing takes raw or imported notes. It runs the full strategy
// chain, never returns an error and, when nothing recognizes the note,
// packages a PreservedContent record with a fallback template and repair
// suggestions. Strict parsing takes content that is already bound to a
// template. Only the template's own expression is tried, and any required
// field left empty fails the call.
package dualmode

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/classify"
	"github.com/chriscorrea/notecard/internal/recognize"
)

// Mode selects a parsing policy.
type Mode int

const (
	// Lenient tolerates ambiguity and always returns a result
	Lenient Mode = iota
	// Strict validates against a bound template and fails fast
	Strict
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode by name in JSON output.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown parse mode %q (want lenient or strict)", s)
	}
}

// State is a step of a single Parse call.
type State int

const (
	Idle State = iota
	Parsing
	Succeeded
	// PreservedFallback ends a lenient parse that recognized nothing
	PreservedFallback
	// Failed ends a strict parse that did not satisfy its template
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Parsing:
		return "parsing"
	case Succeeded:
		return "succeeded"
	case PreservedFallback:
		return "preserved-fallback"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Succeeded || s == PreservedFallback || s == Failed
}

// PreservedContent is what a lenient parse hands back when no strategy
// recognized the note.
type PreservedContent struct {
	OriginalContent    string         `json:"original_content"`
	Attempts           []card.Attempt `json:"attempts"`
	FallbackTemplateID string         `json:"fallback_template"`
	RepairSuggestions  []string       `json:"repair_suggestions"`
}

// ParseResult is the outcome of one orchestrated parse.
type ParseResult struct {
	card.Result
	Mode      Mode              `json:"mode"`
	State     State             `json:"state"`
	Preserved *PreservedContent `json:"preserved,omitempty"`
}

// Orchestrator applies a parsing policy on top of a pipeline.
type Orchestrator struct {
	pipeline *recognize.Pipeline
	strict   recognize.ParseStrategy
	observe  func(from, to State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers a callback for every state transition.
func WithObserver(fn func(from, to State)) Option {
	return func(o *Orchestrator) {
		o.observe = fn
	}
}

// New builds an orchestrator over p. Strict parsing shares p's registry and
// length rule.
func New(p *recognize.Pipeline, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipeline: p,
		strict:   recognize.NewStrictRegex(p.Registry(), p.Matcher().Rule()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Pipeline returns the pipeline used by lenient parsing.
func (o *Orchestrator) Pipeline() *recognize.Pipeline {
	return o.pipeline
}

// Parse recognizes content under mode. Lenient parsing never returns an
// error. Strict parsing returns a *card.Error classifying the failure, and
// the returned result still carries the original text.
func (o *Orchestrator) Parse(content string, mode Mode, tmpl *card.Template) (ParseResult, error) {
	state := Idle
	move := func(to State) {
		if o.observe != nil {
			o.observe(state, to)
		}
		state = to
	}
	move(Parsing)

	var (
		res ParseResult
		err error
	)
	switch mode {
	case Strict:
		res, err = o.parseStrict(content, tmpl)
	default:
		res = o.parseLenient(content, tmpl)
	}
	move(res.State)

	slog.Debug("Parse finished", "mode", mode, "state", res.State, "strategy", res.Strategy, "confidence", res.Confidence)
	return res, err
}

func (o *Orchestrator) parseLenient(content string, tmpl *card.Template) ParseResult {
	r := o.pipeline.Parse(content, tmpl)
	res := ParseResult{Result: r, Mode: Lenient, State: Succeeded}
	if r.Success {
		return res
	}

	features := classify.Analyze(content)
	res.State = PreservedFallback
	res.Preserved = &PreservedContent{
		OriginalContent:    content,
		Attempts:           r.Attempts,
		FallbackTemplateID: classify.FallbackTemplate(features),
		RepairSuggestions:  classify.RepairSuggestions(features),
	}
	if res.Preserved.Attempts == nil {
		res.Preserved.Attempts = []card.Attempt{}
	}
	return res
}

func (o *Orchestrator) parseStrict(content string, tmpl *card.Template) (ParseResult, error) {
	prep := o.pipeline.Prepare(content, tmpl)

	fail := func(a card.Attempt, err error) (ParseResult, error) {
		r := o.pipeline.Complete(prep, a)
		r.Success = false
		r.Warnings = append(r.Warnings, err.Error())
		return ParseResult{Result: r, Mode: Strict, State: Failed}, err
	}

	if !tmpl.HasRegex() {
		err := card.NewError(card.PatternMismatch, "", "strict parsing needs a bound template with an expression")
		return fail(card.Failure(recognize.StrictRegex, err.Message), err)
	}
	for _, name := range tmpl.RequiredFields {
		if _, ok := tmpl.FieldMapping[name]; !ok {
			err := card.NewError(card.FieldMappingGap, name, "template %s requires it but maps no capture group", tmpl.ID)
			return fail(card.Failure(recognize.StrictRegex, err.Message), err)
		}
	}
	if _, _, err := o.pipeline.Registry().CompileTemplate(tmpl); err != nil {
		return fail(card.Failure(recognize.StrictRegex, err.Error()), fmt.Errorf("compiling template %s: %w", tmpl.ID, err))
	}

	a := o.strict.Execute(prep.Input)
	if a.Outcome == card.Failed {
		err := card.NewError(card.PatternMismatch, "", "template %s: %s", tmpl.ID, a.Reason)
		return fail(a, err)
	}
	for _, name := range tmpl.RequiredFields {
		if strings.TrimSpace(a.Fields[name]) == "" {
			a.Outcome = card.Partial
			err := card.NewError(card.RequiredFieldEmpty, name, "template %s matched but left it empty", tmpl.ID)
			return fail(a, err)
		}
	}

	a.Outcome = card.OK
	r := o.pipeline.Complete(prep, a)
	return ParseResult{Result: r, Mode: Strict, State: Succeeded}, nil
}
