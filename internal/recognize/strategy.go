package recognize

import (
	"fmt"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/language"
)

// Strategy names.
const (
	StrictRegex      = "strict-regex"
	MultiPattern     = "multi-pattern"
	Boundary         = "boundary"
	Hybrid           = "hybrid"
	RelaxedRegex     = "relaxed-regex"
	KeywordHeuristic = "keyword-heuristic"
)

// Input is what every strategy sees. Content is normalized with protected
// spans masked; fields extracted from it are restored by the pipeline.
type Input struct {
	Content  string
	Template *card.Template
	Language language.Language
}

// ParseStrategy is one way of recognizing a note. Execute never fails: a
// strategy that cannot help returns an attempt with the Failed outcome.
type ParseStrategy interface {
	Name() string
	Execute(in Input) card.Attempt
}

// outcome grades fields against the names a strategy meant to fill: OK when
// every one is non-empty, Partial when some are.
func outcome(fields card.Fields, names []string) card.Outcome {
	filled := 0
	for _, name := range names {
		if fields.NonEmpty(name) {
			filled++
		}
	}
	switch {
	case len(names) > 0 && filled == len(names):
		return card.OK
	case filled > 0:
		return card.Partial
	default:
		return card.Failed
	}
}

// emptyFieldWarnings names the mapped fields that came back empty.
func emptyFieldWarnings(fields card.Fields, names []string) []string {
	var out []string
	for _, name := range names {
		if !fields.NonEmpty(name) {
			out = append(out, fmt.Sprintf("field %q is empty", name))
		}
	}
	return out
}

func qaFields(question, answer string) card.Fields {
	return card.Fields{
		card.FieldQuestion: strings.TrimSpace(question),
		card.FieldAnswer:   strings.TrimSpace(answer),
	}
}

var qaNames = []string{card.FieldQuestion, card.FieldAnswer}

// ByName picks strategies from all in the order names lists them.
func ByName(all []ParseStrategy, names []string) ([]ParseStrategy, error) {
	index := make(map[string]ParseStrategy, len(all))
	for _, s := range all {
		index[s.Name()] = s
	}
	out := make([]ParseStrategy, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		s, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("strategy %q listed twice", name)
		}
		seen[name] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no strategies selected")
	}
	return out, nil
}
