// Package card holds the data model shared by every stage of note recognition:
// extracted field sets, parse results, strategy attempts and templates.
//
// Results are transient values created per call and owned by the caller; nothing
// in this package is persisted.
package card

import (
	"sort"
	"strings"
)

// Well-known field names produced by recognition.
const (
	FieldQuestion      = "question"
	FieldAnswer        = "answer"
	FieldTags          = "tags"
	FieldOptions       = "options"
	FieldCorrectAnswer = "correct_answer"
	FieldText          = "text"

	// FieldNotes always carries the full original note text.
	FieldNotes = "notes"
)

// Method identifies the family of technique that produced a result.
type Method int

const (
	// Regex results come from a compiled pattern match
	Regex Method = iota
	// Intelligent results come from structural or heuristic analysis
	Intelligent
	// Hybrid results are regex matches cross-checked by structural analysis
	Hybrid
)

// String returns the string representation of the method
func (m Method) String() string {
	switch m {
	case Regex:
		return "regex"
	case Intelligent:
		return "intelligent"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// MarshalText renders the method by name in JSON output.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Fields maps field names to extracted text.
type Fields map[string]string

// Clone returns a copy of f that is safe to mutate.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NonEmpty reports whether the named field holds non-whitespace text.
func (f Fields) NonEmpty(name string) bool {
	return strings.TrimSpace(f[name]) != ""
}

// Outcome is the variant tag of a strategy attempt.
type Outcome int

const (
	// Failed attempts produced nothing usable
	Failed Outcome = iota
	// Partial attempts produced some fields but not a complete card
	Partial
	// OK attempts produced a complete card
	OK
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Partial:
		return "partial"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Attempt records what a single recognition strategy produced.
type Attempt struct {
	Strategy   string   `json:"strategy"`
	Outcome    Outcome  `json:"outcome"`
	Method     Method   `json:"method"`
	Fields     Fields   `json:"fields,omitempty"`
	Confidence float64  `json:"confidence"`
	PatternID  string   `json:"pattern_id,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Succeeded reports whether the attempt produced a usable card.
func (a Attempt) Succeeded() bool {
	return a.Outcome == OK
}

// Failure builds a failed attempt for the named strategy.
func Failure(strategy, reason string) Attempt {
	return Attempt{Strategy: strategy, Outcome: Failed, Reason: reason}
}

// Result is the outcome of running the recognition pipeline over one note.
//
// OriginalContent and Fields[FieldNotes] are populated on every path.
type Result struct {
	Success         bool      `json:"success"`
	Fields          Fields    `json:"fields"`
	Confidence      float64   `json:"confidence"`
	Method          Method    `json:"method"`
	Strategy        string    `json:"strategy,omitempty"`
	PatternID       string    `json:"pattern_id,omitempty"`
	Warnings        []string  `json:"warnings,omitempty"`
	OriginalContent string    `json:"original_content"`
	Attempts        []Attempt `json:"attempts,omitempty"`
}

// Template is a bound card template supplied by external template storage.
type Template struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Regex          string         `json:"regex" yaml:"regex"`
	Flags          string         `json:"flags,omitempty" yaml:"flags,omitempty"`
	FieldMapping   map[string]int `json:"fieldMapping" yaml:"fieldMapping"`
	RequiredFields []string       `json:"requiredFields,omitempty" yaml:"requiredFields,omitempty"`
}

// HasRegex reports whether the template carries its own pattern.
func (t *Template) HasRegex() bool {
	return t != nil && strings.TrimSpace(t.Regex) != ""
}
