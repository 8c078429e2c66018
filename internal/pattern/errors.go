package pattern

import (
	"fmt"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
)

// Severity ranks validator findings.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	// SeverityCritical findings reject the pattern
	SeverityCritical
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finding codes reported by validation.
const (
	CodeSyntax               = "syntax"
	CodeMissingID            = "missing-id"
	CodeDuplicateID          = "duplicate-id"
	CodeEmptyRegex           = "empty-regex"
	CodeGroupCount           = "group-count"
	CodeFieldMapping         = "field-mapping"
	CodeConfidenceRange      = "confidence-range"
	CodeNestedQuantifier     = "nested-quantifier"
	CodeOverlappingAlternate = "overlapping-alternation"
	CodeAdjacentWildcards    = "adjacent-wildcards"
	CodeLength               = "length"
	CodeTimeout              = "timeout"
	CodeTestCase             = "test-case"
)

// Finding is a single validation observation.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
}

// ValidationError reports why a pattern was rejected. It unwraps to a
// *card.Error so callers can match on card.ErrInvalidPattern or
// card.ErrFieldMappingGap.
type ValidationError struct {
	PatternID string
	Kind      card.ErrorKind
	Findings  []Finding
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		if f.Severity == SeverityCritical {
			parts = append(parts, f.Code+": "+f.Message)
		}
	}
	return fmt.Sprintf("pattern %q rejected (%s): %s", e.PatternID, e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return &card.Error{Kind: e.Kind, Message: e.PatternID}
}

// Critical returns the findings that caused the rejection.
func (e *ValidationError) Critical() []Finding {
	return critical(e.Findings)
}

// Has reports whether the error carries a finding with the given code.
func (e *ValidationError) Has(code string) bool {
	for _, f := range e.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func critical(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			out = append(out, f)
		}
	}
	return out
}

func hasCritical(findings []Finding) bool {
	return len(critical(findings)) > 0
}
