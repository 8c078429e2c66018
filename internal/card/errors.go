package card

import "fmt"

// ErrorKind classifies recognition failures.
type ErrorKind int

const (
	// PatternMismatch means no registered or bound pattern matched
	PatternMismatch ErrorKind = iota + 1
	// LowConfidence means a match was found below the acceptance threshold
	LowConfidence
	// InvalidPattern covers regex syntax errors and complexity rejections
	InvalidPattern
	// FieldMappingGap means a field references a capture group that does not exist
	FieldMappingGap
	// TruncationRisk means recovered content covers too little of the input
	TruncationRisk
	// RequiredFieldEmpty means a strict-mode template field came back empty
	RequiredFieldEmpty
)

// String returns the string representation of the kind
func (k ErrorKind) String() string {
	switch k {
	case PatternMismatch:
		return "pattern mismatch"
	case LowConfidence:
		return "low confidence"
	case InvalidPattern:
		return "invalid pattern"
	case FieldMappingGap:
		return "field mapping gap"
	case TruncationRisk:
		return "truncation risk"
	case RequiredFieldEmpty:
		return "required field empty"
	default:
		return "unknown"
	}
}

// Error is a classified recognition error.
type Error struct {
	Kind    ErrorKind
	Field   string // offending field, when the kind concerns one
	Message string
	Err     error
}

// Sentinels for errors.Is; matching compares kinds only.
var (
	ErrPatternMismatch    = &Error{Kind: PatternMismatch}
	ErrLowConfidence      = &Error{Kind: LowConfidence}
	ErrInvalidPattern     = &Error{Kind: InvalidPattern}
	ErrFieldMappingGap    = &Error{Kind: FieldMappingGap}
	ErrTruncationRisk     = &Error{Kind: TruncationRisk}
	ErrRequiredFieldEmpty = &Error{Kind: RequiredFieldEmpty}
)

// NewError builds a classified error with a formatted message.
func NewError(kind ErrorKind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
