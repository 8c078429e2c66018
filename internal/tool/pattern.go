package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chriscorrea/notecard/internal/pattern"
)

// MetadataCheckPattern describes the check_pattern tool.
var MetadataCheckPattern = &mcp.Tool{
	Name: "check_pattern",
	Description: "Check a custom recognition pattern before saving it. The expression is compiled, its " +
		"field mapping is checked against its capture groups and it is screened for catastrophic " +
		"backtracking. When sample text is given the pattern is applied to it and the captured fields " +
		"are returned. Critical findings mean the pattern would be rejected.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"regex", "field_mapping"},
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "string",
				"description": "Pattern id. Defaults to \"check\".",
			},
			"regex": map[string]interface{}{
				"type":        "string",
				"description": "Regular expression",
			},
			"flags": map[string]interface{}{
				"type":        "string",
				"description": "Option letters: i (ignore case), m (multiline), s (dot matches newline)",
			},
			"field_mapping": map[string]interface{}{
				"type":                 "object",
				"description":          "Field name to capture group number",
				"additionalProperties": map[string]interface{}{"type": "integer"},
			},
			"sample": map[string]interface{}{
				"type":        "string",
				"description": "Optional note text to apply the pattern to",
			},
		},
	},
}

// InputCheckPattern is the input for the CheckPattern tool.
type InputCheckPattern struct {
	ID           string         `json:"id"`
	Regex        string         `json:"regex"`
	Flags        string         `json:"flags"`
	FieldMapping map[string]int `json:"field_mapping"`
	Sample       string         `json:"sample"`
}

// OutputCheckPattern is the output for the CheckPattern tool.
type OutputCheckPattern struct {
	Valid    bool              `json:"valid"`
	Findings []pattern.Finding `json:"findings"`
	// Matched and Fields report the sample match, when a sample was given.
	Matched bool              `json:"matched"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// CheckPattern validates a user pattern without registering it.
func (t *Tools) CheckPattern(ctx context.Context, _ *mcp.CallToolRequest, input InputCheckPattern) (*mcp.CallToolResult, OutputCheckPattern, error) {
	p := pattern.ContentPattern{
		ID:             input.ID,
		Regex:          input.Regex,
		Flags:          input.Flags,
		FieldMapping:   input.FieldMapping,
		BaseConfidence: 1,
		Category:       pattern.CategoryCustom,
		Custom:         true,
	}
	if p.ID == "" {
		p.ID = "check"
	}

	out := OutputCheckPattern{Findings: []pattern.Finding{}}
	re, err := t.registry.Validate(p)
	if err != nil {
		var verr *pattern.ValidationError
		if !errors.As(err, &verr) {
			return nil, OutputCheckPattern{}, err
		}
		out.Findings = append(out.Findings, verr.Findings...)
		return nil, out, nil
	}
	out.Valid = true

	// warnings do not fail validation, so collect them separately
	if opts, err := p.Options(); err == nil {
		out.Findings = append(out.Findings, pattern.NewSafetyValidator().Check(p.Regex, opts)...)
	}

	if input.Sample == "" {
		return nil, out, nil
	}
	capture, err := pattern.Apply(re, p, input.Sample)
	if err != nil {
		return nil, OutputCheckPattern{}, fmt.Errorf("sample: %w", err)
	}
	if capture != nil {
		out.Matched = true
		out.Fields = capture.Fields
	}
	return nil, out, nil
}
