package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/dualmode"
)

// MetadataParseNote describes the parse_note tool.
var MetadataParseNote = &mcp.Tool{
	Name: "parse_note",
	Description: "Recognize a flashcard in a note. Returns the extracted fields (question, answer, tags, " +
		"options, correct_answer), the strategy and pattern that produced them, a confidence in [0,1] and " +
		"warnings. In lenient mode a note that cannot be structured is preserved whole in the notes field " +
		"and the result carries a fallback template and repair suggestions. Strict mode requires a template " +
		"with a regex and reports why it did not match.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Raw note text",
			},
			"mode": map[string]interface{}{
				"type":        "string",
				"description": "Parsing mode. Defaults to lenient.",
				"enum":        []string{"lenient", "strict"},
			},
			"template": map[string]interface{}{
				"type":        "object",
				"description": "Optional bound template: id, name, regex, flags, fieldMapping (field name to capture group) and requiredFields.",
			},
		},
	},
}

// InputParseNote is the input for the ParseNote tool.
type InputParseNote struct {
	Content  string         `json:"content"`
	Mode     string         `json:"mode"`
	Template *card.Template `json:"template"`
}

// OutputParseNote is the output for the ParseNote tool.
type OutputParseNote struct {
	Success    bool        `json:"success"`
	State      string      `json:"state"`
	Fields     card.Fields `json:"fields"`
	Confidence float64     `json:"confidence"`
	Method     string      `json:"method"`
	Strategy   string      `json:"strategy,omitempty"`
	PatternID  string      `json:"pattern_id,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	// Error is set when strict parsing rejected the note.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	// Fallback fields are set when lenient parsing preserved the note.
	FallbackTemplate  string   `json:"fallback_template,omitempty"`
	RepairSuggestions []string `json:"repair_suggestions,omitempty"`
}

// ParseNote runs the orchestrator over one note. A strict-mode rejection is
// part of the output rather than a tool error, so editors can show it inline.
func (t *Tools) ParseNote(ctx context.Context, _ *mcp.CallToolRequest, input InputParseNote) (*mcp.CallToolResult, OutputParseNote, error) {
	mode := dualmode.Lenient
	if input.Mode != "" {
		m, err := dualmode.ParseMode(input.Mode)
		if err != nil {
			return nil, OutputParseNote{}, err
		}
		mode = m
	}
	if input.Template != nil && input.Template.ID == "" {
		return nil, OutputParseNote{}, fmt.Errorf("template id is required")
	}

	res, err := t.orch.Parse(input.Content, mode, input.Template)
	out := OutputParseNote{
		Success:    res.Success,
		State:      res.State.String(),
		Fields:     res.Fields,
		Confidence: res.Confidence,
		Method:     res.Method.String(),
		Strategy:   res.Strategy,
		PatternID:  res.PatternID,
		Warnings:   res.Warnings,
	}
	if err != nil {
		out.Error = err.Error()
		var cerr *card.Error
		if errors.As(err, &cerr) {
			out.ErrorKind = cerr.Kind.String()
		}
	}
	if res.Preserved != nil {
		out.FallbackTemplate = res.Preserved.FallbackTemplateID
		out.RepairSuggestions = res.Preserved.RepairSuggestions
	}
	return nil, out, nil
}
