package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chriscorrea/notecard/internal/choice"
)

// MetadataParseChoice describes the parse_choice tool.
var MetadataParseChoice = &mcp.Tool{
	Name: "parse_choice",
	Description: "Parse the options of a multiple-choice card and resolve the correct answer against them. " +
		"Options may be labelled with letters or numbers in ASCII or full-width form (A. / b) / 3: / (D)). " +
		"The answer may list several labels or repeat an option's text. Returns the options with the " +
		"correct ones marked, the correct ids and warnings about gaps or unknown labels.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"options"},
		"properties": map[string]interface{}{
			"options": map[string]interface{}{
				"type":        "string",
				"description": "Option lines, one per line",
			},
			"correct_answer": map[string]interface{}{
				"type":        "string",
				"description": "Correct answer notation, e.g. \"B\", \"A, C\" or \"Answer: 2\"",
			},
		},
	},
}

// InputParseChoice is the input for the ParseChoice tool.
type InputParseChoice struct {
	Options       string `json:"options"`
	CorrectAnswer string `json:"correct_answer"`
}

// OutputParseChoice is the output for the ParseChoice tool.
type OutputParseChoice struct {
	Options    []choice.Option `json:"options"`
	CorrectIDs []string        `json:"correct_ids"`
	IsMultiple bool            `json:"is_multiple"`
	Warnings   []string        `json:"warnings"`
}

// ParseChoice parses options and, when given, the correct answer. Unknown
// answer labels become warnings; text without any option is an error.
func (t *Tools) ParseChoice(ctx context.Context, _ *mcp.CallToolRequest, input InputParseChoice) (*mcp.CallToolResult, OutputParseChoice, error) {
	if input.CorrectAnswer == "" {
		opts := choice.ParseOptions(input.Options)
		if len(opts.Options) == 0 {
			return nil, OutputParseChoice{}, choice.ErrNoOptions
		}
		return nil, OutputParseChoice{
			Options:    opts.Options,
			CorrectIDs: []string{},
			Warnings:   nonNil(opts.Warnings),
		}, nil
	}

	q, err := choice.ParseChoiceQuestion(input.Options, input.CorrectAnswer)
	switch {
	case errors.Is(err, choice.ErrNoOptions):
		return nil, OutputParseChoice{}, err
	case err != nil:
		q.Warnings = append(q.Warnings, fmt.Sprintf("correct answer: %v", err))
	}
	return nil, OutputParseChoice{
		Options:    q.Options,
		CorrectIDs: nonNil(q.CorrectIDs),
		IsMultiple: q.IsMultiple,
		Warnings:   nonNil(q.Warnings),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
