package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chriscorrea/notecard/internal/preprocess"
)

// MetadataNormalizeText describes the normalize_text tool.
var MetadataNormalizeText = &mcp.Tool{
	Name: "normalize_text",
	Description: "Normalize note text the way recognition sees it: unify line endings, fold full-width " +
		"punctuation, space Markdown headings and collapse whitespace runs. Code, math and links are " +
		"protected and restored unchanged. Returns the processed text, the names of the transformations " +
		"that changed something and the protected spans.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Raw note text",
			},
			"keep_whitespace": map[string]interface{}{
				"type":        "boolean",
				"description": "Skip collapsing whitespace runs",
			},
			"keep_punctuation": map[string]interface{}{
				"type":        "boolean",
				"description": "Skip folding full-width punctuation",
			},
		},
	},
}

// InputNormalizeText is the input for the NormalizeText tool.
type InputNormalizeText struct {
	Text            string `json:"text"`
	KeepWhitespace  bool   `json:"keep_whitespace"`
	KeepPunctuation bool   `json:"keep_punctuation"`
}

// OutputNormalizeText is the output for the NormalizeText tool.
type OutputNormalizeText struct {
	Processed       string            `json:"processed"`
	Transformations []string          `json:"transformations_applied"`
	Preserved       []preprocess.Span `json:"preserved_spans"`
}

// NormalizeText runs the preprocessor and reports what it changed.
func (t *Tools) NormalizeText(ctx context.Context, _ *mcp.CallToolRequest, input InputNormalizeText) (*mcp.CallToolResult, OutputNormalizeText, error) {
	opts := preprocess.DefaultOptions()
	opts.CollapseWhitespace = !input.KeepWhitespace
	opts.NormalizePunctuation = !input.KeepPunctuation

	res := preprocess.Normalize(input.Text, opts)
	out := OutputNormalizeText{
		Processed:       res.Processed,
		Transformations: res.Transformations,
		Preserved:       res.Preserved,
	}
	if out.Transformations == nil {
		out.Transformations = []string{}
	}
	if out.Preserved == nil {
		out.Preserved = []preprocess.Span{}
	}
	return nil, out, nil
}
