package boundary_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/notecard/internal/boundary"
	"github.com/chriscorrea/notecard/internal/card"
)

func TestSegment(t *testing.T) {
	content := "# Title\nintro\n---\nQ: a\nA: b\nmore\n\n## Sub"
	sections := boundary.Segment(content)

	kinds := make([]boundary.Kind, len(sections))
	for i, s := range sections {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []boundary.Kind{
		boundary.Heading, boundary.Content, boundary.Separator,
		boundary.Content, boundary.Content, boundary.Heading,
	}, kinds)

	assert.Equal(t, 1, sections[0].Level)
	assert.Equal(t, "Title", sections[0].Title)
	assert.Equal(t, "A: b\nmore\n", sections[4].Text)
	assert.Equal(t, 2, sections[5].Level)

	// spans are contiguous and the text reconstructs the input
	texts := make([]string, len(sections))
	prev := 0
	for i, s := range sections {
		assert.Equal(t, prev, s.Span.Start, "section %d", i)
		prev = s.Span.End
		texts[i] = s.Text
	}
	assert.Equal(t, len(strings.Split(content, "\n")), prev)
	assert.Equal(t, content, strings.Join(texts, "\n"))
}

func TestSegmentCRLF(t *testing.T) {
	sections := boundary.Segment("## Q\r\nbody\r\n")
	require.Len(t, sections, 2)
	assert.Equal(t, "body\n", sections[1].Text)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		opts         []boundary.Option
		wantQuestion string
		wantAnswer   string
		wantOrigin   boundary.Origin
		wantStop     boundary.Stop
	}{
		{
			name:         "stacked labels stop at the next question",
			content:      "Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V.",
			wantQuestion: "What is Y?",
			wantAnswer:   "Y is Z.",
			wantOrigin:   boundary.OriginLabel,
			wantStop:     boundary.StopQuestion,
		},
		{
			name:         "sub-headings stay in the answer",
			content:      "## What is X?\n\nX is Y.\n\n### Detail\nMore detail.\n## Next?\nother",
			wantQuestion: "What is X?",
			wantAnswer:   "X is Y.\n\n### Detail\nMore detail.",
			wantOrigin:   boundary.OriginHeading,
			wantStop:     boundary.StopHeading,
		},
		{
			name:         "sub-heading titles without markup",
			content:      "## What is X?\n\nX is Y.\n\n### Detail\nMore detail.",
			opts:         []boundary.Option{boundary.WithPreserveFormatting(false)},
			wantQuestion: "What is X?",
			wantAnswer:   "X is Y.\n\nDetail\nMore detail.",
			wantOrigin:   boundary.OriginHeading,
			wantStop:     boundary.StopEnd,
		},
		{
			name:         "separator ends the answer",
			content:      "# Term\nDefinition\n---\nunrelated",
			wantQuestion: "Term",
			wantAnswer:   "Definition",
			wantOrigin:   boundary.OriginHeading,
			wantStop:     boundary.StopSeparator,
		},
		{
			name:         "question stops can be disabled",
			content:      "Q: What is Y?\nA: Y is Z.\nQ: What is W?",
			opts:         []boundary.Option{boundary.WithQuestionStops(false)},
			wantQuestion: "What is Y?",
			wantAnswer:   "Y is Z.\nQ: What is W?",
			wantOrigin:   boundary.OriginLabel,
			wantStop:     boundary.StopEnd,
		},
		{
			name:         "multi-line labeled question",
			content:      "Q: Consider the list\n[3,1,2]\nA: sorted it reads [1,2,3]",
			wantQuestion: "Consider the list\n[3,1,2]",
			wantAnswer:   "sorted it reads [1,2,3]",
			wantOrigin:   boundary.OriginLabel,
			wantStop:     boundary.StopEnd,
		},
		{
			name:         "chinese labels",
			content:      "问题:什么是递归？\n答案:函数调用自身。",
			wantQuestion: "什么是递归？",
			wantAnswer:   "函数调用自身。",
			wantOrigin:   boundary.OriginLabel,
			wantStop:     boundary.StopEnd,
		},
		{
			name:         "question mark line",
			content:      "Why is the sky blue?\nRayleigh scattering.",
			wantQuestion: "Why is the sky blue?",
			wantAnswer:   "Rayleigh scattering.",
			wantOrigin:   boundary.OriginQuestion,
			wantStop:     boundary.StopEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := boundary.NewDetector(tt.opts...).Analyze(tt.content)
			require.True(t, res.Found())
			assert.Equal(t, tt.wantQuestion, res.Question)
			assert.Equal(t, tt.wantAnswer, res.Answer)
			assert.Equal(t, tt.wantOrigin, res.Origin)
			assert.Equal(t, tt.wantStop, res.Stop)
			assert.Greater(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestAnalyzeWarnings(t *testing.T) {
	d := boundary.NewDetector()

	res := d.Analyze("")
	assert.False(t, res.Found())
	assert.Equal(t, 0.0, res.Confidence)
	assert.Contains(t, res.Warnings, "content is empty")

	res = d.Analyze("plain text only")
	assert.False(t, res.Found())
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotEmpty(t, res.Warnings)

	res = d.Analyze("Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V.")
	assert.NotEmpty(t, res.Warnings, "the second pair is reported")

	res = d.Analyze("## Lonely heading?")
	assert.Empty(t, res.Answer)
	assert.Contains(t, res.Warnings, "answer is empty")
}

func TestAnalyzeConfidenceOrdering(t *testing.T) {
	d := boundary.NewDetector()
	headed := d.Analyze("## What is X?\n\nX is Y.")
	bare := d.Analyze("What is X?\nX is Y.")

	assert.InDelta(t, 0.85, headed.Confidence, 1e-9)
	assert.Greater(t, headed.Confidence, bare.Confidence, "structural cues raise confidence")
}

func TestValidateCompleteness(t *testing.T) {
	content := "Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V."
	res := boundary.NewDetector().Analyze(content)

	c := res.Completeness(content)
	assert.InDelta(t, 0.5, c.Coverage, 1e-9)
	assert.True(t, c.Truncated())
	assert.True(t, errors.Is(c.Err(), card.ErrTruncationRisk))

	full := boundary.ValidateCompleteness("## What is X?\n\n**X** is Y.", "What is X?", "X is Y.")
	assert.Equal(t, 1.0, full.Coverage)
	assert.False(t, full.Truncated())
	assert.NoError(t, full.Err())

	assert.Equal(t, 1.0, boundary.ValidateCompleteness("", "", "").Coverage)
}

func TestCoverageNotWorseThanNaiveSplit(t *testing.T) {
	inputs := []string{
		"## What is X?\n\nX is Y.",
		"# Caching\n\nKeep results.\n\n## Why\nSpeed.\n\n### Costs\n- memory\n- staleness",
		"### Deep heading\nline one\nline two\n\n#### Deeper\nmore",
		"# Term\n**bold** definition\nwith detail",
	}
	d := boundary.NewDetector()
	for _, in := range inputs {
		res := d.Analyze(in)
		q, a := boundary.NaiveSplit(in)
		detected := res.Completeness(in).Coverage
		naive := boundary.ValidateCompleteness(in, q, a).Coverage
		assert.GreaterOrEqual(t, detected, naive, in)
	}
}

func TestNaiveSplit(t *testing.T) {
	q, a := boundary.NaiveSplit("\n first \nsecond\nthird\n")
	assert.Equal(t, "first", q)
	assert.Equal(t, "second\nthird", a)

	q, a = boundary.NaiveSplit("   ")
	assert.Empty(t, q)
	assert.Empty(t, a)
}
