package recognize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/notecard/internal/boundary"
	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/language"
	"github.com/chriscorrea/notecard/internal/match"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/recognize"
)

func newPipeline(t *testing.T, opts ...recognize.Option) *recognize.Pipeline {
	t.Helper()
	p, err := recognize.New(pattern.NewDefaultRegistry(), opts...)
	require.NoError(t, err)
	return p
}

func hasWarning(warnings []string, sub string) bool {
	for _, w := range warnings {
		if strings.Contains(w, sub) {
			return true
		}
	}
	return false
}

func TestParseKeepsOriginal(t *testing.T) {
	p := newPipeline(t)
	inputs := []string{
		"",
		"   \n\t ",
		"## What is X?\n\nX is Y.",
		"Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V.",
		"Go was released in {{c1::2009}}.",
		"%%% ### ***",
		"---\ntags: [go]\n---\nfront matter only",
		"## Example\n\n```\nQ: not a label\n```",
		"问题：什么是递归？\n\n答案：函数调用自身。",
		"just one line of text",
	}
	for _, in := range inputs {
		res := p.Parse(in, nil)
		assert.Equal(t, in, res.OriginalContent, "input %q", in)
		assert.Equal(t, in, res.Fields[card.FieldNotes], "input %q", in)
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestParseHeading(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("## What is X?\n\nX is Y.", nil)

	assert.True(t, res.Success)
	assert.Equal(t, recognize.MultiPattern, res.Strategy)
	assert.Equal(t, pattern.H2QA, res.PatternID)
	assert.Equal(t, card.Regex, res.Method)
	assert.Equal(t, "What is X?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "X is Y.", res.Fields[card.FieldAnswer])
	assert.GreaterOrEqual(t, res.Confidence, 0.9)
	assert.Empty(t, res.Warnings)
}

func TestParseStopsAtNextHeading(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("## Q1?\nans1\n### sub\nmore\n## Q2?\nans2", nil)

	assert.True(t, res.Success)
	assert.Equal(t, pattern.H2QA, res.PatternID)
	assert.Equal(t, "Q1?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "ans1\n### sub\nmore", res.Fields[card.FieldAnswer])
	assert.NotContains(t, res.Fields[card.FieldAnswer], "Q2")
	assert.True(t, hasWarning(res.Warnings, "possible truncation"), "warnings: %v", res.Warnings)
}

func TestParseChineseLabels(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("问题：什么是递归？\n\n答案：函数调用自身。", nil)

	assert.True(t, res.Success)
	assert.Equal(t, pattern.QAColonChinese, res.PatternID)
	assert.Equal(t, "什么是递归？", res.Fields[card.FieldQuestion])
	assert.Equal(t, "函数调用自身。", res.Fields[card.FieldAnswer])
}

func TestParseStackedPairs(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V.", nil)

	assert.True(t, res.Success)
	assert.Equal(t, "What is Y?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "Y is Z.", res.Fields[card.FieldAnswer])
	assert.True(t, hasWarning(res.Warnings, "possible truncation"), "warnings: %v", res.Warnings)
}

func TestParseChoice(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("Capital of France?\nA. Paris\nB. London\nC. Berlin\nAnswer: b", nil)

	assert.True(t, res.Success)
	assert.Equal(t, pattern.Choice, res.PatternID)
	assert.Equal(t, "Capital of France?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "B", res.Fields[card.FieldCorrectAnswer])
	assert.False(t, hasWarning(res.Warnings, "possible truncation"))
}

func TestParseTags(t *testing.T) {
	p := newPipeline(t)
	in := "---\ntags: [go, regex]\n---\n## What is X?\n\nX is Y.\n\n#study #Go"

	res := p.Parse(in, nil)

	assert.True(t, res.Success)
	assert.Equal(t, "What is X?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "X is Y.", res.Fields[card.FieldAnswer])
	assert.Equal(t, "go, regex, study", res.Fields[card.FieldTags])
	assert.Equal(t, in, res.Fields[card.FieldNotes])
}

func TestParseSingleHashtag(t *testing.T) {
	p := newPipeline(t)

	alone := p.Parse("#Recursion", nil)
	assert.False(t, hasWarning(alone.Warnings, "content is empty"), "warnings: %v", alone.Warnings)
	assert.Empty(t, alone.Fields[card.FieldTags])
	assert.Contains(t, alone.Fields[card.FieldQuestion]+alone.Fields[card.FieldAnswer], "Recursion")

	below := p.Parse("## What is X?\n\nX is Y.\n\n#recursion", nil)
	assert.Equal(t, "X is Y.", below.Fields[card.FieldAnswer])
	assert.Equal(t, "recursion", below.Fields[card.FieldTags])
}

func TestParseRestoresCode(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("## What does `x := 1` do?\n\nDeclares x.", nil)

	assert.True(t, res.Success)
	assert.Equal(t, "What does `x := 1` do?", res.Fields[card.FieldQuestion])
	assert.Equal(t, "Declares x.", res.Fields[card.FieldAnswer])

	res = p.Parse("## Example\n\n```\nQ: not a label\n```", nil)
	assert.Equal(t, "Example", res.Fields[card.FieldQuestion])
	assert.Equal(t, "```\nQ: not a label\n```", res.Fields[card.FieldAnswer])
}

func TestParseProtective(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("%%%", nil)

	assert.False(t, res.Success)
	assert.Equal(t, recognize.Protective, res.Strategy)
	assert.Equal(t, recognize.ProtectiveConfidence, res.Confidence)
	assert.Equal(t, "%%%", res.Fields[card.FieldQuestion])
	assert.Empty(t, res.Fields[card.FieldAnswer])
	assert.Equal(t, "%%%", res.Fields[card.FieldNotes])
	assert.Len(t, res.Attempts, len(p.Names()))

	empty := p.Parse("", nil)
	assert.False(t, empty.Success)
	assert.Empty(t, empty.Attempts)
	assert.True(t, hasWarning(empty.Warnings, "content is empty"))
}

func TestParseBelowThreshold(t *testing.T) {
	p := newPipeline(t, recognize.WithThreshold(1))

	res := p.Parse("## What is X?\n\nX is Y.", nil)

	assert.True(t, res.Success)
	assert.Equal(t, recognize.MultiPattern, res.Strategy)
	assert.True(t, hasWarning(res.Warnings, "low confidence"), "warnings: %v", res.Warnings)
	assert.Len(t, res.Attempts, len(p.Names()))
}

type fakeStrategy struct {
	name    string
	attempt card.Attempt
	calls   *int
}

func (f fakeStrategy) Name() string { return f.name }

func (f fakeStrategy) Execute(recognize.Input) card.Attempt {
	*f.calls++
	return f.attempt
}

func TestParseStrategyChain(t *testing.T) {
	var lowCalls, highCalls, lateCalls int
	low := fakeStrategy{name: "low", calls: &lowCalls, attempt: card.Attempt{
		Outcome: card.OK, Confidence: 0.4,
		Fields: card.Fields{card.FieldQuestion: "low q", card.FieldAnswer: "low a"},
	}}
	high := fakeStrategy{name: "high", calls: &highCalls, attempt: card.Attempt{
		Outcome: card.OK, Confidence: 0.7,
		Fields: card.Fields{card.FieldQuestion: "high q", card.FieldAnswer: "high a"},
	}}
	late := fakeStrategy{name: "late", calls: &lateCalls, attempt: card.Attempt{Outcome: card.OK, Confidence: 0.9}}

	p, err := recognize.New(pattern.NewDefaultRegistry(), recognize.WithStrategies(low, high, late))
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "high", "late"}, p.Names())

	res := p.Parse("anything", nil)

	assert.Equal(t, "high", res.Strategy)
	assert.Equal(t, "high q", res.Fields[card.FieldQuestion])
	assert.Equal(t, 1, lowCalls)
	assert.Equal(t, 1, highCalls)
	assert.Zero(t, lateCalls, "chain stops at the first accepted attempt")
}

func TestParseKeepsBestPartial(t *testing.T) {
	var calls int
	partial := fakeStrategy{name: "partial", calls: &calls, attempt: card.Attempt{
		Outcome: card.Partial, Confidence: 0.6,
		Fields: card.Fields{card.FieldQuestion: "q", card.FieldAnswer: ""},
	}}
	failed := fakeStrategy{name: "failed", calls: &calls, attempt: card.Failure("failed", "nothing")}

	p, err := recognize.New(pattern.NewDefaultRegistry(), recognize.WithStrategies(partial, failed))
	require.NoError(t, err)

	res := p.Parse("first line\nsecond line", nil)

	assert.False(t, res.Success)
	assert.Equal(t, recognize.Protective, res.Strategy)
	assert.Equal(t, "first line", res.Fields[card.FieldQuestion])
	assert.Equal(t, "second line", res.Fields[card.FieldAnswer])
	assert.True(t, hasWarning(res.Warnings, "best partial result came from partial"))
}

func TestNewStrategyOrder(t *testing.T) {
	p := newPipeline(t, recognize.WithStrategyOrder(recognize.Boundary))
	assert.Equal(t, []string{recognize.Boundary}, p.Names())

	res := p.Parse("## What is X?\n\nX is Y.", nil)
	assert.Equal(t, recognize.Boundary, res.Strategy)
	assert.Equal(t, card.Intelligent, res.Method)
	assert.Equal(t, "X is Y.", res.Fields[card.FieldAnswer])

	_, err := recognize.New(pattern.NewDefaultRegistry(), recognize.WithStrategyOrder("nope"))
	assert.Error(t, err)

	_, err = recognize.New(pattern.NewDefaultRegistry(), recognize.WithStrategyOrder(recognize.Boundary, recognize.Boundary))
	assert.Error(t, err)

	_, err = recognize.New(pattern.NewDefaultRegistry(), recognize.WithStrategies())
	assert.Error(t, err)
}

func TestHybridExtendsTruncatedAnswer(t *testing.T) {
	reg := pattern.NewRegistry()
	_, err := reg.Register(pattern.ContentPattern{
		ID:             "first-paragraph-line",
		Regex:          `^## (.+)\n\n(.+)`,
		FieldMapping:   map[string]int{card.FieldQuestion: 1, card.FieldAnswer: 2},
		Priority:       10,
		BaseConfidence: 0.9,
		Category:       pattern.CategoryHeading,
	})
	require.NoError(t, err)

	h := recognize.NewHybrid(match.New(reg), boundary.NewDetector())
	a := h.Execute(recognize.Input{
		Content:  "## What is X?\n\nX is Y.\nMore about X.",
		Language: language.English,
	})

	assert.Equal(t, card.OK, a.Outcome)
	assert.Equal(t, card.Hybrid, a.Method)
	assert.Equal(t, "What is X?", a.Fields[card.FieldQuestion])
	assert.Equal(t, "X is Y.\nMore about X.", a.Fields[card.FieldAnswer])
	assert.True(t, hasWarning(a.Warnings, "answer extended"), "warnings: %v", a.Warnings)
}

func TestHybridAgreement(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	h := recognize.NewHybrid(match.New(reg), boundary.NewDetector())
	multi := recognize.NewMultiPattern(match.New(reg))
	in := recognize.Input{Content: "## What is X?\n\nX is Y.", Language: language.English}

	a := h.Execute(in)
	m := multi.Execute(in)

	assert.Equal(t, "X is Y.", a.Fields[card.FieldAnswer])
	assert.GreaterOrEqual(t, a.Confidence, m.Confidence)
	assert.Empty(t, a.Warnings)
}

func frontBack(regex string) *card.Template {
	return &card.Template{
		ID:           "t1",
		Name:         "Front and back",
		Regex:        regex,
		FieldMapping: map[string]int{"front": 1, "back": 2},
	}
}

func TestStrictRegex(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	s := recognize.NewStrictRegex(reg, match.DefaultLengthRule())
	tmpl := frontBack(`^FRONT: (.+)\nBACK: (.+)$`)

	a := s.Execute(recognize.Input{Content: "FRONT: hello\nBACK: world", Template: tmpl, Language: language.English})
	assert.Equal(t, card.OK, a.Outcome)
	assert.Equal(t, "template:t1", a.PatternID)
	assert.Equal(t, "hello", a.Fields["front"])
	assert.Equal(t, "world", a.Fields["back"])

	a = s.Execute(recognize.Input{Content: "front: hello\nback: world", Template: tmpl})
	assert.Equal(t, card.Failed, a.Outcome)
	assert.Equal(t, "template expression did not match", a.Reason)

	a = s.Execute(recognize.Input{Content: "FRONT: hello"})
	assert.Equal(t, card.Failed, a.Outcome)
	assert.Equal(t, "no bound template expression", a.Reason)

	empty := frontBack(`^FRONT:(.*)\nBACK:(.*)$`)
	a = s.Execute(recognize.Input{Content: "FRONT: hello\nBACK:", Template: empty})
	assert.Equal(t, card.Partial, a.Outcome)
	assert.True(t, hasWarning(a.Warnings, `"back"`))
}

func TestParseWithTemplate(t *testing.T) {
	p := newPipeline(t)

	res := p.Parse("FRONT: hello\nBACK: world", frontBack(`^FRONT: (.+)\nBACK: (.+)$`))

	assert.True(t, res.Success)
	assert.Equal(t, recognize.StrictRegex, res.Strategy)
	assert.Equal(t, "hello", res.Fields["front"])
}

func TestRelaxedRegex(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	s := recognize.NewRelaxedRegex(reg, match.DefaultLengthRule())

	a := s.Execute(recognize.Input{
		Content:  "front: hello\nback: world",
		Template: frontBack(`^FRONT: (.+)\nBACK: (.+)$`),
		Language: language.English,
	})
	assert.Equal(t, card.OK, a.Outcome)
	assert.Equal(t, "template:t1:relaxed", a.PatternID)
	assert.Equal(t, "hello", a.Fields["front"])
	assert.True(t, hasWarning(a.Warnings, "without anchors"))

	a = s.Execute(recognize.Input{
		Content:  "Some preamble\nQuestion - What is X?\nX is Y.",
		Language: language.English,
	})
	assert.Equal(t, card.OK, a.Outcome)
	assert.Equal(t, "relaxed-labels", a.PatternID)
	assert.Equal(t, "What is X?", a.Fields[card.FieldQuestion])
	assert.Equal(t, "X is Y.", a.Fields[card.FieldAnswer])
	assert.Less(t, a.Confidence, 0.8)
}

func TestKeywordHeuristic(t *testing.T) {
	s := recognize.NewKeywordHeuristic()

	tests := []struct {
		name     string
		in       recognize.Input
		question string
		answer   string
	}{
		{
			name:     "question line",
			in:       recognize.Input{Content: "Some context first\nHow does the TCP handshake work?\nSYN, SYN-ACK, ACK.", Language: language.English},
			question: "How does the TCP handshake work?",
			answer:   "SYN, SYN-ACK, ACK.",
		},
		{
			name:     "sentences",
			in:       recognize.Input{Content: "I wonder why the sky is blue? It is because of Rayleigh scattering.", Language: language.English},
			question: "I wonder why the sky is blue?",
			answer:   "It is because of Rayleigh scattering.",
		},
		{
			name:     "chinese sentences",
			in:       recognize.Input{Content: "我想知道什么是递归？就是函数调用自身。", Language: language.Chinese},
			question: "我想知道什么是递归？",
			answer:   "就是函数调用自身。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := s.Execute(tt.in)
			assert.Equal(t, card.OK, a.Outcome)
			assert.Equal(t, tt.question, a.Fields[card.FieldQuestion])
			assert.Equal(t, tt.answer, a.Fields[card.FieldAnswer])
			assert.Less(t, a.Confidence, recognize.DefaultThreshold+0.1)
		})
	}

	a := s.Execute(recognize.Input{Content: "no question here at all"})
	assert.Equal(t, card.Failed, a.Outcome)
}

func TestByName(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	m := match.New(reg)
	all := recognize.DefaultStrategies(reg, m, boundary.NewDetector())

	got, err := recognize.ByName(all, []string{recognize.Hybrid, recognize.StrictRegex})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recognize.Hybrid, got[0].Name())
	assert.Equal(t, recognize.StrictRegex, got[1].Name())

	_, err = recognize.ByName(all, []string{"missing"})
	assert.Error(t, err)
}

func TestPatternFilter(t *testing.T) {
	p := newPipeline(t, recognize.WithPatternFilter(func(cp pattern.ContentPattern) bool {
		return cp.ID != pattern.H2QA
	}))

	res := p.Parse("## What is X?\n\nX is Y.", nil)

	assert.True(t, res.Success)
	assert.NotEqual(t, pattern.H2QA, res.PatternID)
	assert.Equal(t, "X is Y.", res.Fields[card.FieldAnswer])
}
