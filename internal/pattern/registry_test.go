package pattern_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/pattern"
)

func qa() map[string]int {
	return map[string]int{card.FieldQuestion: 1, card.FieldAnswer: 2}
}

func TestRegisterRejectsNestedQuantifier(t *testing.T) {
	reg := pattern.NewRegistry()

	id, err := reg.Register(pattern.ContentPattern{
		ID:             "evil",
		Regex:          "(a+)+",
		FieldMapping:   map[string]int{card.FieldQuestion: 1},
		BaseConfidence: 0.8,
		Custom:         true,
	})
	require.Error(t, err)
	assert.Empty(t, id)

	var verr *pattern.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has(pattern.CodeNestedQuantifier))
	require.NotEmpty(t, verr.Critical())
	assert.Equal(t, pattern.SeverityCritical, verr.Critical()[0].Severity)
	assert.ErrorIs(t, err, card.ErrInvalidPattern)
	assert.Equal(t, 0, reg.Len())
}

func TestRegisterAcceptsHeadingPattern(t *testing.T) {
	reg := pattern.NewRegistry()

	id, err := reg.Register(pattern.ContentPattern{
		ID:             "my-h2",
		Regex:          `^## (.+)\n([\s\S]*)$`,
		FieldMapping:   qa(),
		BaseConfidence: 0.9,
		Custom:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, "my-h2", id)

	re, err := reg.Compile(id)
	require.NoError(t, err)
	p, ok := reg.Get(id)
	require.True(t, ok)

	capture, err := pattern.Apply(re, p, "## Title\nBody text")
	require.NoError(t, err)
	require.NotNil(t, capture)
	assert.Equal(t, "Title", capture.Fields[card.FieldQuestion])
	assert.Equal(t, "Body text", capture.Fields[card.FieldAnswer])
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		pattern  pattern.ContentPattern
		wantCode string
		wantKind error
	}{
		{
			name:     "syntax error",
			pattern:  pattern.ContentPattern{ID: "p", Regex: "(unclosed", FieldMapping: map[string]int{"question": 1}, Custom: true},
			wantCode: pattern.CodeSyntax,
			wantKind: card.ErrInvalidPattern,
		},
		{
			name:     "mapping beyond groups",
			pattern:  pattern.ContentPattern{ID: "p", Regex: `^(.+)$`, FieldMapping: qa()},
			wantCode: pattern.CodeFieldMapping,
			wantKind: card.ErrFieldMappingGap,
		},
		{
			name:     "declared group count mismatch",
			pattern:  pattern.ContentPattern{ID: "p", Regex: `^(.+)\n(.+)$`, GroupCount: 3, FieldMapping: qa()},
			wantCode: pattern.CodeGroupCount,
			wantKind: card.ErrInvalidPattern,
		},
		{
			name:     "empty mapping",
			pattern:  pattern.ContentPattern{ID: "p", Regex: `^(.+)$`},
			wantCode: pattern.CodeFieldMapping,
			wantKind: card.ErrFieldMappingGap,
		},
		{
			name:     "missing id",
			pattern:  pattern.ContentPattern{Regex: `^(.+)$`, FieldMapping: map[string]int{"text": 1}},
			wantCode: pattern.CodeMissingID,
			wantKind: card.ErrInvalidPattern,
		},
		{
			name:     "confidence out of range",
			pattern:  pattern.ContentPattern{ID: "p", Regex: `^(.+)$`, FieldMapping: map[string]int{"text": 1}, BaseConfidence: 1.5},
			wantCode: pattern.CodeConfidenceRange,
			wantKind: card.ErrInvalidPattern,
		},
		{
			name:     "unknown flag",
			pattern:  pattern.ContentPattern{ID: "p", Regex: `^(.+)$`, Flags: "x", FieldMapping: map[string]int{"text": 1}},
			wantCode: pattern.CodeSyntax,
			wantKind: card.ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pattern.NewRegistry().Register(tt.pattern)
			require.Error(t, err)

			var verr *pattern.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tt.wantCode), "findings: %v", verr.Findings)
			assert.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestRegisterDuplicateID(t *testing.T) {
	reg := pattern.NewRegistry()
	p := pattern.ContentPattern{ID: "dup", Regex: `^(.+)$`, FieldMapping: map[string]int{"text": 1}}

	_, err := reg.Register(p)
	require.NoError(t, err)
	_, err = reg.Register(p)
	require.Error(t, err)

	var verr *pattern.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has(pattern.CodeDuplicateID))
}

func TestTimeoutRejectsCatastrophicAlternation(t *testing.T) {
	v := pattern.NewSafetyValidator()
	v.Budget = 100 * time.Millisecond
	reg := pattern.NewRegistry(pattern.WithValidator(v))

	_, err := reg.Register(pattern.ContentPattern{
		ID:           "fib",
		Regex:        `^(a|aa)+$`,
		FieldMapping: map[string]int{"text": 1},
		Custom:       true,
	})
	require.Error(t, err)

	var verr *pattern.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has(pattern.CodeTimeout), "findings: %v", verr.Findings)
}

func TestSafetyValidatorStaticScan(t *testing.T) {
	tests := []struct {
		expr         string
		wantCritical bool
		wantCode     string
	}{
		{`(a+)+`, true, pattern.CodeNestedQuantifier},
		{`(a*)*`, true, pattern.CodeNestedQuantifier},
		{`(?:\d{2,})+`, true, pattern.CodeNestedQuantifier},
		{`((ab)+x)*`, true, pattern.CodeNestedQuantifier},
		{`(a|a)*`, true, pattern.CodeOverlappingAlternate},
		{`(ab|ac)+`, false, pattern.CodeOverlappingAlternate},
		{`(a{1,3})+`, false, ""},
		{`\(a+\)+`, false, ""},
		{`[(a+)+]`, false, ""},
		{`^## (.+)\n([\s\S]*)$`, false, ""},
		{`.*.*=x`, false, pattern.CodeAdjacentWildcards},
	}

	v := pattern.NewSafetyValidator()
	v.Budget = 200 * time.Millisecond
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			findings := v.Check(tt.expr, 0)

			var critical bool
			codes := map[string]bool{}
			for _, f := range findings {
				codes[f.Code] = true
				if f.Severity == pattern.SeverityCritical {
					critical = true
				}
			}
			assert.Equal(t, tt.wantCritical, critical, "findings: %v", findings)
			if tt.wantCode != "" {
				assert.True(t, codes[tt.wantCode], "findings: %v", findings)
			}
		})
	}
}

func TestSafetyValidatorRejectsLongExpressions(t *testing.T) {
	v := pattern.NewSafetyValidator()
	v.RejectLength = 10
	findings := v.Check("abcdefghijklmnop", 0)
	require.Len(t, findings, 1)
	assert.Equal(t, pattern.CodeLength, findings[0].Code)
	assert.Equal(t, pattern.SeverityCritical, findings[0].Severity)
}

func TestAllOrdering(t *testing.T) {
	reg := pattern.NewRegistry()
	for _, p := range []pattern.ContentPattern{
		{ID: "low", Regex: `(x)`, FieldMapping: map[string]int{"text": 1}, Priority: 1},
		{ID: "high-first", Regex: `(x)`, FieldMapping: map[string]int{"text": 1}, Priority: 10},
		{ID: "high-second", Regex: `(x)`, FieldMapping: map[string]int{"text": 1}, Priority: 10},
	} {
		_, err := reg.Register(p)
		require.NoError(t, err)
	}

	ids := func() []string {
		var out []string
		for _, p := range reg.All() {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []string{"high-first", "high-second", "low"}, ids())

	// updating keeps registration order among equal priorities
	require.NoError(t, reg.Update(pattern.ContentPattern{ID: "high-first", Regex: `(y)`, FieldMapping: map[string]int{"text": 1}, Priority: 10}))
	assert.Equal(t, []string{"high-first", "high-second", "low"}, ids())

	snap := reg.Snapshot()
	require.Len(t, snap, 3)
	assert.Less(t, snap[0].Order, snap[1].Order)
	ok, err := snap[0].Regex.MatchString("y")
	require.NoError(t, err)
	assert.True(t, ok, "snapshot must see the updated expression")
}

func TestCompileCacheInvalidation(t *testing.T) {
	reg := pattern.NewRegistry()
	_, err := reg.Register(pattern.ContentPattern{ID: "p", Regex: `(a)`, FieldMapping: map[string]int{"text": 1}})
	require.NoError(t, err)

	first, err := reg.Compile("p")
	require.NoError(t, err)
	second, err := reg.Compile("p")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, reg.Update(pattern.ContentPattern{ID: "p", Regex: `(b)`, FieldMapping: map[string]int{"text": 1}}))
	third, err := reg.Compile("p")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, reg.MatchTimeout(), third.MatchTimeout)

	require.NoError(t, reg.Delete("p"))
	_, err = reg.Compile("p")
	assert.Error(t, err)
	assert.Error(t, reg.Delete("p"))
	assert.Error(t, reg.Update(pattern.ContentPattern{ID: "p", Regex: `(b)`, FieldMapping: map[string]int{"text": 1}}))
}

func TestBuiltinsMatchTheirExamples(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	require.Equal(t, len(pattern.Builtins()), reg.Len())

	for _, p := range reg.All() {
		re, err := reg.Compile(p.ID)
		require.NoError(t, err)
		for _, ex := range p.Examples {
			t.Run(p.ID, func(t *testing.T) {
				capture, err := pattern.Apply(re, p, ex)
				require.NoError(t, err)
				require.NotNil(t, capture, "example %q", ex)
				for _, name := range p.Fields() {
					assert.NotEmpty(t, capture.Fields[name], "field %s of %q", name, ex)
				}
			})
		}
	}
}

func TestBuiltinExtraction(t *testing.T) {
	reg := pattern.NewDefaultRegistry()

	tests := []struct {
		id      string
		content string
		want    card.Fields
	}{
		{
			id:      pattern.H2QA,
			content: "## What is X?\n\nX is Y.",
			want:    card.Fields{"question": "What is X?", "answer": "X is Y."},
		},
		{
			id:      pattern.H2QA,
			content: "## Q1?\nans1\n### sub\nmore\n## Q2?\nans2",
			want:    card.Fields{"question": "Q1?", "answer": "ans1\n### sub\nmore"},
		},
		{
			id:      pattern.H1QA,
			content: "# Q1?\nans1\n## sub\n# Q2?\nans2",
			want:    card.Fields{"question": "Q1?", "answer": "ans1\n## sub"},
		},
		{
			id:      pattern.HeadingQA,
			content: "#### Deep?\nBody\n##### deeper\nx\n### Up?\ny",
			want:    card.Fields{"question": "Deep?", "answer": "Body\n##### deeper\nx"},
		},
		{
			id:      pattern.HeadingQA,
			content: "##### Only?\nBody\n###### deeper",
			want:    card.Fields{"question": "Only?", "answer": "Body\n###### deeper"},
		},
		{
			id:      pattern.QAColonEnglish,
			content: "Q: What is Y?\nA: Y is Z.\nQ: What is W?\nA: W is V.",
			want:    card.Fields{"question": "What is Y?", "answer": "Y is Z."},
		},
		{
			id:      pattern.QAColonEnglish,
			content: "**Question:** Multi\nline?\n**Answer:** first\n\nsecond",
			want:    card.Fields{"question": "Multi\nline?", "answer": "first\n\nsecond"},
		},
		{
			id:      pattern.QAColonChinese,
			content: "问题:什么是递归？\n\n答案:函数调用自身。",
			want:    card.Fields{"question": "什么是递归？", "answer": "函数调用自身。"},
		},
		{
			id:      pattern.Choice,
			content: "Capital of France?\nA. Paris\nB. London\nC. Berlin\nAnswer: A",
			want:    card.Fields{"question": "Capital of France?", "options": "A. Paris\nB. London\nC. Berlin", "correct_answer": "A"},
		},
		{
			id:      pattern.Cloze,
			content: "The capital of France is {{c1::Paris}}.",
			want:    card.Fields{"text": "The capital of France is {{c1::Paris}}."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, ok := reg.Get(tt.id)
			require.True(t, ok)
			re, err := reg.Compile(tt.id)
			require.NoError(t, err)

			capture, err := pattern.Apply(re, p, tt.content)
			require.NoError(t, err)
			require.NotNil(t, capture)
			assert.Equal(t, tt.want, capture.Fields)
		})
	}
}

func TestInlineDoubleColonSkipsCloze(t *testing.T) {
	reg := pattern.NewDefaultRegistry()
	p, _ := reg.Get(pattern.InlineDoubleColon)
	re, err := reg.Compile(p.ID)
	require.NoError(t, err)

	capture, err := pattern.Apply(re, p, "Paris is the {{c1::capital}}")
	require.NoError(t, err)
	assert.Nil(t, capture)
}

func TestFromTemplate(t *testing.T) {
	p := pattern.FromTemplate(&card.Template{ID: "basic", Regex: `^(.+)$`, FieldMapping: map[string]int{"front": 1}})
	assert.Equal(t, "template:basic", p.ID)
	assert.True(t, p.Custom)
	assert.Equal(t, []string{"front"}, p.Fields())
}
