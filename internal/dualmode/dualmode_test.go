package dualmode_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/classify"
	"github.com/chriscorrea/notecard/internal/dualmode"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/recognize"
)

func newOrchestrator(t *testing.T, opts ...dualmode.Option) *dualmode.Orchestrator {
	t.Helper()
	p, err := recognize.New(pattern.NewDefaultRegistry())
	require.NoError(t, err)
	return dualmode.New(p, opts...)
}

func frontBack(regex string, required ...string) *card.Template {
	return &card.Template{
		ID:             "front-back",
		Name:           "Front and back",
		Regex:          regex,
		FieldMapping:   map[string]int{"front": 1, "back": 2},
		RequiredFields: required,
	}
}

func TestLenientSuccess(t *testing.T) {
	var transitions [][2]dualmode.State
	o := newOrchestrator(t, dualmode.WithObserver(func(from, to dualmode.State) {
		transitions = append(transitions, [2]dualmode.State{from, to})
	}))

	res, err := o.Parse("## What is X?\n\nX is Y.", dualmode.Lenient, nil)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, dualmode.Succeeded, res.State)
	assert.Nil(t, res.Preserved)
	assert.Equal(t, "What is X?", res.Fields[card.FieldQuestion])
	assert.Equal(t, [][2]dualmode.State{
		{dualmode.Idle, dualmode.Parsing},
		{dualmode.Parsing, dualmode.Succeeded},
	}, transitions)
}

func TestLenientEmpty(t *testing.T) {
	o := newOrchestrator(t)

	res, err := o.Parse("", dualmode.Lenient, nil)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, dualmode.PreservedFallback, res.State)
	require.NotNil(t, res.Preserved)
	assert.Equal(t, classify.TemplateEmergency, res.Preserved.FallbackTemplateID)
	assert.Equal(t, "", res.Preserved.OriginalContent)
	assert.NotEmpty(t, res.Preserved.RepairSuggestions)
	assert.NotNil(t, res.Preserved.Attempts)
}

func TestLenientUnrecognized(t *testing.T) {
	o := newOrchestrator(t)

	res, err := o.Parse("%%%", dualmode.Lenient, nil)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, dualmode.PreservedFallback, res.State)
	require.NotNil(t, res.Preserved)
	assert.Equal(t, "%%%", res.Preserved.OriginalContent)
	assert.Equal(t, "%%%", res.Fields[card.FieldNotes])
	assert.Len(t, res.Preserved.Attempts, len(o.Pipeline().Names()))
	assert.NotEmpty(t, res.Preserved.FallbackTemplateID)
	assert.NotEmpty(t, res.Preserved.RepairSuggestions)
}

func TestStrict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tmpl    *card.Template
		wantErr error
		field   string
	}{
		{
			name:    "match",
			content: "FRONT: hello\nBACK: world",
			tmpl:    frontBack(`^FRONT:(.*)\nBACK:(.*)$`, "front", "back"),
		},
		{
			name:    "required field empty",
			content: "FRONT: hello\nBACK:",
			tmpl:    frontBack(`^FRONT:(.*)\nBACK:(.*)$`, "front", "back"),
			wantErr: card.ErrRequiredFieldEmpty,
			field:   "back",
		},
		{
			name:    "optional field empty",
			content: "FRONT: hello\nBACK:",
			tmpl:    frontBack(`^FRONT:(.*)\nBACK:(.*)$`, "front"),
		},
		{
			name:    "no looser pattern",
			content: "## What is X?\n\nX is Y.",
			tmpl:    frontBack(`^FRONT:(.*)\nBACK:(.*)$`),
			wantErr: card.ErrPatternMismatch,
		},
		{
			name:    "no template",
			content: "## What is X?\n\nX is Y.",
			wantErr: card.ErrPatternMismatch,
		},
		{
			name:    "required field without capture group",
			content: "FRONT: hello\nBACK: world",
			tmpl:    frontBack(`^FRONT:(.*)\nBACK:(.*)$`, "front", "extra"),
			wantErr: card.ErrFieldMappingGap,
			field:   "extra",
		},
		{
			name:    "unsafe template",
			content: "aaaa",
			tmpl:    frontBack(`(a+)+(b)`),
			wantErr: card.ErrInvalidPattern,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t)

			res, err := o.Parse(tt.content, dualmode.Strict, tt.tmpl)

			assert.Equal(t, dualmode.Strict, res.Mode)
			assert.Equal(t, tt.content, res.OriginalContent)
			assert.Equal(t, tt.content, res.Fields[card.FieldNotes])
			assert.Nil(t, res.Preserved)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.True(t, res.Success)
				assert.Equal(t, dualmode.Succeeded, res.State)
				assert.Equal(t, "hello", res.Fields["front"])
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, res.Success)
			assert.Equal(t, dualmode.Failed, res.State)
			if tt.field != "" {
				var cerr *card.Error
				require.True(t, errors.As(err, &cerr))
				assert.Equal(t, tt.field, cerr.Field)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := dualmode.ParseMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, dualmode.Strict, m)

	m, err = dualmode.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, dualmode.Lenient, m)

	_, err = dualmode.ParseMode("loose")
	assert.Error(t, err)
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, dualmode.Idle.Terminal())
	assert.False(t, dualmode.Parsing.Terminal())
	assert.True(t, dualmode.Succeeded.Terminal())
	assert.True(t, dualmode.PreservedFallback.Terminal())
	assert.True(t, dualmode.Failed.Terminal())
}
