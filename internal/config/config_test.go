package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/config"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/recognize"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvThreshold, config.EnvPatternsDir, config.EnvMode} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, "lenient", cfg.Recognition.Mode)
	assert.Equal(t, recognize.DefaultThreshold, cfg.Recognition.Threshold)
	assert.True(t, cfg.Recognition.PreserveFormatting)
	assert.True(t, cfg.Recognition.QuestionStops)
	assert.Equal(t, "md", cfg.Output.Format)

	timeout, err := cfg.MatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, pattern.DefaultMatchTimeout, timeout)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, `
[recognition]
mode = "strict"
threshold = 0.7
strategies = ["multi-pattern", "boundary"]
length_unit = "words"

[patterns]
dir = "patterns"
match_timeout = "250ms"
disabled = ["paragraph-split"]

[output]
format = "json"
suggest_tags = 3
`)

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, config.FileName, cfg.Path)
	assert.Equal(t, "strict", cfg.Recognition.Mode)
	assert.Equal(t, 0.7, cfg.Recognition.Threshold)
	assert.Equal(t, []string{"multi-pattern", "boundary"}, cfg.Recognition.Strategies)
	assert.Equal(t, "patterns", cfg.Patterns.Dir)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Output.SuggestTags)
	// unset keys keep their defaults
	assert.True(t, cfg.Recognition.QuestionStops)

	timeout, err := cfg.MatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "[recognition]\nthreshold = 0.7\n")
	t.Setenv(config.EnvConfig, path)
	t.Setenv(config.EnvThreshold, "0.4")
	t.Setenv(config.EnvPatternsDir, "/tmp/patterns")
	t.Setenv(config.EnvMode, "strict")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 0.4, cfg.Recognition.Threshold)
	assert.Equal(t, "/tmp/patterns", cfg.Patterns.Dir)
	assert.Equal(t, "strict", cfg.Recognition.Mode)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "threshold out of range", body: "[recognition]\nthreshold = 1.5\n"},
		{name: "unknown mode", body: "[recognition]\nmode = \"loose\"\n"},
		{name: "unknown length unit", body: "[recognition]\nlength_unit = \"pages\"\n"},
		{name: "bad timeout", body: "[patterns]\nmatch_timeout = \"soon\"\n"},
		{name: "unknown format", body: "[output]\nformat = \"pdf\"\n"},
		{name: "malformed toml", body: "[recognition\n"},
		{name: "bad env threshold", body: "", env: map[string]string{config.EnvThreshold: "high"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, t.TempDir(), tt.body)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(path)

			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))

	assert.Error(t, err)
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Recognition.Threshold = 0.6
	cfg.Recognition.Strategies = []string{recognize.Boundary, recognize.MultiPattern}
	cfg.Patterns.Disabled = []string{pattern.H2QA}

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	p, err := recognize.New(pattern.NewDefaultRegistry(), opts...)
	require.NoError(t, err)

	assert.Equal(t, 0.6, p.Threshold())
	assert.Equal(t, []string{recognize.Boundary, recognize.MultiPattern}, p.Names())

	res := p.Parse("## What is X?\n\nX is Y.", nil)
	assert.Equal(t, recognize.Boundary, res.Strategy)
	assert.Equal(t, "X is Y.", res.Fields[card.FieldAnswer])

	cfg.Recognition.Strategies = []string{"unknown"}
	opts, err = cfg.PipelineOptions()
	require.NoError(t, err)
	_, err = recognize.New(pattern.NewDefaultRegistry(), opts...)
	assert.Error(t, err)
}
