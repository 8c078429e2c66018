// Package config loads notecard settings.
// Sources, lowest to highest precedence: built-in defaults, notecard.toml,
// environment variables, then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chriscorrea/notecard/internal/boundary"
	"github.com/chriscorrea/notecard/internal/counter"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/recognize"
)

// FileName is the config file looked up in the working directory.
const FileName = "notecard.toml"

// Environment variables read by Load.
const (
	EnvConfig      = "NOTECARD_CONFIG"
	EnvThreshold   = "NOTECARD_THRESHOLD"
	EnvPatternsDir = "NOTECARD_PATTERNS_DIR"
	EnvMode        = "NOTECARD_MODE"
)

// Config holds all file-backed settings.
type Config struct {
	Recognition RecognitionConfig `toml:"recognition"`
	Patterns    PatternsConfig    `toml:"patterns"`
	Output      OutputConfig      `toml:"output"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// RecognitionConfig tunes the strategy chain.
type RecognitionConfig struct {
	Mode               string   `toml:"mode"`        // "lenient" (default) or "strict"
	Threshold          float64  `toml:"threshold"`   // acceptance threshold in [0,1]
	Strategies         []string `toml:"strategies"`  // chain order; empty keeps the default
	LengthUnit         string   `toml:"length_unit"` // "characters", "words" or "tokens"
	PreserveFormatting bool     `toml:"preserve_formatting"`
	QuestionStops      bool     `toml:"question_stops"`
}

// PatternsConfig locates custom patterns and limits matching.
type PatternsConfig struct {
	Dir          string   `toml:"dir"`
	MatchTimeout string   `toml:"match_timeout"` // Go duration, e.g. "1s"
	Disabled     []string `toml:"disabled"`      // pattern ids never matched
}

// OutputConfig sets rendering defaults.
type OutputConfig struct {
	Format      string `toml:"format"`       // "md", "text" or "json"
	SuggestTags int    `toml:"suggest_tags"` // tags suggested for untagged cards; 0 disables
}

// DefaultConfig returns a Config with all built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Recognition: RecognitionConfig{
			Mode:               "lenient",
			Threshold:          recognize.DefaultThreshold,
			LengthUnit:         counter.Characters.String(),
			PreserveFormatting: true,
			QuestionStops:      true,
		},
		Patterns: PatternsConfig{
			MatchTimeout: pattern.DefaultMatchTimeout.String(),
		},
		Output: OutputConfig{
			Format: "md",
		},
	}
}

// Load merges defaults, the config file and environment variables.
//
// path names the file explicitly. When empty, $NOTECARD_CONFIG is used, then
// notecard.toml in the working directory if it exists. An explicitly named
// file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path, explicit = FileName, false
	}

	meta, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		cfg.Path = path
		warnUnknownKeys(meta, path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		slog.Debug("No config file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfg.source(), err)
	}
	return cfg, nil
}

func (c *Config) source() string {
	if c.Path == "" {
		return "(defaults)"
	}
	return c.Path
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.Recognition.Threshold = t
	}
	if v := os.Getenv(EnvPatternsDir); v != "" {
		c.Patterns.Dir = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		c.Recognition.Mode = v
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if t := c.Recognition.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("threshold %.2f is outside [0,1]", t))
	}
	switch strings.ToLower(c.Recognition.Mode) {
	case "", "lenient", "strict":
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want lenient or strict)", c.Recognition.Mode))
	}
	if _, err := counter.ParseMethod(c.Recognition.LengthUnit); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MatchTimeout(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Format {
	case "", "md", "markdown", "text", "txt", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q (want md, text or json)", c.Output.Format))
	}
	if c.Output.SuggestTags < 0 {
		errs = append(errs, fmt.Errorf("suggest_tags must not be negative"))
	}
	return errors.Join(errs...)
}

// MatchTimeout parses the per-pattern match budget.
func (c *Config) MatchTimeout() (time.Duration, error) {
	if c.Patterns.MatchTimeout == "" {
		return pattern.DefaultMatchTimeout, nil
	}
	d, err := time.ParseDuration(c.Patterns.MatchTimeout)
	if err != nil {
		return 0, fmt.Errorf("match_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("match_timeout must be positive")
	}
	return d, nil
}

// PipelineOptions converts the recognition settings into pipeline options.
func (c *Config) PipelineOptions() ([]recognize.Option, error) {
	unit, err := counter.ParseMethod(c.Recognition.LengthUnit)
	if err != nil {
		return nil, err
	}
	opts := []recognize.Option{
		recognize.WithThreshold(c.Recognition.Threshold),
		recognize.WithLengthUnit(unit),
		recognize.WithDetector(boundary.NewDetector(
			boundary.WithPreserveFormatting(c.Recognition.PreserveFormatting),
			boundary.WithQuestionStops(c.Recognition.QuestionStops),
		)),
	}
	if len(c.Recognition.Strategies) > 0 {
		opts = append(opts, recognize.WithStrategyOrder(c.Recognition.Strategies...))
	}
	if len(c.Patterns.Disabled) > 0 {
		disabled := make(map[string]bool, len(c.Patterns.Disabled))
		for _, id := range c.Patterns.Disabled {
			disabled[id] = true
		}
		opts = append(opts, recognize.WithPatternFilter(func(p pattern.ContentPattern) bool {
			return !disabled[p.ID]
		}))
	}
	return opts, nil
}

// warnUnknownKeys logs keys the config file set that no setting reads.
func warnUnknownKeys(meta toml.MetaData, path string) {
	for _, key := range meta.Undecoded() {
		slog.Warn("Unknown config key ignored", "key", key.String(), "path", path)
	}
}
