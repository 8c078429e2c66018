// Package app contains the core application logic for the notecard CLI tool.
// It handles the main business logic separated from CLI concerns.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/chunk"
	"github.com/chriscorrea/notecard/internal/classify"
	"github.com/chriscorrea/notecard/internal/dualmode"
	"github.com/chriscorrea/notecard/internal/extract"
	"github.com/chriscorrea/notecard/internal/fetch"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/preprocess"
	"github.com/chriscorrea/notecard/internal/recognize"
	"github.com/chriscorrea/notecard/internal/spinner"
)

// OutputFormat defines the output format for results
type OutputFormat int

const (
	// markdown output format (default)
	Markdown OutputFormat = iota
	// plaintext output format
	Text
	// JSON output format
	JSON
)

// String returns the string representation of the output
func (f OutputFormat) String() string {
	switch f {
	case Markdown:
		return "Markdown"
	case Text:
		return "Text"
	case JSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// ParseOutputFormat maps a config file value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return Markdown, fmt.Errorf("unknown output format %q", s)
	}
}

// Config holds all configuration options for the notecard application.
type Config struct {
	Sources      []string       // URLs, file paths, directories, or "-" for stdin
	Selector     string         // CSS selector for HTML sources
	Readability  bool           // extract the main article of full HTML pages
	Mode         dualmode.Mode  // lenient (default) or strict
	Template     *card.Template // bound template; required for strict mode
	Batch        bool           // split each source into one card per block
	SearchQuery  string
	SuggestTags  int          // tags suggested for untagged cards; 0 disables
	OutputFormat OutputFormat // output format (md/txt/json)
	Quiet        bool         // suppress info messages
	Debug        bool
	IncludeAll   bool // keep boilerplate blocks of imported HTML pages

	// Orchestrator parses every card. Nil builds one over the built-in patterns.
	Orchestrator *dualmode.Orchestrator
}

// CardResult is one parsed card and where it came from.
type CardResult struct {
	dualmode.ParseResult
	Source string `json:"source"`
	// Line is the one-based line of the card within its source.
	Line          int      `json:"line"`
	Score         float64  `json:"score,omitempty"`
	SuggestedTags []string `json:"suggested_tags,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Report is the outcome of a run.
type Report struct {
	Cards []CardResult `json:"cards"`
	// Skipped counts boilerplate blocks dropped from imported pages.
	Skipped int `json:"skipped"`
	// Failed counts cards that were not recognized.
	Failed int `json:"failed"`
}

// Run executes the main notecard application logic with the given configuration.
//
// Processing Pipeline:
// 1. Load every source and convert HTML to Markdown (loadSources)
// 2. Split into cards when batching, then parse each card (parseCards)
// 3. Rank by a search query and suggest tags when configured
// 4. Render in the configured output format
//
// In strict mode the rendered report is returned together with an error when
// any card failed, so callers can print what did parse.
//
// ctx allows for cancellation and timeout control of long-running operations.
func Run(ctx context.Context, cfg Config) (string, error) {
	report, err := Parse(ctx, cfg)
	if err != nil {
		return "", err
	}

	out, err := Render(report, cfg.OutputFormat)
	if err != nil {
		return "", err
	}
	if cfg.Mode == dualmode.Strict && report.Failed > 0 {
		return out, fmt.Errorf("%d of %d cards failed strict parsing", report.Failed, len(report.Cards))
	}
	return out, nil
}

// Parse runs steps 1 to 3 of Run and returns the structured report.
func Parse(ctx context.Context, cfg Config) (*Report, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}
	orch, err := orchestrator(cfg)
	if err != nil {
		return nil, err
	}

	sources, err := fetch.ExpandSources(cfg.Sources)
	if err != nil {
		return nil, err
	}

	// step 1: load every source
	notes := loadSources(ctx, sources, cfg)
	if len(notes) == 0 {
		return nil, fmt.Errorf("no content extracted from any source")
	}

	// step 2: split and parse
	units, skipped := cardUnits(notes, cfg)
	report, err := parseCards(ctx, orch, units, cfg)
	if err != nil {
		return nil, err
	}
	report.Skipped = skipped

	// step 3: rank and suggest
	if query := strings.TrimSpace(cfg.SearchQuery); query != "" {
		report.Cards = rankCards(ctx, report.Cards, query, cfg.Quiet)
	}
	if cfg.SuggestTags > 0 {
		suggestTags(report.Cards, cfg.SuggestTags)
	}
	return report, nil
}

func orchestrator(cfg Config) (*dualmode.Orchestrator, error) {
	if cfg.Orchestrator != nil {
		return cfg.Orchestrator, nil
	}
	p, err := recognize.New(pattern.NewDefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to build recognition pipeline: %w", err)
	}
	return dualmode.New(p), nil
}

// note is the text of one loaded source.
type note struct {
	source string
	text   string
	html   bool // converted from HTML
}

// loadSources fetches every source, warning about and skipping the ones that fail.
func loadSources(ctx context.Context, sources []string, cfg Config) []note {
	var notes []note
	for _, source := range sources {
		n, err := processSource(ctx, source, cfg)
		if err != nil {
			if !cfg.Quiet {
				fmt.Fprintf(os.Stderr, "Warning: failed to process source %q: %v\n", source, err)
			}
			continue
		}
		notes = append(notes, n)
	}
	return notes
}

// processSource fetches content from a single source and converts HTML to Markdown
func processSource(ctx context.Context, source string, cfg Config) (note, error) {
	reader, err := fetch.GetContent(ctx, source)
	if err != nil {
		return note{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return note{}, fmt.Errorf("failed to read content: %w", err)
	}
	text := string(raw)
	if !extract.IsHTML(text) {
		return note{source: source, text: text}, nil
	}

	// parse source URL for readability (if it's a URL)
	var baseURL *url.URL
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		baseURL, _ = url.Parse(source) // ignore parse errors, will use nil
	}

	markdown, err := extract.ToMarkdown(text, extract.Options{
		Selector:    cfg.Selector,
		Readability: cfg.Readability && !cfg.IncludeAll,
		BaseURL:     baseURL,
	})
	if err != nil {
		return note{}, fmt.Errorf("failed to extract content: %w", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return note{}, fmt.Errorf("no content extracted")
	}
	return note{source: source, text: markdown, html: true}, nil
}

// unit is the text of one card before parsing.
type unit struct {
	source   string
	text     string
	line     int      // zero-based
	noteTags []string // frontmatter tags of the enclosing note
}

// cardUnits splits notes into cards. Whole notes are single cards unless
// batching; boilerplate blocks of imported pages are dropped unless includeAll.
func cardUnits(notes []note, cfg Config) ([]unit, int) {
	var units []unit
	skipped := 0
	classifier := classify.NewClassifier()

	for _, n := range notes {
		if !cfg.Batch {
			units = append(units, unit{source: n.source, text: n.text})
			continue
		}

		body, meta := preprocess.SplitFrontmatter(n.text)
		offset := strings.Count(n.text, "\n") - strings.Count(body, "\n")

		var blocks []chunk.Block
		for _, b := range chunk.SplitCards(body) {
			if b.Kind == chunk.Card && !b.Blank() {
				blocks = append(blocks, b)
			}
		}
		for i, b := range blocks {
			if n.html && !cfg.IncludeAll && classifier.IsExtraneous(b.Text, i, len(blocks)) {
				slog.Debug("Skipping boilerplate block", "source", n.source, "line", b.Line+offset+1)
				skipped++
				continue
			}
			units = append(units, unit{
				source:   n.source,
				text:     b.Text,
				line:     b.Line + offset,
				noteTags: meta.TagList(),
			})
		}
	}
	return units, skipped
}

// parseCards runs the orchestrator over every unit, showing progress on a
// terminal for larger batches.
func parseCards(ctx context.Context, orch *dualmode.Orchestrator, units []unit, cfg Config) (*Report, error) {
	report := &Report{Cards: make([]CardResult, 0, len(units))}

	var sp *spinner.Spinner
	if !cfg.Quiet && len(units) > 1 && spinner.Enabled(os.Stderr) {
		sp = spinner.New(ctx, os.Stderr, "Parsing cards...")
		sp.Start()
		defer sp.Stop()
	}

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("parsing cancelled: %w", err)
		}

		res, err := orch.Parse(u.text, cfg.Mode, cfg.Template)
		c := CardResult{ParseResult: res, Source: u.source, Line: u.line + 1}
		if err != nil {
			c.Error = err.Error()
		}
		if !res.Success {
			report.Failed++
		}
		if res.Success && len(u.noteTags) > 0 && strings.TrimSpace(res.Fields[card.FieldTags]) == "" {
			c.Fields[card.FieldTags] = strings.Join(u.noteTags, ", ")
		}
		report.Cards = append(report.Cards, c)

		if sp != nil {
			sp.SetProgress(i+1, len(units))
		}
	}

	slog.Debug("Parsed cards", "cards", len(report.Cards), "failed", report.Failed, "mode", cfg.Mode)
	return report, nil
}
