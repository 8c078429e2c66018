package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chriscorrea/notecard/internal/app"
	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/config"
	"github.com/chriscorrea/notecard/internal/dualmode"
	"github.com/chriscorrea/notecard/internal/pattern"
	"github.com/chriscorrea/notecard/internal/recognize"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// loadSettings reads the config file and applies command-line overrides
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Recognition.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("patterns-dir") {
		cfg.Patterns.Dir, _ = flags.GetString("patterns-dir")
	}
	if flags.Changed("length-unit") {
		cfg.Recognition.LengthUnit, _ = flags.GetString("length-unit")
	}
	if flags.Lookup("mode") != nil && flags.Changed("mode") {
		cfg.Recognition.Mode, _ = flags.GetString("mode")
	}
	if flags.Lookup("suggest-tags") != nil && flags.Changed("suggest-tags") {
		cfg.Output.SuggestTags, _ = flags.GetInt("suggest-tags")
	}
	switch {
	case flags.Changed("text"):
		cfg.Output.Format = "text"
	case flags.Changed("json"):
		cfg.Output.Format = "json"
	case flags.Changed("md"):
		cfg.Output.Format = "md"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// recognizer holds everything built from settings that parses notes
type recognizer struct {
	registry *pattern.Registry
	manager  *pattern.Manager
	orch     *dualmode.Orchestrator
}

// buildRecognizer creates the pattern registry, loads custom patterns and
// assembles the orchestrator
func buildRecognizer(cfg *config.Config, quiet bool) (*recognizer, error) {
	timeout, err := cfg.MatchTimeout()
	if err != nil {
		return nil, err
	}
	reg := pattern.NewDefaultRegistry(pattern.WithMatchTimeout(timeout))
	mgr := pattern.NewManager(reg)

	if dir := cfg.Patterns.Dir; dir != "" {
		report, err := mgr.LoadDirectory(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load custom patterns: %w", err)
		}
		warnImport(report, quiet)
		slog.Debug("Loaded custom patterns", "dir", dir, "patterns", len(report.Imported))
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	p, err := recognize.New(reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build recognition pipeline: %w", err)
	}
	return &recognizer{registry: reg, manager: mgr, orch: dualmode.New(p)}, nil
}

func warnImport(report pattern.ImportReport, quiet bool) {
	if quiet {
		return
	}
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "Warning: skipped custom pattern: %v\n", e)
	}
}

// loadTemplate reads a bound card template from a YAML or JSON file
func loadTemplate(path string) (*card.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var tmpl card.Template
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &tmpl)
	} else {
		err = yaml.Unmarshal(data, &tmpl)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	if tmpl.ID == "" {
		tmpl.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &tmpl, nil
}

// buildConfig constructs an app.Config from command flags and arguments
func buildConfig(cmd *cobra.Command, args []string, cfg *config.Config, rec *recognizer) (app.Config, error) {
	selector, _ := cmd.Flags().GetString("selector")
	readability, _ := cmd.Flags().GetBool("readability")
	templateFile, _ := cmd.Flags().GetString("template-file")
	batch, _ := cmd.Flags().GetBool("batch")
	search, _ := cmd.Flags().GetString("search")
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")
	includeAll, _ := cmd.Flags().GetBool("include-all")

	mode, err := dualmode.ParseMode(cfg.Recognition.Mode)
	if err != nil {
		return app.Config{}, err
	}
	outputFormat, err := app.ParseOutputFormat(cfg.Output.Format)
	if err != nil {
		return app.Config{}, err
	}

	var tmpl *card.Template
	if templateFile != "" {
		if tmpl, err = loadTemplate(templateFile); err != nil {
			return app.Config{}, err
		}
	}
	if mode == dualmode.Strict && tmpl == nil {
		return app.Config{}, fmt.Errorf("strict mode needs --template-file")
	}

	// use positional arguments as sources with smart detection
	var sources []string
	if len(args) == 0 {
		// no arguments provided - use stdin
		sources = append(sources, "-")
	} else {
		sources = args
	}

	return app.Config{
		Sources:      sources,
		Selector:     selector,
		Readability:  readability,
		Mode:         mode,
		Template:     tmpl,
		Batch:        batch,
		SearchQuery:  search,
		SuggestTags:  cfg.Output.SuggestTags,
		OutputFormat: outputFormat,
		Quiet:        quiet,
		Debug:        debug,
		IncludeAll:   includeAll,
		Orchestrator: rec.orch,
	}, nil
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// prepare runs the setup shared by every command
func prepare(cmd *cobra.Command) (*config.Config, *recognizer, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	quiet, _ := cmd.Flags().GetBool("quiet")
	setupLogger(debug)

	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	rec, err := buildRecognizer(cfg, quiet)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, rec, nil
}

var rootCmd = &cobra.Command{
	Use:   "notecard [sources...]",
	Short: "A CLI tool that turns notes into flashcards",
	Long: `Notecard recognizes question/answer flashcards in free-form notes. Sources may include local files, directories of notes, URLs, or standard input.

Examples:
  notecard card.md
  notecard --batch --suggest-tags 3 deck.md
  notecard --mode strict --template-file front-back.yaml card.txt
  pbpaste | notecard --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rec, err := prepare(cmd)
		if err != nil {
			return err
		}
		appConfig, err := buildConfig(cmd, args, cfg, rec)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// create context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := app.Run(ctx, appConfig)
		// strict failures still come with the cards that did parse
		fmt.Print(result)
		if err != nil {
			return fmt.Errorf("notecard failed: %w", err)
		}
		return nil
	},
}

func init() {
	// settings shared by every command
	rootCmd.PersistentFlags().String("config", "", "Path to notecard.toml (default: $NOTECARD_CONFIG or ./notecard.toml)")
	rootCmd.PersistentFlags().String("patterns-dir", "", "Directory of custom pattern files (.yaml, .yml, .json)")
	rootCmd.PersistentFlags().Float64("threshold", recognize.DefaultThreshold, "Confidence a strategy must exceed to be accepted")
	rootCmd.PersistentFlags().String("length-unit", "characters", "Length unit for match scoring: characters, words or tokens")

	// output format flags are mutually exclusive
	rootCmd.PersistentFlags().Bool("md", false, "Output in Markdown format (default)")
	rootCmd.PersistentFlags().Bool("text", false, "Output in plain text format")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.MarkFlagsMutuallyExclusive("md", "text", "json")

	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress output messages")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	// parsing flags
	rootCmd.Flags().String("mode", "lenient", "Parsing mode: lenient keeps unrecognized notes, strict requires --template-file to match")
	rootCmd.Flags().String("template-file", "", "Bound card template (YAML or JSON) with regex, fieldMapping and requiredFields")
	rootCmd.Flags().BoolP("batch", "b", false, "Split each source into one card per heading, question label or %%card%% marker")
	rootCmd.Flags().String("search", "", "Keep only cards matching keyword(s), most relevant first")
	rootCmd.Flags().Int("suggest-tags", 0, "Suggest up to N tags for cards without tags")

	// HTML import flags
	rootCmd.Flags().StringP("selector", "s", "", "CSS selector limiting HTML sources")
	rootCmd.Flags().Bool("readability", false, "Extract the main article of full HTML pages")
	rootCmd.Flags().BoolP("include-all", "i", false, "Keep boilerplate blocks of imported HTML pages")

	rootCmd.AddCommand(choiceCmd, patternsCmd, watchCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if !errors.As(err, &exit) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// exitError fails the command without printing, for commands that already
// reported their problems.
type exitError struct{ msg string }

func (e *exitError) Error() string { return e.msg }
