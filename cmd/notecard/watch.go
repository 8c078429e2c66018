package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chriscorrea/notecard/internal/app"
	"github.com/chriscorrea/notecard/internal/pattern"
)

var watchCmd = &cobra.Command{
	Use:   "watch [sources...]",
	Short: "Reload custom patterns as they change and re-parse sources",
	Long: `Watch the patterns directory. Every time a pattern file is written, it is reloaded and the given sources are parsed again, so a pattern can be tuned against real notes.

Examples:
  notecard watch --patterns-dir ./patterns card.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rec, err := prepare(cmd)
		if err != nil {
			return err
		}
		dir := cfg.Patterns.Dir
		if dir == "" {
			return fmt.Errorf("no patterns directory: set --patterns-dir or [patterns] dir")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var appConfig app.Config
		if len(args) > 0 {
			if appConfig, err = buildConfig(cmd, args, cfg, rec); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		reparse := func() {
			if len(args) == 0 {
				return
			}
			result, err := app.Run(ctx, appConfig)
			fmt.Fprint(out, result)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		rec.manager.SetOnChange(func(path string, report pattern.ImportReport) {
			writeReport(out, path, report)
			reparse()
		})

		reparse()
		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", dir)
		if err := rec.manager.Watch(ctx, dir); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	// the root parsing flags apply to the re-parsed sources
	watchCmd.Flags().String("mode", "lenient", "Parsing mode: lenient or strict")
	watchCmd.Flags().String("template-file", "", "Bound card template (YAML or JSON)")
	watchCmd.Flags().BoolP("batch", "b", false, "Split each source into one card per block")
	watchCmd.Flags().String("search", "", "Keep only cards matching keyword(s)")
	watchCmd.Flags().Int("suggest-tags", 0, "Suggest up to N tags for cards without tags")
	watchCmd.Flags().StringP("selector", "s", "", "CSS selector limiting HTML sources")
	watchCmd.Flags().Bool("readability", false, "Extract the main article of full HTML pages")
	watchCmd.Flags().BoolP("include-all", "i", false, "Keep boilerplate blocks of imported HTML pages")
}
