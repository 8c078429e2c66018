package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chriscorrea/notecard/internal/choice"
	"github.com/chriscorrea/notecard/internal/extract"
	"github.com/chriscorrea/notecard/internal/fetch"
)

var choiceCmd = &cobra.Command{
	Use:   "choice [source]",
	Short: "Parse multiple-choice options and resolve the correct answer",
	Long: `Parse option lines (A. / b) / 3: / (D), ASCII or full-width) from a file, URL or standard input and mark the correct ones.

Examples:
  notecard choice options.txt --answer "B"
  printf 'A. Paris\nB. London\n' | notecard choice --answer "A" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := prepare(cmd)
		if err != nil {
			return err
		}
		answer, _ := cmd.Flags().GetString("answer")

		source := "-"
		if len(args) == 1 {
			source = args[0]
		}
		text, err := readNote(cmd.Context(), source)
		if err != nil {
			return err
		}

		q, err := choice.ParseChoiceQuestion(text, answer)
		switch {
		case errors.Is(err, choice.ErrNoOptions):
			return err
		case errors.Is(err, choice.ErrNoAnswer) && answer == "":
			// options only
		case err != nil:
			q.Warnings = append(q.Warnings, err.Error())
		}

		out := cmd.OutOrStdout()
		if cfg.Output.Format == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		}
		writeChoice(out, q)
		return nil
	},
}

func init() {
	choiceCmd.Flags().StringP("answer", "a", "", "Correct answer notation, e.g. \"B\", \"A, C\" or \"Answer: 2\"")
}

// readNote loads one source and converts HTML to Markdown
func readNote(ctx context.Context, source string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reader, err := fetch.GetContent(ctx, source)
	if err != nil {
		return "", fmt.Errorf("failed to fetch content: %w", err)
	}
	defer reader.Close()
	return extract.Note(reader, extract.Options{})
}

func writeChoice(w io.Writer, q choice.Question) {
	for _, o := range q.Options {
		mark := " "
		if o.IsCorrect {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s. %s\n", mark, o.ID, strings.ReplaceAll(o.Content, "\n", "\n      "))
	}
	if len(q.CorrectIDs) > 0 {
		fmt.Fprintf(w, "Answer: %s\n", strings.Join(q.CorrectIDs, ", "))
	}
	for _, warn := range q.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
