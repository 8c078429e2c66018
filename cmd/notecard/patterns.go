package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chriscorrea/notecard/internal/pattern"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage recognition patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom patterns in match order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rec, err := prepare(cmd)
		if err != nil {
			return err
		}
		listPatterns(cmd.OutOrStdout(), rec.registry.All())
		return nil
	},
}

var patternsValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check custom pattern files without installing them",
	Long: `Compile every record, check its field mapping and screen it for catastrophic backtracking.
Records with test cases must match them. Exits non-zero when any record is rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rec, err := prepare(cmd)
		if err != nil {
			return err
		}

		mgr := scratchManager(rec)
		failed := 0
		for _, path := range args {
			report := mgr.LoadFile(path)
			failed += report.Failed()
			writeReport(cmd.OutOrStdout(), path, report)
		}
		if failed > 0 {
			return &exitError{msg: fmt.Sprintf("%d pattern records rejected", failed)}
		}
		return nil
	},
}

var patternsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a pattern file and copy it into the patterns directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rec, err := prepare(cmd)
		if err != nil {
			return err
		}
		dir := cfg.Patterns.Dir
		if dir == "" {
			return fmt.Errorf("no patterns directory: set --patterns-dir or [patterns] dir")
		}

		path := args[0]
		report := scratchManager(rec).LoadFile(path)
		writeReport(cmd.OutOrStdout(), path, report)
		if report.Failed() > 0 {
			return &exitError{msg: "pattern file rejected"}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		dest := filepath.Join(dir, filepath.Base(path))
		if _, err := os.Stat(dest); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", dest)
			}
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed %s\n", dest)
		return nil
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every custom pattern of the patterns directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rec, err := prepare(cmd)
		if err != nil {
			return err
		}

		var data []byte
		if cfg.Output.Format == "json" {
			data, err = rec.manager.Export()
		} else {
			data, err = rec.manager.ExportYAML()
		}
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

func init() {
	patternsImportCmd.Flags().Bool("force", false, "Replace an existing file of the same name")
	patternsCmd.AddCommand(patternsListCmd, patternsValidateCmd, patternsImportCmd, patternsExportCmd)
}

// scratchManager validates files against the built-ins only, so patterns
// already installed from the patterns directory do not clash with them.
func scratchManager(rec *recognizer) *pattern.Manager {
	return pattern.NewManager(pattern.NewDefaultRegistry(pattern.WithMatchTimeout(rec.registry.MatchTimeout())))
}

func listPatterns(w io.Writer, patterns []pattern.ContentPattern) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPRIORITY\tCONFIDENCE\tFIELDS")
	for _, p := range patterns {
		id := p.ID
		if p.Custom {
			id += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\n", id, p.Category, p.Priority, p.BaseConfidence, strings.Join(p.Fields(), ","))
	}
	tw.Flush()
}

func writeReport(w io.Writer, path string, report pattern.ImportReport) {
	for _, id := range report.Imported {
		fmt.Fprintf(w, "ok    %s: %s\n", path, id)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "FAIL  %s: %s\n", path, recordProblem(e))
	}
}

// recordProblem renders the critical findings of a rejected record, one per line.
func recordProblem(e *pattern.RecordError) string {
	var verr *pattern.ValidationError
	if !errors.As(e, &verr) {
		return e.Error()
	}
	lines := []string{fmt.Sprintf("record %d (%s) rejected", e.Index, e.ID)}
	for _, f := range verr.Critical() {
		lines = append(lines, "      "+f.String())
	}
	return strings.Join(lines, "\n")
}
