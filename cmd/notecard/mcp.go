package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chriscorrea/notecard/internal/tool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve recognition tools over MCP on stdin/stdout",
	Long: `Start a Model Context Protocol server exposing parse_note, normalize_text, check_pattern and parse_choice.
Custom patterns from the patterns directory are loaded once at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rec, err := prepare(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return tool.Serve(ctx, version, tool.New(rec.orch))
	},
}
