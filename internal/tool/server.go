// Package tool exposes note recognition over the Model Context Protocol so
// editors can ask for card hints while a note is being written.
package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chriscorrea/notecard/internal/dualmode"
	"github.com/chriscorrea/notecard/internal/pattern"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "notecard"

// Tools holds the recognizer state shared by every tool handler.
type Tools struct {
	orch     *dualmode.Orchestrator
	registry *pattern.Registry
}

// New returns tools backed by orch. Pattern checks use the orchestrator's
// registry so match timeouts and validator limits agree with parsing.
func New(orch *dualmode.Orchestrator) *Tools {
	return &Tools{
		orch:     orch,
		registry: orch.Pipeline().Registry(),
	}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(version string, t *Tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	mcp.AddTool(server, MetadataParseNote, t.ParseNote)
	mcp.AddTool(server, MetadataNormalizeText, t.NormalizeText)
	mcp.AddTool(server, MetadataCheckPattern, t.CheckPattern)
	mcp.AddTool(server, MetadataParseChoice, t.ParseChoice)
	return server
}

// Serve runs the server over stdin/stdout until ctx is cancelled or the
// client disconnects.
func Serve(ctx context.Context, version string, t *Tools) error {
	slog.Debug("Starting MCP server", "name", ServerName, "version", version)
	if err := NewServer(version, t).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
