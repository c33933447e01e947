package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helical-labs/medwatch/internal/adapters/driving/mcp"
	"github.com/helical-labs/medwatch/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The ingestion pipeline runs alongside the server, so retrievals see a live
index. By default the server communicates over stdio using JSON-RPC; use
--port to serve HTTP instead, which enables testing with the MCP Inspector
web UI and remote access.

Examples:
  # Stdio mode (for MCP-compatible assistants)
  medwatch mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  medwatch mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.close()

	ports := &mcp.Ports{
		Retrieval: s.retrieval,
		Alerts:    s.sink,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Keep the index live while the server runs.
	if len(s.cfg.Sources) > 0 {
		go func() {
			if err := s.pipeline.Run(ctx); err != nil {
				logger.Warn("pipeline stopped: %v", err)
			}
		}()
		defer s.pipeline.Stop() //nolint:errcheck
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
