package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant as MCP tools over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing research_chat, get_report
and reset_thread. Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	rt, logger, err := runtimeFromEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	defer func() { _ = logger.Sync() }()

	rt.Reaper.Start()
	defer rt.Reaper.Stop()

	logger.Info("starting MCP server over stdio")
	if err := mcpserver.NewServer(rt.Orchestrator, logger.Named("mcp")).Run(cmd.Context()); err != nil {
		logger.Error("MCP server stopped", zap.Error(err))
		return err
	}
	return nil
}
