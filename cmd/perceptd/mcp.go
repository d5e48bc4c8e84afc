package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/perceptd/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run perceptd as an MCP server on stdio",
	Long: `Run an MCP server over stdin/stdout exposing analyze_utterance and
recall_memory. Logs go to stderr.

Example MCP client entry:
  {"command": "perceptd", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(ctx, cfg, depOptions{memory: true, events: true, telemetry: true, stderrLogs: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "perceptd",
		Version: version,
		Logger:  deps.logger.Underlying().Named("mcp"),
	}, deps.perception, deps.memory)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
