package cmd

import (
	"github.com/huangsam/querylens/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the QueryLens MCP server",
	Long:    `Launch an MCP server over stdio that lets AI agents analyze query history, build trends and list rules.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
