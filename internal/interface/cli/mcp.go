package cli

import (
	"fmt"

	"github.com/neilberkman/docchat/cmd/docchat/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server that lets an agent upload
documents, ask questions about them, and search archived chats.

The server owns one chat session for its lifetime; new_chat archives it and
starts another.

Configure in Claude Desktop's config file (~/.config/claude/config.json):
  {
    "mcpServers": {
      "docchat": {
        "command": "docchat",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := mcp.StartServer(a.ctrl, a.database, a.selOpts); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
