// spacebridge-mcp: SpaceBridge issue tracker MCP server
//
// Exposes search, read, create and update of tracker issues to any MCP
// host. Issue creation checks for duplicates first, either by similarity
// score or by asking an LLM.
//
// Usage:
//
//	spacebridge-mcp serve      # Start MCP server (stdio transport)
//	spacebridge-mcp version    # Print the version
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spacebridge-mcp",
	Short: "SpaceBridge issue tracker MCP server",
	Long: `spacebridge-mcp exposes the SpaceBridge issue tracker to MCP hosts over stdio.

Add it to your AI tool's MCP config:

  {
    "mcpServers": {
      "spacebridge": {
        "command": "spacebridge-mcp",
        "args": ["serve"],
        "env": {"SPACEBRIDGE_API_KEY": "..."}
      }
    }
  }`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
