package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sbserver "github.com/spacebridge-io/spacebridge-mcp/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spacebridge-mcp v%s\n", sbserver.Version)
	},
}
