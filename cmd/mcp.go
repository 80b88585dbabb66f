package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fixxit/machdocs/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the document index to AI agents over MCP stdio",
	Long: `Starts an MCP server on stdin/stdout exposing search and document
retrieval tools. Point an MCP-capable client at this command.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.close()

	return mcptools.NewServer(st.catalog, st.searchEngine(cfg)).Serve()
}
