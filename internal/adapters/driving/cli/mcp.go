package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codexai/internal/adapters/driving/mcp"
	"github.com/custodia-labs/codexai/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve projects and documentation over the Model Context Protocol",
	Long: `Start a Model Context Protocol server so AI assistants can list ingested
projects and generate or fetch documentation.

The server speaks JSON-RPC over stdio unless --port is given, in which case
it serves streamable HTTP.

Examples:
  codexai mcp serve
  codexai mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "codexai": {
        "command": "/path/to/codexai",
        "args": ["mcp", "serve"]
      }
    }
  }`,
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
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %d", domain.ErrInvalidInput, port)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Documentation: documentationService,
		Ingestion:     ingestionService,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(commandContext(cmd), addr)
	}
	return server.Run(commandContext(cmd))
}
