package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/concept-lens/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for concept extraction",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
extract concepts from Python code.

The MCP server:
- Provides the concept_scan tool (scan a project file or inline source)
- Provides the concept_rules tool (list the rule set)
- Caches results by content so repeated scans of unchanged files are cheap
- Communicates via stdio (standard MCP transport)

Example:
  conceptlens mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	scanner, release, err := newConceptScanner(p.cfg)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(os.Stderr, "conceptlens MCP server %s\n", Version)
	fmt.Fprintf(os.Stderr, "Project root: %s\n\n", p.root)

	server := mcp.NewServer(scanner, p.root, Version)
	if err := server.Serve(context.Background()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
