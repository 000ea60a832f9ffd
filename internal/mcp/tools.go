package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/concept-lens/internal/cache"
	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// ScanRequest holds the concept_scan arguments.
type ScanRequest struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Tiers  []int  `json:"tiers"`
}

// RulesResponse is the concept_rules payload.
type RulesResponse struct {
	Rules []concepts.ConceptRule `json:"rules"`
	Total int                    `json:"total"`
}

// AddConceptScanTool registers the concept_scan tool with an MCP server.
func AddConceptScanTool(s *server.MCPServer, scanner *cache.Scanner, projectRoot string) {
	tool := mcp.NewTool(
		"concept_scan",
		mcp.WithDescription("Extract DevOps and security concepts from Python source: hardcoded secrets, environment access, HTTP/cloud/API clients, subprocesses, file and data-format usage, error handling and more. Returns a JSON report with per-line occurrences and a per-category summary."),
		mcp.WithString("path",
			mcp.Description("Python file to scan, relative to the project root. Mutually exclusive with source.")),
		mcp.WithString("source",
			mcp.Description("Python source text to scan directly. Mutually exclusive with path.")),
		mcp.WithArray("tiers",
			mcp.Description("Tiers to report: [1] foundational/security, [2] structural/style. Default: both.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createConceptScanHandler(scanner, projectRoot))
}

// createConceptScanHandler creates the handler function for concept_scan.
func createConceptScanHandler(scanner *cache.Scanner, projectRoot string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, ok := request.GetRawArguments().(map[string]any); !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var req ScanRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		switch {
		case req.Path == "" && req.Source == "":
			return mcp.NewToolResultError("path or source parameter is required"), nil
		case req.Path != "" && req.Source != "":
			return mcp.NewToolResultError("path and source are mutually exclusive"), nil
		}

		tiers, err := concepts.TiersFromInts(req.Tiers)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var result *concepts.ScanResult
		if req.Source != "" {
			result = scanner.Scan([]byte(req.Source), concepts.Options{Tiers: tiers})
		} else {
			path := req.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(projectRoot, path)
			}
			result, _, err = scanner.ScanFile(path, concepts.Options{Tiers: tiers, Path: req.Path})
			if err != nil {
				if errors.Is(err, concepts.ErrInputUnreadable) {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return nil, err
			}
		}

		jsonData, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// AddConceptRulesTool registers the concept_rules tool with an MCP server.
func AddConceptRulesTool(s *server.MCPServer, registry *concepts.Registry) {
	tool := mcp.NewTool(
		"concept_rules",
		mcp.WithDescription("List the concept rules conceptlens can report, with rule id, tier, category and label."),
		mcp.WithArray("tiers",
			mcp.Description("Only list rules of these tiers. Default: both.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createConceptRulesHandler(registry))
}

func createConceptRulesHandler(registry *concepts.Registry) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req struct {
			Tiers []int `json:"tiers"`
		}
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		tiers, err := concepts.TiersFromInts(req.Tiers)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		rules := registry.ForTiers(tiers)
		jsonData, err := json.Marshal(RulesResponse{Rules: rules, Total: len(rules)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
