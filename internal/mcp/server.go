// Package mcp exposes concept extraction to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/concept-lens/internal/cache"
)

// Server manages the MCP server lifecycle.
type Server struct {
	mcp *server.MCPServer
}

// NewServer creates an MCP server with the concept_scan and concept_rules
// tools registered. Relative tool paths resolve against projectRoot.
func NewServer(scanner *cache.Scanner, projectRoot, version string) *Server {
	mcpServer := server.NewMCPServer(
		"conceptlens",
		version,
		server.WithToolCapabilities(true),
	)

	AddConceptScanTool(mcpServer, scanner, projectRoot)
	AddConceptRulesTool(mcpServer, scanner.Extractor().Registry())

	return &Server{mcp: mcpServer}
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		slog.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
