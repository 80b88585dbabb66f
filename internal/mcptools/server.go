// Package mcptools exposes the document index to MCP clients over stdio.
package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/search"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes machine documentation tools.
type Server struct {
	catalog *catalog.Store
	engine  *search.Engine
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server over the catalog store and search
// engine.
func NewServer(cat *catalog.Store, engine *search.Engine) *Server {
	s := &Server{catalog: cat, engine: engine}

	s.mcp = server.NewMCPServer(
		"machdocs",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(searchTroubleshootingTool, s.handleSearchTroubleshooting)
	s.mcp.AddTool(getDocumentContentTool, s.handleGetDocumentContent)
	s.mcp.AddTool(getMachineOverviewTool, s.handleGetMachineOverview)
	s.mcp.AddTool(getProcessingStatusTool, s.handleGetProcessingStatus)
}

// Serve starts the MCP server on stdio. Stdout carries MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
