package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/pagedit/internal/loader"
	"github.com/ziadkadry99/pagedit/internal/pages"
)

// Version is set via ldflags at build time.
var Version = "dev"

// PageLoader loads pages through the fallback chain.
type PageLoader interface {
	Load(ctx context.Context, pageID string) (*loader.Result, error)
	Container() string
}

// PageLister lists the pages of the site.
type PageLister interface {
	List(ctx context.Context) ([]pages.Page, error)
}

// Server wraps an MCP server that exposes the site's pages to agents.
type Server struct {
	loader PageLoader
	pages  PageLister
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. pages may be nil.
func NewServer(l PageLoader, pages PageLister) *Server {
	s := &Server{
		loader: l,
		pages:  pages,
	}

	s.mcp = server.NewMCPServer(
		"pagedit",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listPagesTool, s.handleListPages)
	s.mcp.AddTool(getPageTool, s.handleGetPage)
	s.mcp.AddTool(extractBlocksTool, s.handleExtractBlocks)
	s.mcp.AddTool(scopeCSSTool, s.handleScopeCSS)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
