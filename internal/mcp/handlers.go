package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/pagedit/internal/blocks"
	"github.com/ziadkadry99/pagedit/internal/markup"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

// handleListPages lists the pages found under the site root.
func (s *Server) handleListPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.pages == nil {
		return mcp.NewToolResultError("No site root configured. Set site_root in .pagedit.yml to list pages."), nil
	}
	list, err := s.pages.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing pages failed: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No pages found under the site root."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d page(s):\n", len(list)))
	for _, p := range list {
		sb.WriteString("\n- ")
		sb.WriteString(p.ID)
		if p.Title != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", p.Title))
		}
	}
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetPage returns a page's HTML as loaded for editing.
func (s *Server) handleGetPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := request.RequireString("page_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: page_id"), nil
	}

	res, err := s.loader.Load(ctx, pageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading %s failed: %v", pageID, err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Page: %s\nMethod: %s\n\n", res.PageID, res.Method))
	sb.WriteString(res.HTML)
	if request.GetBool("include_css", false) && res.CSS != "" {
		sb.WriteString(fmt.Sprintf("\n\n--- Stylesheets scoped to %s ---\n", s.loader.Container()))
		sb.WriteString(res.CSS)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleExtractBlocks returns the content blocks of markup or of a page's
// editable region.
func (s *Server) handleExtractBlocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := request.GetString("html", "")
	if src == "" {
		pageID := request.GetString("page_id", "")
		if pageID == "" {
			return mcp.NewToolResultError("one of page_id or html is required"), nil
		}
		res, err := s.loader.Load(ctx, pageID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading %s failed: %v", pageID, err)), nil
		}
		src = res.HTML
		if r, err := markup.Locate(src); err == nil {
			src = r.Inner(src)
		}
	}

	out, err := json.MarshalIndent(blocks.Encode(blocks.Extract(src)), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding blocks failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleScopeCSS scopes a stylesheet to a container selector.
func (s *Server) handleScopeCSS(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	css, err := request.RequireString("css")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: css"), nil
	}
	container := request.GetString("container", "")
	if container == "" {
		container = s.loader.Container()
	}
	return mcp.NewToolResultText(stylescope.Scope(css, container)), nil
}
