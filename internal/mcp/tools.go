package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listPagesTool defines the list_pages MCP tool.
var listPagesTool = mcp.NewTool("list_pages",
	mcp.WithDescription("List the editable pages of the site with their titles."),
)

// getPageTool defines the get_page MCP tool.
var getPageTool = mcp.NewTool("get_page",
	mcp.WithDescription("Load a page through the fallback chain and return its HTML, optionally with its scoped stylesheets."),
	mcp.WithString("page_id",
		mcp.Required(),
		mcp.Description("Page path relative to the site root, e.g. services/index.html"),
	),
	mcp.WithBoolean("include_css",
		mcp.Description("Append the page's stylesheets scoped to the editing container (default false)"),
	),
)

// extractBlocksTool defines the extract_blocks MCP tool.
var extractBlocksTool = mcp.NewTool("extract_blocks",
	mcp.WithDescription("Extract the headings, paragraphs, images and links of a page's editable region as JSON."),
	mcp.WithString("page_id",
		mcp.Description("Page to extract from; ignored when html is given"),
	),
	mcp.WithString("html",
		mcp.Description("Markup to extract from instead of a page"),
	),
)

// scopeCSSTool defines the scope_css MCP tool.
var scopeCSSTool = mcp.NewTool("scope_css",
	mcp.WithDescription("Rewrite a stylesheet so every rule applies only inside a container selector."),
	mcp.WithString("css",
		mcp.Required(),
		mcp.Description("Stylesheet text"),
	),
	mcp.WithString("container",
		mcp.Description("Container selector (default .pe-surface)"),
	),
)
