package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const helpResourceURI = "shelf://help"

type MCPDeps struct {
	Search  Searcher
	Catalog Catalog
	Version string
}

// NewMCPServer creates an MCP server with the shelf tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"shelfbot",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("shelfbot: search the shared ebook shelf by title and read the bot's help text."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_titles",
			mcp.WithDescription("Search indexed ebooks by title substring. Returns one page of the newest copy per title."),
			mcp.WithString("query", mcp.Description("Title text to look for"), mcp.Required()),
			mcp.WithNumber("page", mcp.Description("1-indexed page (default 1)")),
		),
		mcpSearchTitles(deps),
	)

	s.AddTool(
		mcp.NewTool("list_advertisements",
			mcp.WithDescription("List active advertisements ordered by id."),
		),
		mcpListAdvertisements(deps),
	)

	s.AddResource(
		mcp.NewResource(
			helpResourceURI,
			"Help Message",
			mcp.WithResourceDescription("The welcome/help text the bot shows on /start"),
			mcp.WithMIMEType("text/html"),
		),
		mcpResourceHelp(deps),
	)

	return s
}

func mcpSearchTitles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}
		page := req.GetInt("page", 1)
		if page < 1 {
			page = 1
		}

		b, err := json.Marshal(toSearchResponse(deps.Search.Search(ctx, query, page)))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListAdvertisements(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(toAdResults(deps.Catalog.ListActiveAdvertisements()))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal advertisements: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceHelp(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/html",
				Text:     deps.Catalog.HelpMessage(),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
