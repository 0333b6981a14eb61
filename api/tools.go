package api

import (
	"context"

	"searchgate/gateway"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Operations is the pair of calls exposed to clients. Both always return
// text; code is empty on success and names the failure otherwise.
type Operations interface {
	SearchText(ctx context.Context, query string, maxResults int) (text string, code gateway.Code)
	FetchText(ctx context.Context, rawURL string) (text string, code gateway.Code)
}

type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query string"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

type FetchInput struct {
	URL string `json:"url" jsonschema:"the webpage URL to fetch content from"`
}

// NewMCPServer registers the search and fetch_content tools.
func NewMCPServer(ops Operations, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "searchgate", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "search",
		Description: "Search DuckDuckGo and return formatted results: a numbered list with title, URL " +
			"and snippet for each hit. Failures are returned as text starting with \"Error [CODE]:\".",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
		text, code := ops.SearchText(ctx, in.Query, in.MaxResults)
		return textResult(text, code), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "fetch_content",
		Description: "Fetch a webpage and return its cleaned text content, truncated with a marker " +
			"when it is long. Only http and https URLs are accepted.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in FetchInput) (*mcp.CallToolResult, any, error) {
		text, code := ops.FetchText(ctx, in.URL)
		return textResult(text, code), nil, nil
	})

	return server
}

func textResult(text string, code gateway.Code) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: code != "",
	}
}
