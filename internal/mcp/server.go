// Package mcp exposes the research tools over the Model Context Protocol
// so external MCP clients can use the same search and extraction stack as
// the chat assistant.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tools"
)

// Server wraps the MCP SDK server around the research tools.
type Server struct {
	mcpServer *mcp.Server
	logger    log.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Search  *tools.Search
	Extract *tools.Extract
	Logger  log.Logger
}

// NewServer creates an MCP server with both tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Search == nil || cfg.Extract == nil {
		return nil, errors.New("both tools are required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		logger:    cfg.Logger,
	}

	if err := registerSearch(mcpServer, cfg.Search); err != nil {
		return nil, fmt.Errorf("registering %s: %w", tools.SearchToolName, err)
	}
	if err := registerExtract(mcpServer, cfg.Extract); err != nil {
		return nil, fmt.Errorf("registering %s: %w", tools.ExtractToolName, err)
	}

	return s, nil
}

// Run serves the MCP protocol on the given transport until ctx is
// canceled. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server starting")
	return s.mcpServer.Run(ctx, transport)
}

// SearchInput is the input schema for the web search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The search query"`
}

// ExtractInput is the input schema for the content extraction tool.
type ExtractInput struct {
	URLOrText string `json:"url_or_text" jsonschema:"A URL to extract content from, or a raw text passage to analyze"`
}

func registerSearch(server *mcp.Server, search *tools.Search) error {
	schema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        tools.SearchToolName,
		Description: search.Declaration().Description,
		InputSchema: schema,
	}

	mcp.AddTool(server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
		out, err := search.Call(ctx, map[string]any{"query": in.Query})
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil, nil
	})
	return nil
}

func registerExtract(server *mcp.Server, extract *tools.Extract) error {
	schema, err := jsonschema.For[ExtractInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        tools.ExtractToolName,
		Description: extract.Declaration().Description,
		InputSchema: schema,
	}

	mcp.AddTool(server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in ExtractInput) (*mcp.CallToolResult, any, error) {
		out, err := extract.Call(ctx, map[string]any{"url_or_text": in.URLOrText})
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil, nil
	})
	return nil
}
