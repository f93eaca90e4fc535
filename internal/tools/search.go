package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tavily"
)

// SearchToolName is the function name advertised to the model.
const SearchToolName = "web_search"

// searchAPI is the slice of the Tavily client the search tool needs.
type searchAPI interface {
	Search(ctx context.Context, query string, maxResults int) ([]tavily.SearchResult, error)
}

// Search wraps the web search API as a model tool.
// It is stateless and safe for concurrent use.
type Search struct {
	api        searchAPI
	maxResults int
	logger     log.Logger
}

// NewSearch creates the web search tool.
func NewSearch(api searchAPI, maxResults int, logger log.Logger) (*Search, error) {
	if api == nil {
		return nil, errors.New("search API client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	return &Search{api: api, maxResults: maxResults, logger: logger}, nil
}

// Name returns the tool's function name.
func (s *Search) Name() string { return SearchToolName }

// Declaration returns the function declaration advertised to the model.
func (s *Search) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: SearchToolName,
		Description: "Search the web for latest, up-to-date information on any topic. " +
			"Always use this for current events or recent data.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "The search query",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Call runs the search and formats the hits as a numbered list of
// title, URL and snippet.
func (s *Search) Call(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", errors.New("query must not be empty")
	}

	s.logger.Info("web search", "query", query)

	results, err := s.api.Search(ctx, query, s.maxResults)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return capOutput(b.String()), nil
}
