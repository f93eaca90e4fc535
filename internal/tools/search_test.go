package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tavily"
)

// mockSearchAPI implements searchAPI for testing.
type mockSearchAPI struct {
	searchErr     error
	searchResults []tavily.SearchResult

	searchCalls    int
	lastQuery      string
	lastMaxResults int
}

func (m *mockSearchAPI) Search(_ context.Context, query string, maxResults int) ([]tavily.SearchResult, error) {
	m.searchCalls++
	m.lastQuery = query
	m.lastMaxResults = maxResults
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func TestSearchCall(t *testing.T) {
	api := &mockSearchAPI{
		searchResults: []tavily.SearchResult{
			{Title: "Paris weather today", URL: "https://example.com/wx", Content: "18C and cloudy"},
		},
	}
	s, err := NewSearch(api, 5, log.NewNop())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}

	out, err := s.Call(context.Background(), map[string]any{"query": "weather in Paris"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	if api.lastQuery != "weather in Paris" || api.lastMaxResults != 5 {
		t.Errorf("unexpected API call: query=%q max=%d", api.lastQuery, api.lastMaxResults)
	}
	for _, want := range []string{"Paris weather today", "https://example.com/wx", "18C and cloudy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSearchCallEmptyQuery(t *testing.T) {
	api := &mockSearchAPI{}
	s, _ := NewSearch(api, 5, log.NewNop())

	if _, err := s.Call(context.Background(), map[string]any{"query": "   "}); err == nil {
		t.Error("expected error for blank query")
	}
	if _, err := s.Call(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing query")
	}
	if api.searchCalls != 0 {
		t.Errorf("API should not be called on invalid input, got %d calls", api.searchCalls)
	}
}

func TestSearchCallAPIError(t *testing.T) {
	api := &mockSearchAPI{searchErr: errors.New("upstream down")}
	s, _ := NewSearch(api, 5, log.NewNop())

	_, err := s.Call(context.Background(), map[string]any{"query": "anything"})
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("expected wrapped API error, got %v", err)
	}
}

func TestSearchCallNoResults(t *testing.T) {
	s, _ := NewSearch(&mockSearchAPI{}, 5, log.NewNop())

	out, err := s.Call(context.Background(), map[string]any{"query": "obscure"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "No results found." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSearchDeclaration(t *testing.T) {
	s, _ := NewSearch(&mockSearchAPI{}, 5, log.NewNop())

	decl := s.Declaration()
	if decl.Name != SearchToolName {
		t.Errorf("declaration name = %q, want %q", decl.Name, SearchToolName)
	}
	if _, ok := decl.Parameters.Properties["query"]; !ok {
		t.Error("declaration missing query parameter")
	}
}
