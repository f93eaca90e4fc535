package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verity0/verity/internal/log"
)

// newTestClient returns a Client pointed at a test server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:  "tvly-test-key",
		BaseURL: srv.URL,
		Logger:  log.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresKeyAndLogger(t *testing.T) {
	if _, err := New(Config{Logger: log.NewNop()}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Error("expected error without logger")
	}
}

func TestSearch(t *testing.T) {
	var gotAuth string
	var gotReq searchRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(searchResponse{
			Results: []SearchResult{
				{Title: "Paris weather", URL: "https://example.com/wx", Content: "18C, cloudy"},
				{Title: "Forecast", URL: "https://example.com/fc", Content: "rain later"},
			},
		})
	})

	results, err := c.Search(context.Background(), "weather in Paris", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotAuth != "Bearer tvly-test-key" {
		t.Errorf("missing bearer auth, got %q", gotAuth)
	}
	if gotReq.Query != "weather in Paris" || gotReq.MaxResults != 5 {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
	if len(results) != 2 || results[0].Title != "Paris weather" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for an empty query")
	})

	if _, err := c.Search(context.Background(), "", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchCapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var resp searchResponse
		for i := 0; i < 10; i++ {
			resp.Results = append(resp.Results, SearchResult{Title: "r"})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	results, err := c.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected results capped at 3, got %d", len(results))
	}
}

func TestSearchAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), "q", 5)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Error(), "rate limited") {
		t.Errorf("error should carry body, got %q", apiErr.Error())
	}
}

func TestExtract(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.URLs) != 1 || req.URLs[0] != "https://example.com/article" {
			t.Errorf("unexpected urls: %v", req.URLs)
		}
		_ = json.NewEncoder(w).Encode(extractResponse{
			Results: []ExtractResult{{URL: req.URLs[0], RawContent: "article body"}},
		})
	})

	res, err := c.Extract(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.RawContent != "article body" {
		t.Errorf("unexpected content %q", res.RawContent)
	}
}

func TestExtractFailedResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[],"failed_results":[{"url":"https://example.com","error":"paywall"}]}`))
	})

	_, err := c.Extract(context.Background(), "https://example.com")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "paywall") {
		t.Errorf("error should carry API failure reason, got %q", err.Error())
	}
}
