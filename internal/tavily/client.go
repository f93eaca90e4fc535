// Package tavily implements a minimal client for the Tavily web search and
// content extraction REST API (https://api.tavily.com).
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verity0/verity/internal/log"
)

// DefaultBaseURL is the production Tavily API endpoint.
const DefaultBaseURL = "https://api.tavily.com"

const (
	defaultTimeout = 30 * time.Second

	// maxResponseSize bounds the API response body read to prevent
	// resource exhaustion on a misbehaving endpoint.
	maxResponseSize = 4 * 1024 * 1024
)

// Sentinel errors for Tavily API failures.
var (
	// ErrEmptyQuery indicates a search was attempted with a blank query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrNoContent indicates the extract API returned no usable content.
	ErrNoContent = errors.New("no content extracted")
)

// APIError is a non-2xx response from the Tavily API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tavily API error: status %d: %s", e.StatusCode, e.Body)
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ExtractResult is the extracted content of a single URL.
type ExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// Config contains the parameters for creating a Client.
type Config struct {
	APIKey  string
	BaseURL string        // Empty uses DefaultBaseURL
	Timeout time.Duration // Zero uses the 30s default
	Logger  log.Logger

	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
}

// Client calls the Tavily search and extract endpoints.
// It is stateless and safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// New creates a new Tavily client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tavily API key is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    httpClient,
		logger:  cfg.Logger,
	}, nil
}

// searchRequest is the /search request payload.
type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Topic      string `json:"topic"`
}

// searchResponse is the /search response payload.
type searchResponse struct {
	Results      []SearchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// Search runs a web search and returns up to maxResults hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	var resp searchResponse
	err := c.post(ctx, "/search", searchRequest{
		Query:      query,
		MaxResults: maxResults,
		Topic:      "general",
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("tavily search completed",
		"query_length", len(query),
		"results", len(resp.Results),
		"api_time", resp.ResponseTime,
	)

	if len(resp.Results) > maxResults {
		resp.Results = resp.Results[:maxResults]
	}
	return resp.Results, nil
}

// extractRequest is the /extract request payload.
type extractRequest struct {
	URLs []string `json:"urls"`
}

// extractResponse is the /extract response payload.
type extractResponse struct {
	Results       []ExtractResult `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results"`
}

// Extract retrieves the readable content of a single URL.
func (c *Client) Extract(ctx context.Context, url string) (*ExtractResult, error) {
	if url == "" {
		return nil, errors.New("empty URL")
	}

	var resp extractResponse
	if err := c.post(ctx, "/extract", extractRequest{URLs: []string{url}}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		if len(resp.FailedResults) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, resp.FailedResults[0].Error)
		}
		return nil, ErrNoContent
	}

	c.logger.Debug("tavily extract completed",
		"url", url,
		"content_length", len(resp.Results[0].RawContent),
	)

	return &resp.Results[0], nil
}

// post sends a JSON POST request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling tavily %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// truncate shortens s to at most n bytes for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
