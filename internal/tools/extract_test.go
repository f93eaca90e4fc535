package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tavily"
)

// mockExtractAPI implements extractAPI for testing.
type mockExtractAPI struct {
	extractErr error
	result     *tavily.ExtractResult

	extractCalls int
	lastURL      string
}

func (m *mockExtractAPI) Extract(_ context.Context, url string) (*tavily.ExtractResult, error) {
	m.extractCalls++
	m.lastURL = url
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.result, nil
}

// openValidator accepts every URL so tests can hit httptest servers on
// loopback addresses.
type openValidator struct{}

func (openValidator) Validate(string) error { return nil }

func (openValidator) SafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// denyValidator rejects every URL.
type denyValidator struct{}

func (denyValidator) Validate(string) error { return errors.New("host is blocked") }

func (denyValidator) SafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTestExtract(t *testing.T, api extractAPI, v urlValidator) *Extract {
	t.Helper()
	e, err := NewExtract(api, v, log.NewNop())
	if err != nil {
		t.Fatalf("NewExtract: %v", err)
	}
	return e
}

func TestExtractCallPassage(t *testing.T) {
	api := &mockExtractAPI{}
	e := newTestExtract(t, api, openValidator{})

	out, err := e.Call(context.Background(), map[string]any{
		"url_or_text": "  The mitochondria is the powerhouse of the cell.  ",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "The mitochondria is the powerhouse of the cell." {
		t.Errorf("unexpected output %q", out)
	}
	if api.extractCalls != 0 {
		t.Errorf("passage input should not call the API, got %d calls", api.extractCalls)
	}
}

func TestExtractCallEmptyInput(t *testing.T) {
	e := newTestExtract(t, &mockExtractAPI{}, openValidator{})

	if _, err := e.Call(context.Background(), map[string]any{"url_or_text": " "}); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestExtractCallAPISuccess(t *testing.T) {
	api := &mockExtractAPI{
		result: &tavily.ExtractResult{URL: "https://example.com/a", RawContent: "Article body."},
	}
	e := newTestExtract(t, api, denyValidator{})

	out, err := e.Call(context.Background(), map[string]any{"url_or_text": "https://example.com/a"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "Article body." {
		t.Errorf("unexpected output %q", out)
	}
	if api.lastURL != "https://example.com/a" {
		t.Errorf("API called with %q", api.lastURL)
	}
}

func TestExtractCallLocalFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Fallback Page</title></head>
<body><article><p>First paragraph of the article with enough words to matter.</p>
<p>Second paragraph continues the thought at some length as well.</p></article></body></html>`))
	}))
	defer srv.Close()

	api := &mockExtractAPI{extractErr: errors.New("api unavailable")}
	e := newTestExtract(t, api, openValidator{})

	out, err := e.Call(context.Background(), map[string]any{"url_or_text": srv.URL})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(out, "First paragraph") || !strings.Contains(out, "Second paragraph") {
		t.Errorf("fallback output missing article text: %s", out)
	}
	if api.extractCalls != 1 {
		t.Errorf("expected 1 API call before fallback, got %d", api.extractCalls)
	}
}

func TestExtractCallBothPathsFail(t *testing.T) {
	api := &mockExtractAPI{extractErr: errors.New("api unavailable")}
	e := newTestExtract(t, api, denyValidator{})

	_, err := e.Call(context.Background(), map[string]any{"url_or_text": "https://example.com/x"})
	if err == nil {
		t.Fatal("expected error when both extraction paths fail")
	}
	if !strings.Contains(err.Error(), "api unavailable") {
		t.Errorf("error should carry the API failure: %v", err)
	}
	if !strings.Contains(err.Error(), "blocked") {
		t.Errorf("error should carry the fallback failure: %v", err)
	}
}

func TestExtractCallBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	api := &mockExtractAPI{extractErr: errors.New("api unavailable")}
	e := newTestExtract(t, api, openValidator{})

	_, err := e.Call(context.Background(), map[string]any{"url_or_text": srv.URL})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestAsURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com/page", true},
		{"http://example.com", true},
		{"example.com/page", false},
		{"ftp://example.com", false},
		{"just a sentence about https usage", false},
		{"https://", false},
	}

	for _, tt := range tests {
		if _, got := asURL(tt.input); got != tt.want {
			t.Errorf("asURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReduceHTMLParagraphFallback(t *testing.T) {
	// A bare fragment readability will not treat as an article.
	body := []byte(`<html><head><title>Tiny</title></head><body><p>only line</p></body></html>`)

	out, err := reduceHTML(body, "https://example.com/tiny")
	if err != nil {
		t.Fatalf("reduceHTML: %v", err)
	}
	if !strings.Contains(out, "only line") {
		t.Errorf("output missing paragraph text: %s", out)
	}
}

func TestReduceHTMLNoContent(t *testing.T) {
	body := []byte(`<html><body><div></div></body></html>`)

	if _, err := reduceHTML(body, "https://example.com/empty"); err == nil {
		t.Error("expected error for page with no readable content")
	}
}

func TestCapOutput(t *testing.T) {
	long := strings.Repeat("x", maxOutputSize+100)

	out := capOutput(long)
	if len(out) >= len(long) {
		t.Errorf("output not truncated: %d bytes", len(out))
	}
	if !strings.HasSuffix(out, "[content truncated]") {
		t.Error("truncated output missing marker")
	}
	if capOutput("short") != "short" {
		t.Error("short output should pass through unchanged")
	}
}
