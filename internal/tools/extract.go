package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"google.golang.org/genai"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tavily"
)

// ExtractToolName is the function name advertised to the model.
const ExtractToolName = "extract_content"

const (
	fetchTimeout = 30 * time.Second

	// maxFetchSize bounds the page body read in the local fallback.
	maxFetchSize = 10 * 1024 * 1024
)

// extractAPI is the slice of the Tavily client the extract tool needs.
type extractAPI interface {
	Extract(ctx context.Context, url string) (*tavily.ExtractResult, error)
}

// urlValidator defines the URL validation behavior the local fallback
// needs. Satisfied by *security.URL.
type urlValidator interface {
	Validate(rawURL string) error
	SafeClient(timeout time.Duration) *http.Client
}

// Extract wraps content extraction as a model tool.
//
// URL inputs go through the extraction API first; if that fails, the page
// is fetched locally through an SSRF-validating client and reduced to
// article text with readability (paragraph scrape as last resort).
// Non-URL inputs are treated as a passage and passed through trimmed, so
// the model receives them in working context.
type Extract struct {
	api       extractAPI
	validator urlValidator
	client    *http.Client
	logger    log.Logger
}

// NewExtract creates the content extraction tool.
// validator is typically *security.URL.
func NewExtract(api extractAPI, validator urlValidator, logger log.Logger) (*Extract, error) {
	if api == nil {
		return nil, errors.New("extract API client is required")
	}
	if validator == nil {
		return nil, errors.New("url validator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &Extract{
		api:       api,
		validator: validator,
		client:    validator.SafeClient(fetchTimeout),
		logger:    logger,
	}, nil
}

// Name returns the tool's function name.
func (e *Extract) Name() string { return ExtractToolName }

// Declaration returns the function declaration advertised to the model.
func (e *Extract) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: ExtractToolName,
		Description: "Extract the readable content from a given URL or long text passage. " +
			"Always use this when the user provides a link or document.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url_or_text": {
					Type:        genai.TypeString,
					Description: "A URL to extract content from, or a raw text passage to analyze",
				},
			},
			Required: []string{"url_or_text"},
		},
	}
}

// Call extracts content from a URL or normalizes a raw passage.
func (e *Extract) Call(ctx context.Context, args map[string]any) (string, error) {
	input := strings.TrimSpace(stringArg(args, "url_or_text"))
	if input == "" {
		return "", errors.New("url_or_text must not be empty")
	}

	if target, ok := asURL(input); ok {
		return e.extractURL(ctx, target)
	}

	// Raw passage: nothing to fetch, hand it back bounded so the model
	// sees it in working context.
	return capOutput(input), nil
}

// extractURL tries the extraction API first, then the local fallback.
func (e *Extract) extractURL(ctx context.Context, target string) (string, error) {
	e.logger.Info("extracting content", "url", target)

	res, err := e.api.Extract(ctx, target)
	if err == nil && strings.TrimSpace(res.RawContent) != "" {
		return capOutput(res.RawContent), nil
	}
	if err != nil {
		e.logger.Debug("extract API failed, trying local fetch", "url", target, "error", err)
	}

	text, localErr := e.fetchLocal(ctx, target)
	if localErr != nil {
		if err != nil {
			return "", fmt.Errorf("extraction failed: %w (local fallback: %v)", err, localErr)
		}
		return "", fmt.Errorf("extraction failed: %w", localErr)
	}
	return capOutput(text), nil
}

// fetchLocal fetches the page through the SSRF-validating client and
// reduces it to readable text.
func (e *Extract) fetchLocal(ctx context.Context, target string) (string, error) {
	if err := e.validator.Validate(target); err != nil {
		return "", fmt.Errorf("url validation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("reading page: %w", err)
	}

	return reduceHTML(body, target)
}

// reduceHTML extracts the article text from an HTML document.
// readability handles the common case; a goquery paragraph scrape covers
// pages readability cannot parse into an article.
func reduceHTML(body []byte, target string) (string, error) {
	pageURL, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		text := strings.TrimSpace(article.TextContent)
		if article.Title != "" {
			text = article.Title + "\n\n" + text
		}
		return text, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return "", errors.New("no readable content found")
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append([]string{title}, parts...)
	}
	return strings.Join(parts, "\n\n"), nil
}

// asURL reports whether input is a fetchable http(s) URL.
func asURL(input string) (string, bool) {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return "", false
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
