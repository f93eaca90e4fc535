// Package llm wraps the hosted Gemini API behind a small neutral message
// model, adding a per-call timeout, retry with exponential backoff, a
// circuit breaker, and proactive rate limiting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/verity0/verity/internal/log"
)

// defaultCallTimeout bounds a single model call including streaming.
const defaultCallTimeout = 60 * time.Second

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks messages authored by the user (or tool results
	// returned on the user's behalf).
	RoleUser Role = "user"
	// RoleModel marks messages authored by the model.
	RoleModel Role = "model"
)

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult carries the output of an executed tool back to the model.
type ToolResult struct {
	Name    string
	Content string
}

// Message is one turn of model context. Exactly one of Text, Calls, or
// Results is normally set, though a model turn may carry both Text and
// Calls.
type Message struct {
	Role    Role
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

// Request describes a single generation call.
type Request struct {
	System   string
	Messages []Message
	Tools    []*genai.FunctionDeclaration
}

// Reply is the model's response to a Request.
type Reply struct {
	Text  string
	Calls []ToolCall
}

// StreamFunc receives text deltas as the model produces them.
type StreamFunc func(chunk string)

// Config configures the model client.
type Config struct {
	APIKey      string
	ModelName   string
	Temperature float32

	// CallTimeout bounds a single model call (zero uses the default).
	CallTimeout time.Duration

	Retry       RetryConfig          // zero-value uses defaults
	Breaker     CircuitBreakerConfig // zero-value uses defaults
	RateLimiter *rate.Limiter        // nil uses the default limiter

	Logger log.Logger
}

// Client calls the Gemini API with resilience wrapping.
type Client struct {
	genai       *genai.Client
	modelName   string
	temperature float32
	callTimeout time.Duration

	retry   RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter

	logger log.Logger
}

// NewClient creates a model client. The API connection is validated lazily
// on first call.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries <= 0 && retryCfg.InitialInterval <= 0 {
		retryCfg = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(2, 5)
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &Client{
		genai:       gc,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		callTimeout: callTimeout,
		retry:       retryCfg,
		breaker:     NewCircuitBreaker(cfg.Breaker),
		limiter:     limiter,
		logger:      cfg.Logger,
	}, nil
}

// Generate runs one model call with full resilience wrapping. If stream is
// non-nil it receives text deltas as they arrive; the complete text is
// still returned in the Reply.
func (c *Client) Generate(ctx context.Context, req *Request, stream StreamFunc) (*Reply, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	reply, err := c.withRetry(ctx, func(callCtx context.Context) (*Reply, bool, error) {
		return c.generateOnce(callCtx, req, stream)
	})
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}

	c.breaker.Success()
	return reply, nil
}

// withRetry executes call with exponential backoff. Each attempt waits on
// the rate limiter and runs under the per-call timeout. An attempt that
// already emitted streamed output is never retried, otherwise the consumer
// would see duplicated text.
func (c *Client) withRetry(ctx context.Context, call func(context.Context) (*Reply, bool, error)) (*Reply, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		reply, emitted, err := call(callCtx)
		cancel()
		if err == nil {
			c.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return reply, nil
		}

		lastErr = err

		if emitted || !retryableError(err) {
			return nil, fmt.Errorf("model call: %w", err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("model call after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}

// generateOnce performs a single streaming call. The returned bool reports
// whether any output reached the stream consumer.
func (c *Client) generateOnce(ctx context.Context, req *Request, stream StreamFunc) (*Reply, bool, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: req.Tools}}
	}

	contents := toContents(req.Messages)

	var (
		reply   Reply
		text    strings.Builder
		emitted bool
	)
	for chunk, err := range c.genai.Models.GenerateContentStream(ctx, c.modelName, contents, cfg) {
		if err != nil {
			return nil, emitted, err
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text != "" {
				text.WriteString(part.Text)
				if stream != nil {
					stream(part.Text)
					emitted = true
				}
			}
			if part.FunctionCall != nil {
				reply.Calls = append(reply.Calls, ToolCall{
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
	}

	reply.Text = text.String()
	return &reply, emitted, nil
}

// toContents converts neutral messages to the wire representation.
func toContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		content := &genai.Content{Role: string(m.Role)}

		if m.Text != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: m.Text})
		}
		for _, call := range m.Calls {
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: call.Name,
					Args: call.Args,
				},
			})
		}
		for _, res := range m.Results {
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     res.Name,
					Response: map[string]any{"output": res.Content},
				},
			})
		}

		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return contents
}
