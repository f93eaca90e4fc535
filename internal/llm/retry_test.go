package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/verity0/verity/internal/log"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()

	if cfg.MaxRetries <= 0 {
		t.Errorf("MaxRetries should be positive, got %d", cfg.MaxRetries)
	}
	if cfg.InitialInterval <= 0 {
		t.Errorf("InitialInterval should be positive, got %v", cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		t.Error("MaxInterval should be at least InitialInterval")
	}
}

func TestRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("Rate Limit exceeded"), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"http 429", errors.New("server returned 429"), true},
		{"http 503", errors.New("503 service unavailable"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"overloaded", errors.New("model is overloaded"), true},
		{"invalid argument", errors.New("invalid argument: bad schema"), false},
		{"auth", errors.New("API key not valid"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// retryTestClient builds a Client with resilience fields populated but no
// API connection, for exercising withRetry directly.
func retryTestClient(retries int) *Client {
	return &Client{
		callTimeout: time.Second,
		retry: RetryConfig{
			MaxRetries:      retries,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		breaker: NewCircuitBreaker(CircuitBreakerConfig{}),
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  log.NewNop(),
	}
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	c := retryTestClient(2)
	calls := 0

	reply, err := c.withRetry(context.Background(), func(context.Context) (*Reply, bool, error) {
		calls++
		if calls < 3 {
			return nil, false, errors.New("503 service unavailable")
		}
		return &Reply{Text: "ok"}, false, nil
	})
	if err != nil {
		t.Fatalf("withRetry: %v", err)
	}
	if reply.Text != "ok" || calls != 3 {
		t.Errorf("got text=%q calls=%d", reply.Text, calls)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	c := retryTestClient(3)
	calls := 0

	_, err := c.withRetry(context.Background(), func(context.Context) (*Reply, bool, error) {
		calls++
		return nil, false, errors.New("invalid argument")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error should not retry, got %d calls", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	c := retryTestClient(2)
	calls := 0

	_, err := c.withRetry(context.Background(), func(context.Context) (*Reply, bool, error) {
		calls++
		return nil, false, errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("error should report retry count: %v", err)
	}
}

func TestWithRetryNeverRetriesAfterEmittedOutput(t *testing.T) {
	t.Parallel()

	c := retryTestClient(3)
	calls := 0

	_, err := c.withRetry(context.Background(), func(context.Context) (*Reply, bool, error) {
		calls++
		return nil, true, errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("emitted output must prevent retry, got %d calls", calls)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	c := retryTestClient(5)
	c.retry.InitialInterval = time.Second

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.withRetry(ctx, func(context.Context) (*Reply, bool, error) {
			return nil, false, errors.New("503 service unavailable")
		})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("withRetry did not return after context cancellation")
	}
}
