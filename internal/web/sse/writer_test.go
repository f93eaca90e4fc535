package sse

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewWriterSetsHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	if _, err := NewWriter(rec); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestWriteEvent(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	payload := struct {
		Text string `json:"text"`
	}{Text: "hello\nworld"}

	if err := w.WriteEvent(context.Background(), "chunk", payload); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: chunk\n") {
		t.Errorf("missing event line: %q", body)
	}
	if !strings.Contains(body, `data: {"text":"hello\nworld"}`) {
		t.Errorf("missing data line: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("event not terminated: %q", body)
	}
}

func TestWriteEventCanceledContext(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w, _ := NewWriter(rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.WriteEvent(ctx, "chunk", "x"); err == nil {
		t.Error("expected error for canceled context")
	}
	if rec.Body.Len() != 0 {
		t.Error("nothing should be written after cancellation")
	}
}
