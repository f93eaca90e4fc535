package observability

import (
	"context"
	"testing"

	"github.com/verity0/verity/internal/log"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), Config{Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	t.Parallel()

	// The exporter connects lazily, so setup succeeds even with nothing
	// listening.
	shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "localhost:4318",
		ServiceName: "verity-test",
		Logger:      log.NewNop(),
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
}
