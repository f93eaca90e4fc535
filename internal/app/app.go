// Package app wires the application components together so commands share
// one setup path.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/verity0/verity/internal/agent"
	"github.com/verity0/verity/internal/config"
	"github.com/verity0/verity/internal/llm"
	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/observability"
	"github.com/verity0/verity/internal/security"
	"github.com/verity0/verity/internal/session"
	"github.com/verity0/verity/internal/tavily"
	"github.com/verity0/verity/internal/tools"
)

// App holds the initialized application components.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Store        *session.Store
	Orchestrator *agent.Orchestrator
	Search       *tools.Search
	Extract      *tools.Extract

	shutdownTracing func(context.Context) error
}

// Setup loads, validates, and wires everything a command needs.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "verity",
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	tavilyClient, err := tavily.New(tavily.Config{
		APIKey: cfg.TavilyAPIKey,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating search client: %w", err)
	}

	search, err := tools.NewSearch(tavilyClient, cfg.SearchMaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}
	extract, err := tools.NewExtract(tavilyClient, security.NewURL(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating extract tool: %w", err)
	}

	model, err := llm.NewClient(ctx, llm.Config{
		APIKey:      cfg.GeminiAPIKey,
		ModelName:   cfg.ModelName,
		Temperature: cfg.Temperature,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	orchestrator, err := agent.New(agent.Config{
		Model:         model,
		Tools:         []tools.Tool{search, extract},
		MaxToolRounds: cfg.MaxToolRounds,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	store := session.NewStore(time.Duration(cfg.SessionTTLMinutes)*time.Minute, logger)

	return &App{
		Config:          cfg,
		Logger:          logger,
		Store:           store,
		Orchestrator:    orchestrator,
		Search:          search,
		Extract:         extract,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close flushes pending telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing != nil {
		return a.shutdownTracing(ctx)
	}
	return nil
}
