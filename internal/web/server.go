// Package web provides the HTTP API and the embedded chat widget.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/verity0/verity/internal/agent"
	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/session"
	"github.com/verity0/verity/internal/web/static"
)

// ServerConfig contains configuration for creating the web server.
type ServerConfig struct {
	Logger       log.Logger
	Store        *session.Store // Required
	Agent        Answerer       // Required
	SystemPrompt func() string  // Optional: nil uses the default prompt
	CORSOrigins  []string       // Allowed origins for CORS
}

// Server is the HTTP server for the chat API and widget.
type Server struct {
	handler http.Handler
}

// NewServer creates a web server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == nil {
		systemPrompt = func() string { return agent.SystemPrompt(time.Now()) }
	}

	sessions := &sessionHandler{
		store:        cfg.Store,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
	chat := &chatHandler{
		store:        cfg.Store,
		agent:        cfg.Agent,
		systemPrompt: systemPrompt,
		logger:       logger,
	}

	mux := http.NewServeMux()

	// Session management
	mux.HandleFunc("GET /api/v1/sessions", sessions.list)
	mux.HandleFunc("POST /api/v1/sessions", sessions.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sessions.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/turns", sessions.turns)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sessions.delete)

	// Chat
	mux.HandleFunc("POST /api/v1/chat", chat.send)
	mux.HandleFunc("POST /api/v1/chat/stream", chat.stream)

	// Chat widget
	mux.HandleFunc("GET /{$}", static.Index)
	mux.Handle("GET /static/", http.StripPrefix("/static/", static.Handler()))

	// Build middleware stack (outermost first):
	//   Recovery -> RequestID -> Logging -> CORS -> Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must see preflight OPTIONS before routing.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probe bypasses the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})
	topMux.Handle("/", final)

	return &Server{handler: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
