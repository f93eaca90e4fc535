package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/verity0/verity/internal/agent"
	"github.com/verity0/verity/internal/llm"
	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/session"
	"github.com/verity0/verity/internal/web/sse"
)

// maxRequestBody bounds chat request bodies.
const maxRequestBody = 1024 * 1024

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // Partial answer text
	EventTool  = "tool"  // A tool started executing
	EventDone  = "done"  // Stream completed successfully
	EventError = "error" // Error occurred during streaming
)

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// ToolPayload is the SSE data payload when a tool starts.
type ToolPayload struct {
	Name string `json:"name"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Answerer is the slice of the orchestrator the chat handler needs.
type Answerer interface {
	Answer(ctx context.Context, system string, history []llm.Message, question string, ev agent.Events) (string, error)
}

// chatHandler serves the question endpoints.
type chatHandler struct {
	store        *session.Store
	agent        Answerer
	systemPrompt func() string
	logger       log.Logger
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// send answers a question and returns the full answer in one response.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, sess, ok := h.prepare(w, r)
	if !ok {
		return
	}
	defer h.store.Release(sess.ID)

	answer, _ := h.run(r.Context(), sess, req.Message, agent.Events{})

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sess.ID.String(),
		Answer:    answer,
	}, h.logger)
}

// stream answers a question over SSE, emitting chunk and tool events as
// the research progresses.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, sess, ok := h.prepare(w, r)
	if !ok {
		return
	}
	defer h.store.Release(sess.ID)

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	ctx := r.Context()
	ev := agent.Events{
		OnChunk: func(text string) {
			_ = writer.WriteEvent(ctx, EventChunk, ChunkPayload{Text: text})
		},
		OnTool: func(name string) {
			_ = writer.WriteEvent(ctx, EventTool, ToolPayload{Name: name})
		},
	}

	answer, runErr := h.run(ctx, sess, req.Message, ev)
	if runErr != nil {
		_ = writer.WriteEvent(ctx, EventError, ErrorPayload{
			Code:    "model_error",
			Message: answer,
		})
		return
	}

	_ = writer.WriteEvent(ctx, EventDone, DonePayload{
		SessionID: sess.ID.String(),
		Answer:    answer,
	})
}

// prepare decodes the request, resolves or creates the session, and
// acquires the in-flight guard. On failure the response has already been
// written and ok is false.
func (h *chatHandler) prepare(w http.ResponseWriter, r *http.Request) (chatRequest, *session.Session, bool) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return req, nil, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return req, nil, false
	}

	var sess *session.Session
	if req.SessionID == "" {
		sess = h.store.Create(h.systemPrompt())
	} else {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
			return req, nil, false
		}
		sess, err = h.store.Get(id)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
				return req, nil, false
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
			return req, nil, false
		}
	}

	if err := h.store.Acquire(sess.ID); err != nil {
		if errors.Is(err, session.ErrSessionBusy) {
			writeError(w, http.StatusConflict, "session_busy", "a question is already in flight for this session", h.logger)
			return req, nil, false
		}
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return req, nil, false
	}

	return req, sess, true
}

// run executes the research loop for one question and records both turns.
// The returned answer is always non-empty; err reports upstream failure
// for the caller to surface.
func (h *chatHandler) run(ctx context.Context, sess *session.Session, question string, ev agent.Events) (string, error) {
	if err := h.store.Append(sess.ID, session.RoleUser, question); err != nil {
		h.logger.Error("recording question", "session_id", sess.ID, "error", err)
	}

	system, history := modelContext(sess)
	answer, err := h.agent.Answer(ctx, system, history, question, ev)
	if err != nil {
		h.logger.Error("answering question", "session_id", sess.ID, "error", err)
	}

	if appendErr := h.store.Append(sess.ID, session.RoleAssistant, answer); appendErr != nil {
		h.logger.Error("recording answer", "session_id", sess.ID, "error", appendErr)
	}
	return answer, err
}

// modelContext converts stored turns into the model's view: the system
// prompt plus the prior conversation, excluding the question being asked.
func modelContext(sess *session.Session) (system string, history []llm.Message) {
	for _, t := range sess.Turns {
		switch t.Role {
		case session.RoleSystem:
			system = t.Content
		case session.RoleUser:
			history = append(history, llm.Message{Role: llm.RoleUser, Text: t.Content})
		case session.RoleAssistant:
			history = append(history, llm.Message{Role: llm.RoleModel, Text: t.Content})
		}
	}
	return system, history
}
