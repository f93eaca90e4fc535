package web

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/session"
)

// sessionHandler serves the session management endpoints.
type sessionHandler struct {
	store        *session.Store
	systemPrompt func() string
	logger       log.Logger
}

// sessionView is the API shape of a session. Turns excludes the system
// prompt.
type sessionView struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Turns     []session.Turn `json:"turns"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Turns:     s.Visible(),
	}
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.store.List()}, h.logger)
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Create(h.systemPrompt())
	writeJSON(w, http.StatusCreated, viewOf(sess), h.logger)
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, viewOf(sess), h.logger)
}

func (h *sessionHandler) turns(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"turns": sess.Visible()}, h.logger)
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return
	}

	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
