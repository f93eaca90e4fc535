// Package session holds conversation state in memory. Sessions live for
// the duration of the process and are reaped after a period of inactivity.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem marks the fixed system prompt turn.
	RoleSystem Role = "system"
	// RoleUser marks turns authored by the user.
	RoleUser Role = "user"
	// RoleAssistant marks turns authored by the assistant.
	RoleAssistant Role = "assistant"
)

// maxTitleLength caps the session title derived from the first question.
const maxTitleLength = 80

// Sentinel errors for session operations. Check with errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy indicates the session already has a question in
	// flight.
	ErrSessionBusy = errors.New("session is busy")
)

// Turn is a single conversation turn.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a snapshot of one conversation. Turns is a copy; mutating it
// does not affect the store.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// Visible returns the turns shown to the user, excluding the system
// prompt.
func (s *Session) Visible() []Turn {
	visible := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role != RoleSystem {
			visible = append(visible, t)
		}
	}
	return visible
}

// Summary is the listing view of a session, without turn contents.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// truncateTitle bounds a title at maxTitleLength runes.
func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleLength {
		return s
	}
	return string(runes[:maxTitleLength-3]) + "..."
}
