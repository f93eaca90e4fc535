package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verity0/verity/internal/log"
)

// DefaultTTL is the inactivity window after which a session is reaped.
const DefaultTTL = 2 * time.Hour

// entry is the store-internal mutable state of one session.
type entry struct {
	id        uuid.UUID
	title     string
	createdAt time.Time
	updatedAt time.Time
	turns     []Turn
	busy      bool
}

// Store manages sessions in memory.
//
// Store is safe for concurrent use by multiple goroutines. All reads
// return snapshots, never internal slices.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry

	ttl    time.Duration
	logger log.Logger
}

// NewStore creates a session store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, logger log.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Store{
		sessions: make(map[uuid.UUID]*entry),
		ttl:      ttl,
		logger:   logger,
	}
}

// Create starts a new session seeded with the system prompt as its first
// turn.
func (s *Store) Create(systemPrompt string) *Session {
	now := time.Now()
	e := &entry{
		id:        uuid.New(),
		createdAt: now,
		updatedAt: now,
	}
	if systemPrompt != "" {
		e.turns = append(e.turns, Turn{
			Role:      RoleSystem,
			Content:   systemPrompt,
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	s.logger.Debug("session created", "session_id", e.id)
	return snapshot(e)
}

// Get returns a snapshot of the session.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(e), nil
}

// List returns summaries of all sessions, most recently updated first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	summaries := make([]Summary, 0, len(s.sessions))
	for _, e := range s.sessions {
		summaries = append(summaries, Summary{
			ID:        e.id,
			Title:     e.title,
			CreatedAt: e.createdAt,
			UpdatedAt: e.updatedAt,
			TurnCount: len(e.turns),
		})
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// Append adds a turn to the session. The first user turn becomes the
// session title.
func (s *Store) Append(id uuid.UUID, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	now := time.Now()
	e.turns = append(e.turns, Turn{Role: role, Content: content, CreatedAt: now})
	e.updatedAt = now

	if e.title == "" && role == RoleUser {
		e.title = truncateTitle(strings.TrimSpace(content))
	}
	return nil
}

// Delete removes the session. Deleting a missing session returns
// ErrSessionNotFound.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Acquire marks the session as having a question in flight. A second
// Acquire before Release returns ErrSessionBusy.
func (s *Store) Acquire(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if e.busy {
		return ErrSessionBusy
	}
	e.busy = true
	return nil
}

// Release clears the in-flight mark. Releasing a missing or idle session
// is a no-op.
func (s *Store) Release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		e.busy = false
	}
}

// PurgeExpired removes sessions idle longer than the TTL and returns how
// many were removed. Sessions with a question in flight are never purged.
func (s *Store) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.sessions {
		if e.busy {
			continue
		}
		if now.Sub(e.updatedAt) > s.ttl {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// RunJanitor purges expired sessions periodically until ctx is canceled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := s.PurgeExpired(now); n > 0 {
				s.logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// snapshot copies an entry into the public Session type.
// Caller must hold at least a read lock.
func snapshot(e *entry) *Session {
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	return &Session{
		ID:        e.id,
		Title:     e.title,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Turns:     turns,
	}
}
