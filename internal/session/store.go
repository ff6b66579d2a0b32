// Package session provides the in-memory registry of live assessment sessions.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/speaklab-io/speaklab/internal/domain"
)

// Store owns all live sessions for the process lifetime. The registry map is
// guarded by an RWMutex; per-session mutation goes through the session's own
// locks so unrelated sessions never block each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// CreateParams carries the caller-supplied fields for a new session.
type CreateParams struct {
	Mode             string
	DurationMinutes  int
	UserName         string
	UserEmail        string
	ConsentGranted   bool
	ConsentGrantedAt time.Time
}

// Create allocates a fresh session with a process-unique id.
func (s *Store) Create(p CreateParams) *domain.Session {
	sess := &domain.Session{
		ID:               uuid.NewString(),
		Mode:             p.Mode,
		StartedAt:        time.Now(),
		DurationMinutes:  p.DurationMinutes,
		UserName:         p.UserName,
		UserEmail:        p.UserEmail,
		ConsentGranted:   p.ConsentGranted,
		ConsentGrantedAt: p.ConsentGrantedAt,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return sess, nil
}

// IncrementTurn atomically increments and returns the user-turn counter for
// the given session.
func (s *Store) IncrementTurn(id string) (int, error) {
	sess, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return sess.IncrementTurn(), nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
