package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore is the in-memory reference implementation of
// SessionStore. All operations hold a single mutex, so it trivially
// satisfies the "mutually atomic with respect to one another" contract.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Create(_ context.Context, userID, assistantID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sess := Session{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		AssistantID: assistantID,
		CreatedAt:   now,
		LastActive:  now,
		State:       map[string]any{},
		Metadata:    map[string]any{},
	}
	s.sessions[sess.SessionID] = sess
	return sess, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Update replaces the row verbatim; it does not touch LastActive.
func (s *MemorySessionStore) Update(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.SessionID]; !ok {
		return ErrNotFound
	}
	s.sessions[session.SessionID] = session
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) ListByUser(_ context.Context, userID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sortByLastActiveDesc(out)
	return out, nil
}

func (s *MemorySessionStore) ListByAssistant(_ context.Context, assistantID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Session
	for _, sess := range s.sessions {
		if sess.AssistantID == assistantID {
			out = append(out, sess)
		}
	}
	sortByLastActiveDesc(out)
	return out, nil
}

func sortByLastActiveDesc(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActive.After(sessions[j].LastActive)
	})
}

// CleanupExpired deletes sessions whose LastActive predates now-timeout.
// Holding the single store mutex for the whole scan+delete makes this
// atomic with respect to concurrent Update calls by construction — there is
// no window in which Update could revive a row between this method's read
// and its delete.
func (s *MemorySessionStore) CleanupExpired(_ context.Context, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-timeout)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
