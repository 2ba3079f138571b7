package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryMessageStore is the in-memory reference implementation of
// MessageStore.
type MemoryMessageStore struct {
	mu       sync.Mutex
	messages map[string][]Message // sessionID -> transcript
	nextSeq  int64
}

// NewMemoryMessageStore creates an empty MemoryMessageStore.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{messages: make(map[string][]Message)}
}

func (s *MemoryMessageStore) SaveMessage(_ context.Context, sessionID string, role Role, content string, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	msg := Message{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
		seq:       s.nextSeq,
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return msg.MessageID, nil
}

func (s *MemoryMessageStore) GetMessages(_ context.Context, sessionID string, limit, offset int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append([]Message(nil), s.messages[sessionID]...)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].seq < all[j].seq
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Message{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryMessageStore) CountMessages(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[sessionID]), nil
}

func (s *MemoryMessageStore) DeleteMessages(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages[sessionID])
	delete(s.messages, sessionID)
	return n, nil
}
