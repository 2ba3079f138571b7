package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAuditLogStore is the in-memory reference implementation of
// AuditLogStore.
type MemoryAuditLogStore struct {
	mu      sync.Mutex
	entries []AuditLog
}

// NewMemoryAuditLogStore creates an empty MemoryAuditLogStore.
func NewMemoryAuditLogStore() *MemoryAuditLogStore {
	return &MemoryAuditLogStore{}
}

func (s *MemoryAuditLogStore) Record(_ context.Context, entry AuditLog) (AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *MemoryAuditLogStore) ListForUser(_ context.Context, userID string, limit, offset int) ([]AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []AuditLog
	for _, e := range s.entries {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []AuditLog{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
