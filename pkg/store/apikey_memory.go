package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAPIKeyStore is the in-memory reference implementation of
// APIKeyStore.
type MemoryAPIKeyStore struct {
	mu   sync.Mutex
	keys map[string]APIKey // keyID -> key
}

// NewMemoryAPIKeyStore creates an empty MemoryAPIKeyStore.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[string]APIKey)}
}

func (s *MemoryAPIKeyStore) Create(_ context.Context, key APIKey) (APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key.KeyID = uuid.NewString()
	key.CreatedAt = time.Now().UTC()
	key.RevokedAt = nil
	s.keys[key.KeyID] = key
	return key, nil
}

func (s *MemoryAPIKeyStore) GetByHashedKey(_ context.Context, hashedKey string) (APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.HashedKey == hashedKey {
			if k.RevokedAt != nil {
				return APIKey{}, ErrNotFound
			}
			return k, nil
		}
	}
	return APIKey{}, ErrNotFound
}

func (s *MemoryAPIKeyStore) Revoke(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID]
	if !ok || k.RevokedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	s.keys[keyID] = k
	return nil
}

func (s *MemoryAPIKeyStore) ListForUser(_ context.Context, userID string) ([]APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []APIKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}
