package store

import (
	"context"
	"sync"
	"time"
)

// MemoryProfileStore is the in-memory reference implementation of
// ProfileStore.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

// NewMemoryProfileStore creates an empty MemoryProfileStore.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]Profile)}
}

func (s *MemoryProfileStore) Create(_ context.Context, profile Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.UserID]; ok {
		return Profile{}, ErrAlreadyExists
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.CustomFields == nil {
		profile.CustomFields = map[string]any{}
	}
	s.profiles[profile.UserID] = profile
	return profile, nil
}

func (s *MemoryProfileStore) Get(_ context.Context, userID string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Update applies patch to the existing profile. A nil CustomFields leaves
// the stored map untouched; a non-nil map is merged key by key, and a key
// present with a nil value deletes that key from the stored map.
func (s *MemoryProfileStore) Update(_ context.Context, userID string, patch ProfilePatch) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}

	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Department != nil {
		p.Department = *patch.Department
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.CustomFields != nil {
		if p.CustomFields == nil {
			p.CustomFields = map[string]any{}
		}
		for k, v := range patch.CustomFields {
			if v == nil {
				delete(p.CustomFields, k)
				continue
			}
			p.CustomFields[k] = v
		}
	}
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return p, nil
}

func (s *MemoryProfileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}
