package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/store"
)

func TestMemoryAuditLogStore_RecordAssignsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryAuditLogStore()

	entry, err := s.Record(ctx, store.AuditLog{
		UserID:     "u1",
		Action:     "session.delete",
		TargetType: "session",
		TargetID:   "sess-1",
		Detail:     map[string]any{"reason": "user requested"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestMemoryAuditLogStore_ListForUserOrderedDescendingAndIsolated(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryAuditLogStore()

	_, err := s.Record(ctx, store.AuditLog{UserID: "u1", Action: "first", TargetType: "session"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Record(ctx, store.AuditLog{UserID: "u1", Action: "second", TargetType: "session"})
	require.NoError(t, err)
	_, err = s.Record(ctx, store.AuditLog{UserID: "u2", Action: "other-user", TargetType: "session"})
	require.NoError(t, err)

	entries, err := s.ListForUser(ctx, "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Action)
	assert.Equal(t, "first", entries[1].Action)
}

func TestMemoryAuditLogStore_ListForUserPagination(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryAuditLogStore()

	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, store.AuditLog{UserID: "u1", Action: "a", TargetType: "session"})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page, err := s.ListForUser(ctx, "u1", 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
