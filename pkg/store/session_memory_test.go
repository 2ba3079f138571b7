package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/store"
)

func TestMemorySessionStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	sess, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "assistant-1", sess.AssistantID)
	assert.Equal(t, sess.CreatedAt, sess.LastActive)

	got, err := s.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestMemorySessionStore_GetMissing(t *testing.T) {
	s := store.NewMemorySessionStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemorySessionStore_UpdateDoesNotTouchLastActive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	sess, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)

	frozen := sess.LastActive
	sess.State["foo"] = "bar"
	require.NoError(t, s.Update(ctx, sess))

	got, err := s.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "bar", got.State["foo"])
	assert.Equal(t, frozen, got.LastActive)
}

func TestMemorySessionStore_UpdateMissing(t *testing.T) {
	s := store.NewMemorySessionStore()
	err := s.Update(context.Background(), store.Session{SessionID: "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemorySessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	sess, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, sess.SessionID))
	_, err = s.Get(ctx, sess.SessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.Delete(ctx, sess.SessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemorySessionStore_ListByUserIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	a1, err := s.Create(ctx, "user-a", "assistant-1")
	require.NoError(t, err)
	_, err = s.Create(ctx, "user-b", "assistant-1")
	require.NoError(t, err)

	list, err := s.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a1.SessionID, list[0].SessionID)
}

func TestMemorySessionStore_ListByUserOrderedByLastActiveDesc(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	older, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)
	older.LastActive = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Update(ctx, older))

	newer, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)

	list, err := s.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.SessionID, list[0].SessionID)
	assert.Equal(t, older.SessionID, list[1].SessionID)
}

func TestMemorySessionStore_ListByAssistant(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	sess, err := s.Create(ctx, "user-1", "assistant-x")
	require.NoError(t, err)
	_, err = s.Create(ctx, "user-1", "assistant-y")
	require.NoError(t, err)

	list, err := s.ListByAssistant(ctx, "assistant-x")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sess.SessionID, list[0].SessionID)
}

func TestMemorySessionStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()

	stale, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)
	stale.LastActive = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.Update(ctx, stale))

	fresh, err := s.Create(ctx, "user-1", "assistant-1")
	require.NoError(t, err)

	removed, err := s.CleanupExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, stale.SessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Get(ctx, fresh.SessionID)
	require.NoError(t, err)
	assert.Equal(t, fresh.SessionID, got.SessionID)

	removedAgain, err := s.CleanupExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removedAgain)
}
