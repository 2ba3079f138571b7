package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/session"
	"github.com/northfold/agentrelay/pkg/store"
)

func TestGetOrCreateSession_CreatesWhenNoID(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(store.NewMemorySessionStore(), session.Config{})

	sess, err := m.GetOrCreateSession(ctx, "u1", "asst", "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SessionID)
	assert.Equal(t, "u1", sess.UserID)
}

func TestGetOrCreateSession_ReturnsAndTouchesExisting(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()
	m := session.NewManager(s, session.Config{})

	created, err := s.Create(ctx, "u1", "asst")
	require.NoError(t, err)
	original := created.LastActive

	time.Sleep(5 * time.Millisecond)
	got, err := m.GetOrCreateSession(ctx, "u1", "asst", created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.True(t, got.LastActive.After(original))
}

func TestGetOrCreateSession_FallsBackToCreateWhenIDNotFound(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(store.NewMemorySessionStore(), session.Config{})

	sess, err := m.GetOrCreateSession(ctx, "u1", "asst", "missing-id")
	require.NoError(t, err)
	assert.NotEqual(t, "missing-id", sess.SessionID)
}

func TestGetSession_ExpiredIsDeletedAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()
	m := session.NewManager(s, session.Config{Timeout: 10 * time.Millisecond})

	created, err := s.Create(ctx, "u1", "asst")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = m.GetSession(ctx, created.SessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get(ctx, created.SessionID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStartStop_Idempotent(t *testing.T) {
	m := session.NewManager(store.NewMemorySessionStore(), session.Config{AutoCleanup: true, CleanupInterval: 10 * time.Millisecond})
	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}

func TestListUserSessions_FiltersExpired(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySessionStore()
	m := session.NewManager(s, session.Config{Timeout: 10 * time.Millisecond})

	_, err := s.Create(ctx, "u1", "asst")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	sessions, err := m.ListUserSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
