package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/store"
)

func TestMemoryMessageStore_SaveAndGetOrdered(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMessageStore()

	id1, err := s.SaveMessage(ctx, "sess-1", store.RoleUser, "hello", nil)
	require.NoError(t, err)
	id2, err := s.SaveMessage(ctx, "sess-1", store.RoleAssistant, "hi there", nil)
	require.NoError(t, err)

	msgs, err := s.GetMessages(ctx, "sess-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, id1, msgs[0].MessageID)
	assert.Equal(t, id2, msgs[1].MessageID)
	assert.True(t, msgs[0].Seq() < msgs[1].Seq())
}

func TestMemoryMessageStore_GetMessagesPagination(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMessageStore()

	for i := 0; i < 5; i++ {
		_, err := s.SaveMessage(ctx, "sess-1", store.RoleUser, "msg", nil)
		require.NoError(t, err)
	}

	page, err := s.GetMessages(ctx, "sess-1", 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	beyond, err := s.GetMessages(ctx, "sess-1", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryMessageStore_CountAndDelete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMessageStore()

	_, err := s.SaveMessage(ctx, "sess-1", store.RoleUser, "a", nil)
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, "sess-1", store.RoleUser, "b", nil)
	require.NoError(t, err)

	count, err := s.CountMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	removed, err := s.DeleteMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err = s.CountMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryMessageStore_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMessageStore()

	_, err := s.SaveMessage(ctx, "sess-a", store.RoleUser, "a", nil)
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, "sess-b", store.RoleUser, "b", nil)
	require.NoError(t, err)

	msgs, err := s.GetMessages(ctx, "sess-a", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Content)
}
