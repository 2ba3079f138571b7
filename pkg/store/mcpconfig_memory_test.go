package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/store"
)

func TestMemoryMCPConfigStore_AddGetServer(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{
		Name:    "filesystem",
		Command: "mcp-server-fs",
		Args:    []string{"--root", "/tmp"},
	}))

	srv, err := s.GetServer(ctx, "u1", "filesystem")
	require.NoError(t, err)
	assert.Equal(t, "mcp-server-fs", srv.Command)
	assert.Equal(t, "u1", srv.UserID)
}

func TestMemoryMCPConfigStore_AddServerUpserts(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "fs", Command: "v1"}))
	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "fs", Command: "v2"}))

	cfg, err := s.GetUserConfig(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "v2", cfg.Servers[0].Command)
}

func TestMemoryMCPConfigStore_UserIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "fs"}))
	require.NoError(t, s.AddServer(ctx, "u2", store.MCPServerConfig{Name: "git"}))

	cfg1, err := s.GetUserConfig(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cfg1.Servers, 1)
	assert.Equal(t, "fs", cfg1.Servers[0].Name)

	_, err = s.GetServer(ctx, "u1", "git")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryMCPConfigStore_RemoveServer(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "fs"}))
	require.NoError(t, s.RemoveServer(ctx, "u1", "fs"))

	_, err := s.GetServer(ctx, "u1", "fs")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.RemoveServer(ctx, "u1", "fs")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryMCPConfigStore_SaveUserConfigReplaces(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "old"}))
	require.NoError(t, s.SaveUserConfig(ctx, "u1", store.UserMCPConfig{
		Servers: []store.MCPServerConfig{{Name: "new"}},
	}))

	cfg, err := s.GetUserConfig(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "new", cfg.Servers[0].Name)
}

func TestMemoryMCPConfigStore_DeleteUserConfig(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMCPConfigStore()

	require.NoError(t, s.AddServer(ctx, "u1", store.MCPServerConfig{Name: "fs"}))
	require.NoError(t, s.DeleteUserConfig(ctx, "u1"))

	cfg, err := s.GetUserConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cfg.Servers)
}
