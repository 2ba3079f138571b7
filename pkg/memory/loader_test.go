package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/memory"
)

func TestLoader_PathsMultiTenant(t *testing.T) {
	l := memory.NewLoader(memory.Config{DataRoot: "/data", MultiTenant: true}, "u1", "asst")
	assert.Equal(t, filepath.Join("/data", "users", "u1", "asst", "agent.md"), l.UserMemoryPath())
}

func TestLoader_PathsSingleTenant(t *testing.T) {
	l := memory.NewLoader(memory.Config{DataRoot: "/data", MultiTenant: false}, "u1", "asst")
	assert.Equal(t, filepath.Join("/data", "asst", "agent.md"), l.UserMemoryPath())
}

func TestLoader_ProjectMemoryPathEmptyWhenNoRoot(t *testing.T) {
	l := memory.NewLoader(memory.Config{DataRoot: "/data"}, "u1", "asst")
	assert.Equal(t, "", l.ProjectMemoryPath())
}

func TestLoader_LoadSwallowsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	l := memory.NewLoader(memory.Config{DataRoot: dir, MultiTenant: true, ProjectRoot: dir, AppName: "agentrelay"}, "u1", "asst")
	content := l.Load()
	assert.Equal(t, "", content.UserMemory)
	assert.Equal(t, "", content.ProjectMemory)
}

func TestLoader_LoadReadsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	l := memory.NewLoader(memory.Config{DataRoot: dir, MultiTenant: true, ProjectRoot: dir, AppName: "agentrelay"}, "u1", "asst")

	require.NoError(t, l.EnsureMemoryDir())
	require.NoError(t, os.WriteFile(l.UserMemoryPath(), []byte("prefers tabs"), 0o644))

	projectDir := filepath.Dir(l.ProjectMemoryPath())
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(l.ProjectMemoryPath(), []byte("uses gofmt"), 0o644))

	content := l.Load()
	assert.Equal(t, "prefers tabs", content.UserMemory)
	assert.Equal(t, "uses gofmt", content.ProjectMemory)
}

func TestLoader_ClearMemory(t *testing.T) {
	dir := t.TempDir()
	l := memory.NewLoader(memory.Config{DataRoot: dir, MultiTenant: true}, "u1", "asst")

	cleared, err := l.ClearMemory()
	require.NoError(t, err)
	assert.False(t, cleared)

	require.NoError(t, l.EnsureMemoryDir())
	require.NoError(t, os.WriteFile(l.UserMemoryPath(), []byte("x"), 0o644))

	cleared, err = l.ClearMemory()
	require.NoError(t, err)
	assert.True(t, cleared)

	_, err = os.Stat(filepath.Dir(l.UserMemoryPath()))
	assert.True(t, os.IsNotExist(err))
}
