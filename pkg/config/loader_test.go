package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfold/agentrelay/pkg/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestInitialize_NoPathUsesBuiltinDefaults(t *testing.T) {
	cfg, err := config.Initialize("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 1000, cfg.Stream.MaxConnections)
}

func TestInitialize_MissingFileUsesBuiltinDefaults(t *testing.T) {
	cfg, err := config.Initialize(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 50_000, cfg.Rules.MaxContentSize)
}

func TestInitialize_UserYAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  backend: memory
http:
  addr: ":9090"
stream:
  max_connections: 42
`)
	cfg, err := config.Initialize(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 42, cfg.Stream.MaxConnections)
	// Untouched sections still carry builtin defaults.
	assert.Equal(t, 500, cfg.MCP.MaxConnectionsTotal)
}

func TestInitialize_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	path := writeConfigFile(t, `
database:
  backend: postgres
  password: ${TEST_DB_PASSWORD}
`)
	cfg, err := config.Initialize(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestInitialize_PostgresBackendRequiresPassword(t *testing.T) {
	path := writeConfigFile(t, `
database:
  backend: postgres
`)
	_, err := config.Initialize(path)
	assert.ErrorContains(t, err, "password")
}

func TestInitialize_InvalidBackendFailsValidation(t *testing.T) {
	path := writeConfigFile(t, `
database:
  backend: oracle
`)
	_, err := config.Initialize(path)
	assert.Error(t, err)
}

func TestInitialize_InvalidDurationStringErrors(t *testing.T) {
	path := writeConfigFile(t, `
session:
  timeout: "not-a-duration"
`)
	_, err := config.Initialize(path)
	assert.ErrorContains(t, err, "session.timeout")
}

func TestInitialize_MemoryBackendDoesNotRequirePassword(t *testing.T) {
	path := writeConfigFile(t, `
database:
  backend: memory
`)
	_, err := config.Initialize(path)
	assert.NoError(t, err)
}
