package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv_PlainVar(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	got := ExpandEnv([]byte("host: ${DB_HOST}"))
	assert.Equal(t, "host: db.internal", string(got))
}

func TestExpandEnv_MissingVarExpandsEmpty(t *testing.T) {
	got := ExpandEnv([]byte("key: ${TOTALLY_UNSET_VAR}"))
	assert.Equal(t, "key: ", string(got))
}

func TestExpandEnv_DefaultUsedWhenUnset(t *testing.T) {
	got := ExpandEnv([]byte("port: ${DB_PORT:-5432}"))
	assert.Equal(t, "port: 5432", string(got))
}

func TestExpandEnv_DefaultIgnoredWhenSet(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	got := ExpandEnv([]byte("port: ${DB_PORT:-5432}"))
	assert.Equal(t, "port: 6543", string(got))
}

func TestExpandEnv_DefaultUsedWhenEmpty(t *testing.T) {
	t.Setenv("DB_PORT", "")
	got := ExpandEnv([]byte("port: ${DB_PORT:-5432}"))
	assert.Equal(t, "port: 5432", string(got))
}

func TestExpandEnv_NoVariablesPassesThroughUnchanged(t *testing.T) {
	input := "static: value\nnested:\n  field: 1\n"
	assert.Equal(t, input, string(ExpandEnv([]byte(input))))
}

func TestExpandEnv_MultipleTokens(t *testing.T) {
	t.Setenv("PROTOCOL", "https")
	t.Setenv("HOST", "example.com")
	got := ExpandEnv([]byte("url: ${PROTOCOL}://${HOST}:${PORT:-443}"))
	assert.Equal(t, "url: https://example.com:443", string(got))
}
