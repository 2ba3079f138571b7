package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsOrderedByVersion(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].version, migrations[i].version)
	}
}

func TestLoadMigrationsChecksumsAreStable(t *testing.T) {
	first, err := loadMigrations()
	require.NoError(t, err)
	second, err := loadMigrations()
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].checksum, second[i].checksum)
		assert.NotEmpty(t, first[i].checksum)
	}
}
