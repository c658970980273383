package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsBundled(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries, "schema migrations must ship with the package")

	for _, e := range entries {
		raw, err := migrationsFS.ReadFile("migrations/" + e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(raw), "-- +goose Up", e.Name())
		assert.Contains(t, string(raw), "-- +goose Down", e.Name())
	}
}
