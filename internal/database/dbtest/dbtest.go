// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/database"
)

// New returns a migrated and seeded in-memory sqlite database that is
// closed when the test finishes.
func New(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(config.Database{
		Driver:   config.DriverSQLite,
		Path:     "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
