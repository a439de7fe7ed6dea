package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(config.Database{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_SeedsLookups(t *testing.T) {
	db := setupTestDB(t)

	statuses, err := db.Statuses()
	require.NoError(t, err)
	require.Len(t, statuses, len(entities.AllStatuses))
	assert.Equal(t, entities.StatusReading, statuses[0].ID)
	assert.Equal(t, "reading", statuses[0].Name)
	assert.Equal(t, entities.StatusNotInLibrary, statuses[len(statuses)-1].ID)

	var eventTypes int64
	require.NoError(t, db.DB.Model(&entities.EventType{}).Count(&eventTypes).Error)
	assert.Equal(t, int64(len(entities.AllEventTypes)), eventTypes)

	var bookCreate entities.EventType
	require.NoError(t, db.DB.First(&bookCreate, entities.EventBookCreate).Error)
	assert.Equal(t, "book_create", bookCreate.Name)

	var authorities int64
	require.NoError(t, db.DB.Model(&entities.Authority{}).Count(&authorities).Error)
	assert.Equal(t, int64(3), authorities)
}

func TestNewDatabase_SeedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	cfg := config.Database{Driver: config.DriverSQLite, Path: path, LogLevel: "silent"}

	first, err := NewDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer second.Close()

	statuses, err := second.Statuses()
	require.NoError(t, err)
	assert.Len(t, statuses, len(entities.AllStatuses))
}

func TestNewDatabase_BackfillsSearchNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backfill.db")
	cfg := config.Database{Driver: config.DriverSQLite, Path: path, LogLevel: "silent"}

	first, err := NewDatabase(cfg)
	require.NoError(t, err)
	surname := "Yılmaz"
	author := &entities.Author{Name: "Şule", Surname: &surname}
	require.NoError(t, first.DB.Create(author).Error)
	require.NoError(t, first.DB.Model(author).UpdateColumn("search_name", "").Error)
	require.NoError(t, first.Close())

	second, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer second.Close()

	var got entities.Author
	require.NoError(t, second.DB.First(&got, author.ID).Error)
	assert.Equal(t, "şule yilmaz", got.SearchName)
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%şule%", ContainsPattern("şule"))
	assert.Equal(t, `%\_%`, ContainsPattern("_"))
	assert.Equal(t, `%100\% \\ a\_b%`, ContainsPattern(`100% \ a_b`))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "mysql"})
	assert.Error(t, err)

	_, err = NewDatabase(config.Database{Driver: config.DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.DB.Create(&entities.User{Username: "ayse", Email: "a@example.com"}).Error)
	err := db.DB.Create(&entities.User{Username: "ayse", Email: "b@example.com"}).Error

	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsNotFound(err))
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping())
}
