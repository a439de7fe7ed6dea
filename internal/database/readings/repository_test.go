package readings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/database"
	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/entities"
)

func strPtr(s string) *string { return &s }

func seedBooks(t *testing.T, db *gorm.DB) (*entities.Author, *entities.Author, []entities.Book) {
	t.Helper()
	ali := &entities.Author{Name: "Sabahattin", Surname: strPtr("Ali")}
	pamuk := &entities.Author{Name: "Orhan", Surname: strPtr("Pamuk")}
	require.NoError(t, db.Create(ali).Error)
	require.NoError(t, db.Create(pamuk).Error)

	books := []entities.Book{
		{Title: "Kürk Mantolu Madonna", AuthorID: ali.ID, StatusID: entities.StatusInLibrary},
		{Title: "Kuyucaklı Yusuf", AuthorID: ali.ID, StatusID: entities.StatusInLibrary},
		{Title: "Kar", AuthorID: pamuk.ID, StatusID: entities.StatusReading},
	}
	require.NoError(t, db.Create(&books).Error)
	return ali, pamuk, books
}

func TestRepository_UniqueActiveReading(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	_, _, books := seedBooks(t, db.DB)

	first := &entities.Reading{UserID: 1, BookID: books[0].ID, StatusID: entities.StatusReading}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[0].ID, StatusID: entities.StatusFinished})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	require.NoError(t, repo.SoftDelete(ctx, first.ID))
	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[0].ID, StatusID: entities.StatusFinished}),
		"a deleted reading does not block a new one")

	found, err := repo.FindByUserAndBook(ctx, 1, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFinished, found.StatusID)

	_, err = repo.FindByUserAndBook(ctx, 2, books[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListForUser(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	_, _, books := seedBooks(t, db.DB)

	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[0].ID, StatusID: entities.StatusReading}))
	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 2, BookID: books[1].ID, StatusID: entities.StatusReading}))

	list, err := repo.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Book)
	require.NotNil(t, list[0].Book.Author)
	require.NotNil(t, list[0].Status)
	assert.Equal(t, "Kürk Mantolu Madonna", list[0].Book.Title)
	assert.Equal(t, "reading", list[0].Status.Name)
}

func TestRepository_UpdateAndCount(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	_, _, books := seedBooks(t, db.DB)

	r := &entities.Reading{UserID: 1, BookID: books[2].ID, StatusID: entities.StatusReading}
	require.NoError(t, repo.Create(ctx, r))
	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 2, BookID: books[2].ID, StatusID: entities.StatusReading}))

	count, err := repo.CountForBook(ctx, books[2].ID, entities.StatusReading)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	r.StatusID = entities.StatusFinished
	r.Comment = strPtr("Çok beğendim")
	require.NoError(t, repo.Update(ctx, r))

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFinished, got.StatusID)
	require.NotNil(t, got.Comment)
	assert.Equal(t, "Çok beğendim", *got.Comment)

	count, err = repo.CountForBook(ctx, books[2].ID, entities.StatusReading)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountForBook(ctx, books[2].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_StatsAndFavoriteAuthor(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	ali, _, books := seedBooks(t, db.DB)

	fav, err := repo.FavoriteAuthor(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, fav)

	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[0].ID, StatusID: entities.StatusFinished}))
	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[1].ID, StatusID: entities.StatusAbandoned}))
	require.NoError(t, repo.Create(ctx, &entities.Reading{UserID: 1, BookID: books[2].ID, StatusID: entities.StatusReading}))

	stats, err := repo.StatsForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Stats{Interacted: 3, Completed: 1, Abandoned: 1}, stats)

	fav, err = repo.FavoriteAuthor(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, fav)
	assert.Equal(t, ali.ID, fav.AuthorID)
	assert.Equal(t, int64(2), fav.Readings)

	empty, err := repo.StatsForUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, empty)
}
