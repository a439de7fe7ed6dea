package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/entities"
)

func TestRepository_FindByName(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entities.Category{Name: "Bilim ve Teknoloji"}))
	require.NoError(t, repo.Create(ctx, &entities.Category{Name: "Roman"}))

	matches, err := repo.FindByName(ctx, "BILIM")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Bilim ve Teknoloji", matches[0].Name)

	require.NoError(t, repo.Create(ctx, &entities.Category{Name: "Şiir"}))
	matches, err = repo.FindByName(ctx, "ŞİİR")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Şiir", matches[0].Name)

	matches, err = repo.FindByName(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, matches)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Bilim ve Teknoloji", all[0].Name)
}

func TestRepository_CountExisting(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	a := &entities.Category{Name: "Roman"}
	b := &entities.Category{Name: "Şiir"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	count, err := repo.CountExisting(ctx, []uint{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountExisting(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_BookLinks(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	roman := &entities.Category{Name: "Roman"}
	siir := &entities.Category{Name: "Şiir"}
	require.NoError(t, repo.Create(ctx, roman))
	require.NoError(t, repo.Create(ctx, siir))

	links := []entities.BookCategory{
		{BookID: 1, CategoryID: roman.ID},
		{BookID: 2, CategoryID: roman.ID},
		{BookID: 3, CategoryID: siir.ID},
	}
	require.NoError(t, db.DB.Create(&links).Error)
	require.NoError(t, db.DB.Delete(&links[2]).Error)

	count, err := repo.CountBookLinks(ctx, roman.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountBookLinks(ctx, siir.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "dropped links do not count")

	rows, err := repo.ListWithBookCounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Roman", rows[0].Name)
	assert.Equal(t, int64(2), rows[0].BookCount)
	assert.Equal(t, int64(0), rows[1].BookCount)
}
