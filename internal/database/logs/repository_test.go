package logs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/entities"
)

func uintPtr(v uint) *uint { return &v }

func TestRepository_CreateAndList(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	entries := []entities.Log{
		{UserID: uintPtr(1), EventTypeID: entities.EventBookCreate, BookID: uintPtr(10), EventDate: base},
		{UserID: uintPtr(1), EventTypeID: entities.EventReadingCreate, BookID: uintPtr(10), EventDate: base.Add(time.Minute)},
		{UserID: uintPtr(2), EventTypeID: entities.EventLoginError, Description: "invalid credentials"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}
	assert.False(t, entries[2].EventDate.IsZero(), "event date defaults to now")

	t.Run("most recent first", func(t *testing.T) {
		list, total, err := repo.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 3)
		assert.Equal(t, entities.EventLoginError, list[0].EventTypeID)
		require.NotNil(t, list[0].EventType)
		assert.Equal(t, "login_error", list[0].EventType.Name)
	})

	t.Run("filter by user", func(t *testing.T) {
		list, total, err := repo.List(ctx, Filter{UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, entities.EventReadingCreate, list[0].EventTypeID)
	})

	t.Run("filter by event type and book", func(t *testing.T) {
		count, err := repo.Count(ctx, Filter{EventTypeID: entities.EventBookCreate, BookID: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("pagination", func(t *testing.T) {
		list, total, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, list, 1)
	})
}
