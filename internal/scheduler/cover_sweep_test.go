package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/database/books"
	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/entities"
)

type fakeDeleter struct {
	keys []string
	err  error
}

func (d *fakeDeleter) EnqueueCoverDeletion(_ context.Context, key string) error {
	if d.err != nil {
		return d.err
	}
	d.keys = append(d.keys, key)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCoverSweep_QueuesExpiredCovers(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	author := &entities.Author{Name: "Yaşar", Surname: strPtr("Kemal")}
	require.NoError(t, db.DB.Create(author).Error)

	old := &entities.Book{Title: "İnce Memed", AuthorID: author.ID, StatusID: entities.StatusInLibrary, ImageKey: strPtr("books/1/old.webp")}
	recent := &entities.Book{Title: "Yer Demir Gök Bakır", AuthorID: author.ID, StatusID: entities.StatusInLibrary, ImageKey: strPtr("books/2/recent.webp")}
	active := &entities.Book{Title: "Teneke", AuthorID: author.ID, StatusID: entities.StatusInLibrary, ImageKey: strPtr("books/3/active.webp")}
	require.NoError(t, db.DB.Create([]*entities.Book{old, recent, active}).Error)

	now := time.Now()
	require.NoError(t, db.DB.Delete(old).Error)
	require.NoError(t, db.DB.Delete(recent).Error)
	require.NoError(t, db.DB.Unscoped().Model(old).Update("deleted_at", now.Add(-40*24*time.Hour)).Error)

	deleter := &fakeDeleter{}
	s := NewCoverSweepScheduler(books.NewRepository(db.DB), deleter, config.Scheduler{
		CoverSweepSchedule: "30 3 * * *",
		CoverRetention:     30 * 24 * time.Hour,
	})

	queued, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	assert.Equal(t, []string{"books/1/old.webp"}, deleter.keys)

	var reloaded entities.Book
	require.NoError(t, db.DB.Unscoped().First(&reloaded, old.ID).Error)
	assert.Nil(t, reloaded.ImageKey)

	queued, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, queued, "cleared covers are not queued twice")
}

func TestCoverSweep_EnqueueFailureKeepsKey(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	author := &entities.Author{Name: "Homeros"}
	require.NoError(t, db.DB.Create(author).Error)
	book := &entities.Book{Title: "İlyada", AuthorID: author.ID, StatusID: entities.StatusInLibrary, ImageKey: strPtr("books/1/c.webp")}
	require.NoError(t, db.DB.Create(book).Error)
	require.NoError(t, db.DB.Delete(book).Error)

	s := NewCoverSweepScheduler(books.NewRepository(db.DB), &fakeDeleter{err: errors.New("queue down")}, config.Scheduler{
		CoverSweepSchedule: "30 3 * * *",
	})
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err := s.Sweep(ctx)
	require.Error(t, err)

	var reloaded entities.Book
	require.NoError(t, db.DB.Unscoped().First(&reloaded, book.ID).Error)
	assert.True(t, reloaded.HasCover())
}

func TestCoverSweep_StartStop(t *testing.T) {
	db := dbtest.New(t)
	s := NewCoverSweepScheduler(books.NewRepository(db.DB), &fakeDeleter{}, config.Scheduler{
		CoverSweepSchedule: "30 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(ctx), "second start is a no-op")

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestCoverSweep_InvalidSchedule(t *testing.T) {
	db := dbtest.New(t)
	s := NewCoverSweepScheduler(books.NewRepository(db.DB), &fakeDeleter{}, config.Scheduler{
		CoverSweepSchedule: "not a schedule",
	})
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
