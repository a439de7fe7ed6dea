package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/kitaplik/internal/database/dbtest"
	"github.com/mrlokans/kitaplik/internal/database/logs"
	"github.com/mrlokans/kitaplik/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db := dbtest.New(t).DB
	return NewService(logs.NewRepository(db)), db
}

func TestService_Record(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := WithRequestInfo(context.Background(), RequestInfo{RequestID: "req-1", IP: "10.0.0.1", UserAgent: "curl"})

	err := svc.Record(ctx, nil, Entry{
		UserID:      4,
		Event:       entities.EventAuthorCreate,
		AuthorID:    9,
		Description: "author created",
		Details:     map[string]any{"name": "Ali"},
	})
	require.NoError(t, err)

	var saved entities.Log
	require.NoError(t, db.First(&saved).Error)
	require.NotNil(t, saved.UserID)
	assert.Equal(t, uint(4), *saved.UserID)
	require.NotNil(t, saved.AuthorID)
	assert.Equal(t, uint(9), *saved.AuthorID)
	assert.Nil(t, saved.BookID)
	assert.Equal(t, entities.EventAuthorCreate, saved.EventTypeID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(saved.Metadata, &metadata))
	assert.Equal(t, "req-1", metadata["request_id"])
	assert.Equal(t, "10.0.0.1", metadata["ip"])
	assert.Equal(t, "Ali", metadata["name"])
}

func TestService_RecordRollsBackWithTransaction(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(ctx, tx, Entry{UserID: 1, Event: entities.EventBookCreate, BookID: 3}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&entities.Log{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_RecordRejectsUnknownEvent(t *testing.T) {
	svc, _ := setupTestService(t)
	err := svc.Record(context.Background(), nil, Entry{Event: entities.EventTypeID(999)})
	assert.Error(t, err)
}

func TestService_RecordAsync(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	svc.RecordAsync(ctx, Entry{Event: entities.EventLoginError, Description: "Invalid credentials"})
	cancel()
	svc.Wait()

	entries, total, err := svc.List(context.Background(), logs.Filter{EventTypeID: entities.EventLoginError})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
	assert.Equal(t, "Invalid credentials", entries[0].Description)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "ş" is two bytes and would straddle the cut at byte 7.
	got := truncate("abcdefşhijklmnop", 10)
	assert.Equal(t, "abcdef...", got)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(truncate(strings.Repeat("ğü", 400), 500)), 500)
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("ğü", 400), 500)))
}
