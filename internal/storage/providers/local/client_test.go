package local

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/storage"
)

func TestClient_PutExistsDelete(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(dir, "http://localhost:8188/covers", "secret")
	require.NoError(t, err)
	ctx := context.Background()

	key := "books/1/cover.webp"
	require.NoError(t, client.Put(ctx, key, strings.NewReader("data"), "image/webp"))

	content, err := os.ReadFile(filepath.Join(dir, "books", "1", "cover.webp"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	ok, err := client.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.Delete(ctx, key))
	ok, err = client.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, client.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestClient_KeysStayInsideRoot(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(filepath.Join(dir, "covers"), "", "secret")
	require.NoError(t, err)

	require.NoError(t, client.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), "text/plain"))
	_, err = os.Stat(filepath.Join(dir, "covers", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestClient_SignedURL(t *testing.T) {
	client, err := NewClient(t.TempDir(), "http://localhost:8188/covers/", "secret")
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	client.now = func() time.Time { return now }

	_, err = client.SignedURL(ctx, "books/1/missing.webp", time.Hour)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	key := "books/1/cover.webp"
	require.NoError(t, client.Put(ctx, key, strings.NewReader("data"), "image/webp"))

	raw, err := client.SignedURL(ctx, key, time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/covers/books/1/cover.webp", u.Path)

	q := u.Query()
	assert.True(t, client.Verify(key, q.Get("expires"), q.Get("signature")))
	assert.False(t, client.Verify("books/2/cover.webp", q.Get("expires"), q.Get("signature")))

	client.now = func() time.Time { return now.Add(2 * time.Hour) }
	assert.False(t, client.Verify(key, q.Get("expires"), q.Get("signature")), "expired")
}
