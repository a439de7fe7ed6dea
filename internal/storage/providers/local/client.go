// Package local stores objects as files in a directory that the HTTP server
// exposes under a public URL prefix.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/kitaplik/internal/storage"
)

// Client implements storage.Client on the local filesystem
type Client struct {
	root      string
	publicURL string
	secret    []byte
	now       func() time.Time
}

// NewClient creates the root directory if needed. URLs are built as
// publicURL + "/" + key and carry an expiry signed with secret.
func NewClient(root, publicURL, secret string) (*Client, error) {
	if root == "" {
		return nil, errors.New("local storage requires a directory")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Client{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		secret:    []byte(secret),
		now:       time.Now,
	}, nil
}

// Root returns the directory objects are stored in.
func (c *Client) Root() string {
	return c.root
}

func (c *Client) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(c.root, filepath.FromSlash(clean)), nil
}

// FilePath returns the file that holds key.
func (c *Client) FilePath(key string) (string, error) {
	return c.path(key)
}

func (c *Client) Put(ctx context.Context, key string, body io.Reader, _ string) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close object %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store object %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(_ context.Context, key string) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (c *Client) Exists(_ context.Context, key string) (bool, error) {
	path, err := c.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return true, nil
}

// SignedURL returns publicURL/key?expires=<unix>&signature=<hmac>.
func (c *Client) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ok, err := c.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", storage.ErrNotFound
	}

	expires := c.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", c.sign(key, expires))
	return c.publicURL + "/" + strings.TrimLeft(key, "/") + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (c *Client) Verify(key, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || c.now().Unix() > exp {
		return false
	}
	return hmac.Equal([]byte(c.sign(key, exp)), []byte(signature))
}

func (c *Client) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(strings.TrimLeft(key, "/")))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ storage.Client = (*Client)(nil)
