// Package storage abstracts the object store that holds book covers.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("object not found")

// Client defines the interface for object storage operations
type Client interface {
	// Put writes content under key, replacing any existing object
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// Delete removes the object. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-limited URL a browser can fetch the object from
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
