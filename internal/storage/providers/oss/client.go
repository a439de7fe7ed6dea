// Package oss stores objects in an Aliyun OSS bucket.
package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	alioss "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/storage"
)

// Client implements storage.Client for Aliyun OSS
type Client struct {
	bucket *alioss.Bucket
}

// NewClient connects to the configured bucket.
func NewClient(cfg config.Storage) (*Client, error) {
	if cfg.OSSEndpoint == "" || cfg.OSSAccessKeyID == "" || cfg.OSSAccessKeySecret == "" || cfg.OSSBucket == "" {
		return nil, errors.New("oss storage requires OSS_ENDPOINT, OSS_ACCESS_KEY_ID, OSS_ACCESS_KEY_SECRET and OSS_BUCKET")
	}

	client, err := alioss.New(cfg.OSSEndpoint, cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.OSSBucket, err)
	}

	if loc, err := client.GetBucketLocation(cfg.OSSBucket); err != nil {
		var se alioss.ServiceError
		if errors.As(err, &se) && se.StatusCode == http.StatusForbidden {
			log.Printf("[STORAGE] Skipping location check for bucket %s: access denied", cfg.OSSBucket)
		} else {
			return nil, fmt.Errorf("failed to verify bucket %s: %w", cfg.OSSBucket, err)
		}
	} else {
		log.Printf("[STORAGE] Using OSS bucket %s (%s)", cfg.OSSBucket, loc)
	}

	return &Client{bucket: bucket}, nil
}

func (c *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	opts := []alioss.Option{
		alioss.WithContext(ctx),
		alioss.ContentType(contentType),
		alioss.ContentDisposition("inline"),
		alioss.CacheControl("private, max-age=3600"),
	}
	if err := c.bucket.PutObject(strings.TrimLeft(key, "/"), body, opts...); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.bucket.DeleteObject(strings.TrimLeft(key, "/"), alioss.WithContext(ctx)); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// SignedURL returns a pre-signed GET URL valid for ttl.
func (c *Client) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 60
	}
	url, err := c.bucket.SignURL(strings.TrimLeft(key, "/"), alioss.HTTPGet, seconds, alioss.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to sign object %s: %w", key, err)
	}
	return url, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := c.bucket.IsObjectExist(strings.TrimLeft(key, "/"), alioss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return ok, nil
}

func isNotFound(err error) bool {
	var se alioss.ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

var _ storage.Client = (*Client)(nil)
