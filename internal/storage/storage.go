// Package storage stores photo originals in object storage and signs
// time-limited download links for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore is the subset of object storage the storefront uses.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) error
	Delete(ctx context.Context, path string) error
	SignedURL(path string, ttl time.Duration) (string, error)
}

// GCS is an ObjectStore on a Google Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket), name: bucket}
}

func (g *GCS) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	w := g.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.name, path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", g.name, path, err)
	}
	return nil
}

// Delete removes path. A missing object is not an error.
func (g *GCS) Delete(ctx context.Context, path string) error {
	err := g.bucket.Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", g.name, path, err)
	}
	return nil
}

// SignedURL returns a V4 GET URL for path valid for ttl.
func (g *GCS) SignedURL(path string, ttl time.Duration) (string, error) {
	u, err := g.bucket.SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign gs://%s/%s: %w", g.name, path, err)
	}
	return u, nil
}

// PublicURL joins base and an object path, escaping each path segment.
func PublicURL(base, objectPath string) string {
	segs := strings.Split(strings.TrimLeft(objectPath, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}
