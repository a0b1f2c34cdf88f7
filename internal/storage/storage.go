// Package storage holds the blob store the poster image lives in.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectInfo is the listing metadata of one stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobStore supports upsert by name, listing with last-modified metadata and
// derivation of a publicly fetchable URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	Ping(ctx context.Context) error
}
