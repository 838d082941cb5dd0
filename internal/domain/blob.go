package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored archive object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads objects to the archive bucket.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves and lists archived objects.
type BlobReader interface {
	// Get returns the object body. The caller must close the reader.
	// Returns ErrNotFound when the object does not exist.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}
