// Package storage reads and writes objects on S3, MinIO or Google Cloud
// Storage behind one interface.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Storage defines the object operations the application needs.
type Storage interface {
	io.Closer

	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// GetObject returns the object body; the caller closes it.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	// ListObjects returns up to limit objects under prefix; limit <= 0 means all.
	ListObjects(ctx context.Context, bucket, prefix string, limit int) ([]ObjectInfo, error)
}

// PutOptions configures an upload. Size may be zero when unknown.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}
