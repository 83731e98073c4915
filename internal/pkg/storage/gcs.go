package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSAdapter implements Storage using Google Cloud Storage.
type GCSAdapter struct {
	client *gcs.Client
}

// GCSOptions configures the GCS client. A nil Client creates one from
// application default credentials.
type GCSOptions struct {
	Client *gcs.Client
}

// NewGCS constructs a GCS adapter.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSAdapter, error) {
	client := opts.Client
	if client == nil {
		created, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		client = created
	}
	return &GCSAdapter{client: client}, nil
}

func (g *GCSAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.Metadata = opts.Metadata

	if _, err := io.Copy(writer, r); err != nil {
		return ObjectInfo{}, errors.Join(err, writer.Close())
	}
	if err := writer.Close(); err != nil {
		return ObjectInfo{}, err
	}

	if attrs := writer.Attrs(); attrs != nil {
		return gcsAttrsToInfo(attrs), nil
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        opts.Size,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}, nil
}

func (g *GCSAdapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return reader, ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        reader.Attrs.Size,
		ContentType: reader.Attrs.ContentType,
		UpdatedAt:   reader.Attrs.LastModified,
	}, nil
}

func (g *GCSAdapter) ListObjects(ctx context.Context, bucket, prefix string, limit int) ([]ObjectInfo, error) {
	it := g.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, gcsAttrsToInfo(attrs))
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}

// Close closes the GCS client.
func (g *GCSAdapter) Close() error {
	return g.client.Close()
}

func gcsAttrsToInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	return ObjectInfo{
		Bucket:      attrs.Bucket,
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
		UpdatedAt:   attrs.Updated,
	}
}
