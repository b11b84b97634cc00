package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist reports that the requested object is absent from the bucket.
var ErrNotExist = errors.New("object does not exist")

// Store abstracts S3-compatible object storage.
type Store interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	PutFile(ctx context.Context, bucket, key, path, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	DownloadFile(ctx context.Context, bucket, key, path string) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
