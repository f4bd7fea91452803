package quota

import (
	"context"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BlobStore stores each key as a small text object in a bucket.
type BlobStore struct {
	bucket *blob.Bucket
}

// NewBlobStore returns a Store backed by bucket. The caller owns the bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Get implements Store.
func (s *BlobStore) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Set implements Store.
func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	return s.bucket.WriteAll(ctx, key, []byte(value), &blob.WriterOptions{
		ContentType: "text/plain; charset=utf-8",
	})
}
