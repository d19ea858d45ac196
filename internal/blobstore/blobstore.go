// Package blobstore is the byte-oriented file I/O contract the core
// treats as an external collaborator (spec §1): read(path) -> bytes,
// write(path, bytes) -> error. The gocloud.dev/blob-backed implementation
// is grounded on denisvmedia-inventario/go/backup/export's use of the
// same library for archive I/O, and makes the CLI transport-agnostic —
// pointing it at a "file://", "s3://", or "gcs://" bucket URL never
// touches the package codec above it.
package blobstore

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"

	"github.com/psqlpack/psqlpack/internal/perrors"
)

// Store is the byte-oriented contract the build/publish pipelines use for
// every file read or write (project sources, packages, profiles).
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Close() error
}

type bucketStore struct {
	bucket *blob.Bucket
}

// Open binds a Store to a gocloud.dev bucket URL, e.g. "file:///var/psqlpack"
// for local disk or any other registered gocloud.dev/blob driver.
func Open(ctx context.Context, bucketURL string) (Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, perrors.NewIOError(bucketURL, err)
	}
	return &bucketStore{bucket: bucket}, nil
}

func (s *bucketStore) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.NewReader(ctx, path, nil)
	if err != nil {
		return nil, perrors.NewIOError(path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, perrors.NewIOError(path, err)
	}
	return data, nil
}

func (s *bucketStore) Write(ctx context.Context, path string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, path, nil)
	if err != nil {
		return perrors.NewIOError(path, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return perrors.NewIOError(path, err)
	}
	if err := w.Close(); err != nil {
		return perrors.NewIOError(path, err)
	}
	return nil
}

func (s *bucketStore) Close() error {
	if err := s.bucket.Close(); err != nil {
		return fmt.Errorf("closing bucket: %w", err)
	}
	return nil
}
