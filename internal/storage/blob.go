// Package storage abstracts the external object store that holds
// uploaded project files. The core only needs three operations, so
// handlers depend on the BlobStore interface and tests can swap in
// the in-memory implementation.
package storage

import (
	"context"
	"io"
)

// BlobStore is the object-storage collaborator contract. Keys follow
// the layout projects/{project_name}/{version_label}/{filename}.
// DeletePrefix must be safe to call on an empty or non-existent
// prefix and produce no error.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
