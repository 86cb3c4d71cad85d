// Package archive exports aged event cells to object storage as
// snappy-compressed JSON-lines batches, optionally deleting them from the
// events table after a successful upload.
package archive

import (
	"context"
	"errors"
)

// Common errors for object storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the archive destination. Implementations cover
// AWS S3 and the local filesystem.
type ObjectStorage interface {
	// Put writes one object.
	Put(ctx context.Context, objectPath string, data []byte) error

	// Get reads one object. A missing object returns ErrObjectNotFound.
	Get(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
