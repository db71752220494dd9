// Package blobs persists file payloads and their derived thumbnails.
//
// A blob is addressed by its storage path, generated once per upload by
// Store.NewPath. Derived blobs live next to their source at
// DerivedPath(path, width).
package blobs

import (
	"context"
	"errors"
	"fmt"
)

var ErrBlobNotFound = errors.New("blob not found")

// Store is the blob area used by the file service and the thumbnail worker.
type Store interface {
	// NewPath returns a fresh, globally unique storage path under the root.
	NewPath() string
	// Write stores data at path, creating the root on demand. An existing
	// blob at path is replaced; readers see either the old or the new bytes.
	Write(ctx context.Context, path string, data []byte) error
	// Read returns the blob at path or an error wrapping ErrBlobNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// DerivedPath is the storage path of the thumbnail of path at width.
func DerivedPath(path string, width int) string {
	return fmt.Sprintf("%s_%d", path, width)
}
