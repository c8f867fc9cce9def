// Package storage abstracts the ciphertext blob store. The server never
// inspects blob contents; it only moves opaque bytes keyed by storage key.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore stores and retrieves opaque ciphertext blobs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FolderFor maps a declared content type onto a bucket prefix. The type is
// client-declared metadata only; the stored bytes are always ciphertext.
func FolderFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "photos"
	case strings.HasPrefix(contentType, "video/"):
		return "videos"
	default:
		return "documents"
	}
}

// NewStorageKey builds the object key for a blob: the content-type
// folder, a random UUID and the display name.
func NewStorageKey(contentType, name string) string {
	return fmt.Sprintf("%s/%v_%s", FolderFor(contentType), uuid.New(), name)
}
