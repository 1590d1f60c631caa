package storage

import (
	"context"
	"io"
	"strings"
)

// Scheme prefixes locators that live in object storage rather than on local disk.
const Scheme = "storage://"

// ObjectStorage keeps copies of registered reference images.
type ObjectStorage interface {
	// EnsureBucket prepares the backing bucket or directory.
	EnsureBucket(ctx context.Context) error

	// Upload writes an object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns an address a client can fetch the object from.
	GetURL(key string) string

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// Locator turns an object key into the locator stored on fingerprint records.
func Locator(key string) string {
	return Scheme + key
}

// KeyFromLocator extracts the object key from a storage locator.
func KeyFromLocator(locator string) (string, bool) {
	if !strings.HasPrefix(locator, Scheme) {
		return "", false
	}
	return strings.TrimPrefix(locator, Scheme), true
}
