// Package imaging opens reference and query images from local disk or object storage.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/storage"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader resolves a locator to a decoded image.
type Loader interface {
	Load(ctx context.Context, locator string) (image.Image, error)
}

// FileLoader reads images from the local filesystem.
type FileLoader struct{}

// Load opens and decodes a local file.
func (FileLoader) Load(_ context.Context, path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()
	return Decode(f, path)
}

// StorageLoader reads images from object storage by locator.
type StorageLoader struct {
	Storage storage.ObjectStorage
}

// Load downloads and decodes a storage:// locator.
func (l StorageLoader) Load(ctx context.Context, locator string) (image.Image, error) {
	key, ok := storage.KeyFromLocator(locator)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a storage locator", domain.ErrExtraction, locator)
	}
	rc, err := l.Storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	defer rc.Close()
	return Decode(rc, locator)
}

// Router sends storage:// locators to object storage and everything else to disk.
type Router struct {
	Files   Loader
	Objects Loader // nil when no object storage is configured
}

// NewRouter builds a Router; objectStorage may be nil.
func NewRouter(objectStorage storage.ObjectStorage) *Router {
	r := &Router{Files: FileLoader{}}
	if objectStorage != nil {
		r.Objects = StorageLoader{Storage: objectStorage}
	}
	return r
}

// Load dispatches on the locator scheme.
func (r *Router) Load(ctx context.Context, locator string) (image.Image, error) {
	if _, ok := storage.KeyFromLocator(locator); ok {
		if r.Objects == nil {
			return nil, fmt.Errorf("%w: no object storage configured for %s", domain.ErrExtraction, locator)
		}
		return r.Objects.Load(ctx, locator)
	}
	return r.Files.Load(ctx, locator)
}

// Decode decodes any registered format. name is used only in error messages.
func Decode(r io.Reader, name string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrExtraction, name, err)
	}
	return img, nil
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJPEG writes img to path as JPEG.
func WriteJPEG(path string, img image.Image, quality int) error {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
