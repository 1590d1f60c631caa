package domain

import "errors"

var (
	// ErrExtraction means the embedding provider could not process an image.
	ErrExtraction = errors.New("embedding extraction failed")
	// ErrStoreIO means the persisted fingerprint document could not be read or written.
	ErrStoreIO = errors.New("fingerprint store io")
	// ErrVideoDecode means a video could not be opened or a frame could not be read.
	ErrVideoDecode = errors.New("video decode failed")
	// ErrNotFound means no record exists for the given id.
	ErrNotFound = errors.New("fingerprint not found")
	// ErrIDCollision is returned only when the store is configured to reject overwrites.
	ErrIDCollision = errors.New("fingerprint id already registered")
)
