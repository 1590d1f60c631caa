package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))

	body := []byte("reference image bytes")
	require.NoError(t, s.Upload(ctx, "refs/a.jpg", bytes.NewReader(body), int64(len(body)), "image/jpeg"))

	ok, err := s.Exists(ctx, "refs/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, "refs/a.jpg")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, body, got)

	require.NoError(t, s.Delete(ctx, "refs/a.jpg"))
	require.NoError(t, s.Delete(ctx, "refs/a.jpg"), "deleting a missing object is not an error")

	ok, err = s.Exists(ctx, "refs/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = s.Upload(context.Background(), "../outside.jpg", bytes.NewReader(nil), 0, "image/jpeg")
	assert.Error(t, err)
}

func TestLocator(t *testing.T) {
	loc := Locator("references/x.png")
	assert.Equal(t, "storage://references/x.png", loc)

	key, ok := KeyFromLocator(loc)
	assert.True(t, ok)
	assert.Equal(t, "references/x.png", key)

	_, ok = KeyFromLocator("/tmp/x.png")
	assert.False(t, ok)
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, detectStorageType(tt.endpoint))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "minio.local:9000", normalizeEndpoint("http://minio.local:9000/bucket/x"))
	assert.Equal(t, "s3.amazonaws.com", normalizeEndpoint("https://s3.amazonaws.com"))
}
