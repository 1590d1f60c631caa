package embedding

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/imaging"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)
	return img
}

func newFeatureServer(t *testing.T, status int, body any, seen *featuresRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, featuresPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerFor(url string) *HTTPProvider {
	return NewHTTPProvider(&config.EmbeddingConfig{
		Provider:  "http",
		BaseURL:   url,
		APIKey:    "secret",
		Model:     "feature-net",
		InputSize: 4,
		LayerAliases: map[string]string{
			"layer1": "early",
			"layer3": "mid_high",
			"pool":   "final",
		},
	})
}

func TestHTTPProviderMapsAliases(t *testing.T) {
	var seen featuresRequest
	srv := newFeatureServer(t, http.StatusOK, map[string]any{
		"layers": map[string][]float32{
			"layer1":  {1, 2},
			"layer3":  {3},
			"pool":    {0.5, 0.5},
			"unknown": {9},
		},
	}, &seen)

	layers, err := providerFor(srv.URL).Embed(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, "feature-net", seen.Model)
	assert.Equal(t, []string{"layer1", "layer3", "pool"}, seen.Layers)
	raw, err := base64.StdEncoding.DecodeString(seen.Image)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, raw[:2], "image is sent as JPEG")

	assert.Equal(t, []float32{1, 2}, layers[domain.LayerEarly])
	assert.Equal(t, []float32{3}, layers[domain.LayerMidHigh])
	assert.Equal(t, []float32{0.5, 0.5}, layers.Final())
	assert.Len(t, layers, 3)
}

func TestHTTPProviderFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"server error with message", http.StatusInternalServerError, map[string]string{"error": "model not loaded"}},
		{"server error without message", http.StatusBadGateway, map[string]string{}},
		{"missing final layer", http.StatusOK, map[string]any{"layers": map[string][]float32{"layer1": {1}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newFeatureServer(t, tc.status, tc.body, nil)
			_, err := providerFor(srv.URL).Embed(context.Background(), testImage())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrExtraction))
		})
	}
}

type mapLoader map[string]image.Image

func (m mapLoader) Load(_ context.Context, locator string) (image.Image, error) {
	img, ok := m[locator]
	if !ok {
		return nil, domain.ErrExtraction
	}
	return img, nil
}

var _ imaging.Loader = mapLoader{}

func TestExtractorRequiresFinalLayer(t *testing.T) {
	loader := mapLoader{"a.png": testImage()}
	noFinal := ProviderFunc(func(context.Context, image.Image) (domain.Layers, error) {
		return domain.Layers{domain.LayerEarly: {1}}, nil
	})

	_, err := NewExtractor(loader, noFinal).Extract(context.Background(), "a.png")
	assert.True(t, errors.Is(err, domain.ErrExtraction))

	_, err = NewExtractor(loader, noFinal).Extract(context.Background(), "missing.png")
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (c *countingSource) Extract(context.Context, string) (domain.Layers, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return domain.Layers{domain.LayerFinal: {1}}, nil
}

func TestMemoExtractsOncePerLocator(t *testing.T) {
	src := &countingSource{}
	memo := NewMemo(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := memo.Extract(context.Background(), "query.png")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, _ = memo.Extract(context.Background(), "other.png")

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestMemoCachesFailures(t *testing.T) {
	src := &countingSource{err: domain.ErrExtraction}
	memo := NewMemo(src)

	for i := 0; i < 3; i++ {
		_, err := memo.Extract(context.Background(), "bad.png")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestMemoPrime(t *testing.T) {
	src := &countingSource{}
	memo := NewMemo(src)
	memo.Prime("frame-1", domain.Layers{domain.LayerFinal: {0, 1}})

	layers, err := memo.Extract(context.Background(), "frame-1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, layers.Final())
	assert.Zero(t, src.calls.Load())
}

func TestInstrumentedPassesThrough(t *testing.T) {
	inner := ProviderFunc(func(context.Context, image.Image) (domain.Layers, error) {
		return domain.Layers{domain.LayerFinal: {1}}, nil
	})
	layers, err := NewInstrumented(inner, "test", "m").Embed(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, layers.Final())

	failing := ProviderFunc(func(context.Context, image.Image) (domain.Layers, error) {
		return nil, domain.ErrExtraction
	})
	_, err = NewInstrumented(failing, "test", "m").Embed(context.Background(), testImage())
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
