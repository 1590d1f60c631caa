// Package embedding turns images into per-layer feature vectors.
package embedding

import (
	"context"
	"fmt"
	"image"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/imaging"
)

// Provider extracts layer features from a decoded image.
// Implementations must be deterministic for a given image and fail with an
// error wrapping domain.ErrExtraction.
type Provider interface {
	Embed(ctx context.Context, img image.Image) (domain.Layers, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, img image.Image) (domain.Layers, error)

// Embed calls f.
func (f ProviderFunc) Embed(ctx context.Context, img image.Image) (domain.Layers, error) {
	return f(ctx, img)
}

// Source extracts layer features for an image locator.
type Source interface {
	Extract(ctx context.Context, locator string) (domain.Layers, error)
}

// Extractor loads an image through a Loader and hands it to a Provider.
type Extractor struct {
	loader   imaging.Loader
	provider Provider
}

// NewExtractor creates an Extractor.
func NewExtractor(loader imaging.Loader, provider Provider) *Extractor {
	return &Extractor{loader: loader, provider: provider}
}

// Extract loads locator and embeds it. Any failure wraps domain.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, locator string) (domain.Layers, error) {
	img, err := e.loader.Load(ctx, locator)
	if err != nil {
		return nil, err
	}
	layers, err := e.provider.Embed(ctx, img)
	if err != nil {
		return nil, err
	}
	if !layers.Has(domain.LayerFinal) {
		return nil, fmt.Errorf("%w: provider returned no %s layer for %s", domain.ErrExtraction, domain.LayerFinal, locator)
	}
	return layers, nil
}

// EmbedImage embeds an already decoded image, enforcing the final-layer contract.
func (e *Extractor) EmbedImage(ctx context.Context, img image.Image) (domain.Layers, error) {
	layers, err := e.provider.Embed(ctx, img)
	if err != nil {
		return nil, err
	}
	if !layers.Has(domain.LayerFinal) {
		return nil, fmt.Errorf("%w: provider returned no %s layer", domain.ErrExtraction, domain.LayerFinal)
	}
	return layers, nil
}
