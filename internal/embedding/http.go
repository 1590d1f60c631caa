package embedding

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/imaging"
)

const (
	featuresPath   = "/v1/features"
	jpegQuality    = 92
	defaultTimeout = 30 * time.Second
)

// HTTPProvider calls a remote feature-extractor service.
type HTTPProvider struct {
	client    *resty.Client
	model     string
	inputSize int
	// aliases maps backend stage names to engine layer names.
	aliases map[string]domain.LayerName
}

// NewHTTPProvider creates a provider from configuration.
func NewHTTPProvider(cfg *config.EmbeddingConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	aliases := make(map[string]domain.LayerName, len(cfg.LayerAliases))
	for backend, layer := range cfg.LayerAliases {
		aliases[backend] = domain.LayerName(layer)
	}
	if len(aliases) == 0 {
		for _, l := range domain.AllLayers {
			aliases[string(l)] = l
		}
	}

	return &HTTPProvider{
		client:    client,
		model:     cfg.Model,
		inputSize: cfg.InputSize,
		aliases:   aliases,
	}
}

// Model returns the model identifier sent with each request.
func (p *HTTPProvider) Model() string {
	return p.model
}

type featuresRequest struct {
	Model  string   `json:"model"`
	Image  string   `json:"image"`
	Layers []string `json:"layers"`
}

type featuresResponse struct {
	Layers map[string][]float32 `json:"layers"`
	Error  string               `json:"error,omitempty"`
}

// Embed resizes img, uploads it as base64 JPEG and maps the returned stages to layers.
func (p *HTTPProvider) Embed(ctx context.Context, img image.Image) (domain.Layers, error) {
	data, err := imaging.EncodeJPEG(imaging.Square(img, p.inputSize), jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	req := featuresRequest{
		Model:  p.model,
		Image:  base64.StdEncoding.EncodeToString(data),
		Layers: p.backendLayers(),
	}

	var resp featuresResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(featuresPath)
	if err != nil {
		return nil, fmt.Errorf("%w: call feature service: %v", domain.ErrExtraction, err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: feature service: %s", domain.ErrExtraction, resp.Error)
		}
		return nil, fmt.Errorf("%w: feature service status %d", domain.ErrExtraction, httpResp.StatusCode())
	}

	layers := make(domain.Layers, len(resp.Layers))
	for name, vec := range resp.Layers {
		layer, ok := p.aliases[name]
		if !ok || len(vec) == 0 {
			continue
		}
		layers[layer] = vec
	}
	if !layers.Has(domain.LayerFinal) {
		return nil, fmt.Errorf("%w: feature service returned no %s layer", domain.ErrExtraction, domain.LayerFinal)
	}
	return layers, nil
}

func (p *HTTPProvider) backendLayers() []string {
	names := make([]string, 0, len(p.aliases))
	for name := range p.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
