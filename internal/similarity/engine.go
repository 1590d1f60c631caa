package similarity

import (
	"context"

	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/embedding"
	"github.com/timmy/copyscale/internal/logger"
)

// Weights combine the component scores into the weighted score. They are not normalized.
type Weights struct {
	Direct  float64
	Style   float64
	Content float64
}

// Thresholds split the weighted score into risk levels. Both are exclusive lower bounds.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultWeights favor structural and content copying over shared style.
var DefaultWeights = Weights{Direct: 0.5, Style: 0.1, Content: 0.5}

// DefaultThresholds are the HIGH and MEDIUM cut-offs.
var DefaultThresholds = Thresholds{High: 0.7, Medium: 0.4}

var (
	styleLayers   = []domain.LayerName{domain.LayerMidLow, domain.LayerMidHigh}
	contentLayers = []domain.LayerName{domain.LayerEarly, domain.LayerFinal}
)

// Engine scores a query image against a reference image.
type Engine struct {
	source     embedding.Source
	weights    Weights
	thresholds Thresholds
}

// NewEngine creates an Engine with default weights and thresholds.
func NewEngine(source embedding.Source) *Engine {
	return &Engine{source: source, weights: DefaultWeights, thresholds: DefaultThresholds}
}

// NewEngineFromConfig creates an Engine using configured weights and thresholds.
func NewEngineFromConfig(source embedding.Source, cfg config.SimilarityConfig) *Engine {
	return &Engine{
		source: source,
		weights: Weights{
			Direct:  cfg.Weights.Direct,
			Style:   cfg.Weights.Style,
			Content: cfg.Weights.Content,
		},
		thresholds: Thresholds{High: cfg.Thresholds.High, Medium: cfg.Thresholds.Medium},
	}
}

// WithSource returns a copy of e that extracts through source.
// Match Search uses it to route every candidate through one call-scoped memo.
func (e *Engine) WithSource(source embedding.Source) *Engine {
	c := *e
	c.source = source
	return &c
}

// Source returns the extractor the engine uses.
func (e *Engine) Source() embedding.Source {
	return e.source
}

// Score embeds both locators and compares them. Extraction failures never
// propagate; they yield domain.FailedResult.
func (e *Engine) Score(ctx context.Context, query, reference string) domain.SimilarityResult {
	a, err := e.source.Extract(ctx, query)
	if err != nil {
		logger.With(logger.Fields{logger.FieldQuery: query}).Warn(ctx, "Query extraction failed: %v", err)
		return domain.FailedResult()
	}
	b, err := e.source.Extract(ctx, reference)
	if err != nil {
		logger.With(logger.Fields{logger.FieldReference: reference}).Warn(ctx, "Reference extraction failed: %v", err)
		return domain.FailedResult()
	}
	return e.Compare(a, b)
}

// Compare scores two already extracted layer sets.
func (e *Engine) Compare(a, b domain.Layers) domain.SimilarityResult {
	r := domain.SimilarityResult{
		Direct:  Cosine(a.Final(), b.Final()),
		Style:   meanOver(a, b, styleLayers),
		Content: meanOver(a, b, contentLayers),
	}
	r.Weighted = e.weights.Direct*r.Direct + e.weights.Style*r.Style + e.weights.Content*r.Content
	r.RiskLevel, r.AITrained = e.Classify(r.Weighted)
	r.Notes = Notes(r.Direct, r.Style, r.Content)
	return r
}

// Classify maps a weighted score to a risk level and the trained flag.
func (e *Engine) Classify(weighted float64) (domain.RiskLevel, bool) {
	switch {
	case weighted > e.thresholds.High:
		return domain.RiskHigh, true
	case weighted > e.thresholds.Medium:
		return domain.RiskMedium, true
	default:
		return domain.RiskLow, false
	}
}

// meanOver averages per-layer cosine across layers present on both sides.
func meanOver(a, b domain.Layers, layers []domain.LayerName) float64 {
	var sum float64
	var n int
	for _, l := range layers {
		if !a.Has(l) || !b.Has(l) {
			continue
		}
		sum += Cosine(a[l], b[l])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
