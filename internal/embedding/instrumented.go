package embedding

import (
	"context"
	"image"
	"time"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
)

// Instrumented records request count, latency and failures for a Provider.
type Instrumented struct {
	next     Provider
	provider string
	model    string
}

// NewInstrumented wraps next. provider and model label the metrics.
func NewInstrumented(next Provider, provider, model string) *Instrumented {
	return &Instrumented{next: next, provider: provider, model: model}
}

// Embed delegates to the wrapped provider.
func (i *Instrumented) Embed(ctx context.Context, img image.Image) (domain.Layers, error) {
	start := time.Now()
	layers, err := i.next.Embed(ctx, img)

	metrics.EmbeddingRequestDuration.WithLabelValues(i.provider, i.model).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(i.provider, i.model, status).Inc()

	entry := logger.With(logger.Fields{logger.FieldStatus: status}).WithDuration(start)
	if err != nil {
		entry.Warn(ctx, "Embedding failed: %v", err)
		return nil, err
	}
	entry.WithCount(len(layers)).Debug(ctx, "Embedded image")
	return layers, nil
}
