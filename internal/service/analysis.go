package service

import (
	"context"
	"time"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/similarity"
)

// AnalysisService compares a single query image with a single reference.
type AnalysisService struct {
	engine *similarity.Engine
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(engine *similarity.Engine) *AnalysisService {
	return &AnalysisService{engine: engine}
}

// Compare scores query against reference. It never fails; unreadable images
// produce the failed verdict.
func (s *AnalysisService) Compare(ctx context.Context, query, reference string) domain.SimilarityResult {
	start := time.Now()
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldQuery: query, logger.FieldReference: reference})

	result := s.engine.Score(ctx, query, reference)
	metrics.VerdictsTotal.WithLabelValues("analyze", string(result.RiskLevel)).Inc()

	logger.With(logger.Fields{
		logger.FieldScore: result.Weighted,
		logger.FieldRisk:  result.RiskLevel,
	}).WithDuration(start).Info(ctx, "Analysis completed")
	return result
}
