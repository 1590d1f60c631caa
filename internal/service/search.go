package service

import (
	"context"
	"sort"
	"time"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/embedding"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/similarity"
)

// DefaultAdmissionThreshold is the coarse similarity a record must exceed to be fully scored.
const DefaultAdmissionThreshold = 0.3

// Catalog is the read side of the fingerprint store used by search.
type Catalog interface {
	// Snapshot returns every record in enumeration order.
	Snapshot() []domain.FingerprintRecord
}

// SearchConfig holds configuration for search service.
type SearchConfig struct {
	AdmissionThreshold float64
	Workers            int
}

// SearchService ranks stored fingerprints against a query image in two stages:
// a final-layer cosine filter, then full multi-layer scoring of the survivors.
type SearchService struct {
	catalog   Catalog
	engine    *similarity.Engine
	admission float64
	workers   int
}

// NewSearchService creates a new search service.
// Parameters:
//   - catalog: fingerprint records to scan.
//   - engine: similarity engine used for the full scoring stage.
//   - cfg: admission threshold and worker count; nil uses defaults.
//
// Returns:
//   - *SearchService: initialized search service.
func NewSearchService(catalog Catalog, engine *similarity.Engine, cfg *SearchConfig) *SearchService {
	s := &SearchService{
		catalog:   catalog,
		engine:    engine,
		admission: DefaultAdmissionThreshold,
		workers:   1,
	}
	if cfg != nil {
		s.admission = cfg.AdmissionThreshold
		if cfg.Workers > 0 {
			s.workers = cfg.Workers
		}
	}
	return s
}

type candidate struct {
	record domain.FingerprintRecord
	coarse float64
}

// Search returns up to k matches for the image at queryLocator, best coarse
// similarity first. Records at or below the admission threshold are never
// returned. k <= 0, an empty store or an unreadable query give an empty result.
func (s *SearchService) Search(ctx context.Context, queryLocator string, k int) []domain.Match {
	start := time.Now()
	ctx = logger.WithField(ctx, logger.FieldQuery, queryLocator)
	if k <= 0 {
		return []domain.Match{}
	}
	records := s.catalog.Snapshot()
	if len(records) == 0 {
		return []domain.Match{}
	}

	memo := embedding.NewMemo(s.engine.Source())
	query, err := memo.Extract(ctx, queryLocator)
	if err != nil {
		logger.CtxWarn(ctx, "Search aborted, query extraction failed: %v", err)
		return []domain.Match{}
	}

	var admitted []candidate
	for _, rec := range records {
		coarse := similarity.Cosine(query.Final(), rec.Fingerprint)
		if coarse > s.admission {
			admitted = append(admitted, candidate{record: rec, coarse: coarse})
		}
	}
	metrics.SearchCandidates.Observe(float64(len(admitted)))

	engine := s.engine.WithSource(memo)
	matches := make([]domain.Match, len(admitted))
	done := forEachIndexed(ctx, s.workers, len(admitted), func(ctx context.Context, i int) {
		c := admitted[i]
		matches[i] = domain.Match{
			ImageID:     c.record.ImageID,
			Similarity:  c.coarse,
			Title:       c.record.Title,
			Owner:       c.record.Owner,
			Description: c.record.Description,
			Path:        c.record.Path,
			Analysis:    engine.Score(ctx, queryLocator, c.record.Path),
		}
	})
	// A cancelled search returns only the candidates it finished scoring.
	matches = filled(matches, done)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	for _, m := range matches {
		metrics.VerdictsTotal.WithLabelValues("search", string(m.Analysis.RiskLevel)).Inc()
	}

	logger.With(logger.Fields{
		"scanned":  len(records),
		"admitted": len(admitted),
	}).WithCount(len(matches)).WithDuration(start).Info(ctx, "Search completed")
	return matches
}
