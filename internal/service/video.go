package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/embedding"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/similarity"
	"github.com/timmy/copyscale/internal/video"
)

// DefaultMatchesPerFrame is the store matches kept per frame when unspecified.
const DefaultMatchesPerFrame = 2

// VideoConfig holds configuration for the video service.
type VideoConfig struct {
	Frames          int
	MatchesPerFrame int
	Workers         int
	// TempDir receives sampled frames while they are analyzed.
	TempDir string
}

// ReferenceReport is the result of matching a video against one reference image.
type ReferenceReport struct {
	Video   domain.VideoInfo        `json:"video"`
	Frames  []domain.FrameMatch     `json:"frames"`
	Summary domain.ReferenceSummary `json:"summary"`
}

// StoreReport is the result of matching a video against the whole store.
type StoreReport struct {
	Video   domain.VideoInfo        `json:"video"`
	Frames  []domain.FrameSearch    `json:"frames"`
	Summary domain.StoreScanSummary `json:"summary"`
}

// VideoService applies image matching to frames sampled from a video.
type VideoService struct {
	sampler   *video.Sampler
	engine    *similarity.Engine
	search    *SearchService
	frames    int
	perFrameK int
	workers   int
}

// NewVideoService creates a new video service.
// Parameters:
//   - decoder: opens video files for frame access.
//   - engine: similarity engine for frame-vs-reference scoring.
//   - search: store search used per frame.
//   - cfg: sampling and concurrency settings; nil uses defaults.
//
// Returns:
//   - *VideoService: initialized video service.
func NewVideoService(decoder video.Decoder, engine *similarity.Engine, search *SearchService, cfg *VideoConfig) *VideoService {
	if cfg == nil {
		cfg = &VideoConfig{}
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "copyscale-frames")
	}
	s := &VideoService{
		sampler:   video.NewSampler(decoder, tempDir),
		engine:    engine,
		search:    search,
		frames:    cfg.Frames,
		perFrameK: cfg.MatchesPerFrame,
		workers:   cfg.Workers,
	}
	if s.frames <= 0 {
		s.frames = video.DefaultFrames
	}
	if s.perFrameK <= 0 {
		s.perFrameK = DefaultMatchesPerFrame
	}
	return s
}

// sample extracts frames, logging decode failures instead of returning them.
func (s *VideoService) sample(ctx context.Context, videoLocator string) ([]domain.FrameSample, domain.VideoInfo) {
	frames, info, err := s.sampler.Sample(ctx, videoLocator, s.frames)
	if err != nil {
		logger.CtxWarn(ctx, "Video sampling incomplete: %v", err)
	}
	if len(frames) == 0 {
		logger.CtxWarn(ctx, "No frames extracted from video")
	}
	return frames, info
}

// MatchAgainstReference scores every sampled frame against referenceLocator,
// in frame order. A video that cannot be decoded yields an empty report.
func (s *VideoService) MatchAgainstReference(ctx context.Context, videoLocator, referenceLocator string) ReferenceReport {
	start := time.Now()
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldVideo: videoLocator, logger.FieldReference: referenceLocator})

	frames, info := s.sample(ctx, videoLocator)
	defer video.Cleanup(frames)

	// The reference is embedded once for the whole video.
	engine := s.engine.WithSource(embedding.NewMemo(s.engine.Source()))
	results := make([]domain.FrameMatch, len(frames))
	done := forEachIndexed(ctx, s.workers, len(frames), func(ctx context.Context, i int) {
		f := frames[i]
		analysis := engine.Score(ctx, f.TempPath, referenceLocator)
		metrics.VerdictsTotal.WithLabelValues("video_reference", string(analysis.RiskLevel)).Inc()
		results[i] = domain.FrameMatch{Frame: detached(f), Analysis: analysis}
	})
	results = filled(results, done)

	report := ReferenceReport{Video: info, Frames: results, Summary: domain.SummarizeReference(results)}
	logger.With(logger.Fields{
		"high_risk_frames":   report.Summary.HighRiskFrames,
		"medium_risk_frames": report.Summary.MediumRiskFrames,
	}).WithCount(len(results)).WithDuration(start).Info(ctx, "Video reference match completed")
	return report
}

// MatchAgainstStore searches the store with every sampled frame, keeping up to
// perFrameK matches per frame. perFrameK <= 0 uses the configured default.
func (s *VideoService) MatchAgainstStore(ctx context.Context, videoLocator string, perFrameK int) StoreReport {
	start := time.Now()
	ctx = logger.WithField(ctx, logger.FieldVideo, videoLocator)
	if perFrameK <= 0 {
		perFrameK = s.perFrameK
	}

	frames, info := s.sample(ctx, videoLocator)
	defer video.Cleanup(frames)

	results := make([]domain.FrameSearch, len(frames))
	done := forEachIndexed(ctx, s.workers, len(frames), func(ctx context.Context, i int) {
		f := frames[i]
		matches := s.search.Search(logger.WithField(ctx, logger.FieldFrame, f.FrameNumber), f.TempPath, perFrameK)
		fs := domain.FrameSearch{Frame: detached(f), TopMatches: matches}
		if len(matches) > 0 {
			best := matches[0]
			fs.BestMatch = &best
		}
		results[i] = fs
	})
	results = filled(results, done)

	report := StoreReport{Video: info, Frames: results, Summary: domain.SummarizeStoreScan(results)}
	logger.With(logger.Fields{
		"high_risk_frames": report.Summary.HighRiskFrames,
		"total_matches":    report.Summary.TotalMatches,
	}).WithCount(len(results)).WithDuration(start).Info(ctx, "Video store scan completed")
	return report
}

// detached drops the temp file reference, which is removed once analysis ends.
func detached(f domain.FrameSample) domain.FrameSample {
	f.TempPath = ""
	return f
}
