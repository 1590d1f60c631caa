package domain

import "image"

// VideoInfo is informational metadata reported by the decoder.
type VideoInfo struct {
	TotalFrames     int     `json:"total_frames"`
	FPS             float64 `json:"fps"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// FrameSample is one frame taken from a video at a computed offset.
// TempPath is empty unless the sampler was asked to spill frames to disk;
// the caller owns removing it.
type FrameSample struct {
	Index       int         `json:"index"`
	FrameNumber int         `json:"frame_number"`
	TimeSeconds float64     `json:"time_seconds"`
	Image       image.Image `json:"-"`
	TempPath    string      `json:"path,omitempty"`
}

// FrameMatch pairs a frame with its analysis against a fixed reference.
type FrameMatch struct {
	Frame    FrameSample      `json:"frame_info"`
	Analysis SimilarityResult `json:"analysis"`
}

// FrameSearch pairs a frame with its top store matches.
type FrameSearch struct {
	Frame      FrameSample `json:"frame_info"`
	TopMatches []Match     `json:"top_matches"`
	BestMatch  *Match      `json:"best_match"`
}

// ReferenceSummary reduces a frame-vs-reference run.
type ReferenceSummary struct {
	TotalFrames      int `json:"total_frames"`
	HighRiskFrames   int `json:"high_risk_frames"`
	MediumRiskFrames int `json:"medium_risk_frames"`
}

// StoreScanSummary reduces a frame-vs-store run.
type StoreScanSummary struct {
	TotalFrames    int `json:"total_frames"`
	HighRiskFrames int `json:"high_risk_frames"`
	TotalMatches   int `json:"total_matches"`
}

// SummarizeReference counts risk levels across frames.
func SummarizeReference(frames []FrameMatch) ReferenceSummary {
	s := ReferenceSummary{TotalFrames: len(frames)}
	for _, f := range frames {
		switch f.Analysis.RiskLevel {
		case RiskHigh:
			s.HighRiskFrames++
		case RiskMedium:
			s.MediumRiskFrames++
		}
	}
	return s
}

// SummarizeStoreScan counts frames whose best match is HIGH risk and all matches found.
func SummarizeStoreScan(frames []FrameSearch) StoreScanSummary {
	s := StoreScanSummary{TotalFrames: len(frames)}
	for _, f := range frames {
		s.TotalMatches += len(f.TopMatches)
		if f.BestMatch != nil && f.BestMatch.Analysis.RiskLevel == RiskHigh {
			s.HighRiskFrames++
		}
	}
	return s
}
