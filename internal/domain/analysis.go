package domain

// RiskLevel is the discrete verdict derived from the weighted similarity score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// SimilarityResult is the full comparison of a query image against a reference image.
// It is derived on demand and never persisted.
//
// Weighted is a linear combination of the three component scores and is not clamped;
// callers must not treat it as a probability.
type SimilarityResult struct {
	Direct    float64   `json:"direct_similarity"`
	Style     float64   `json:"style_similarity"`
	Content   float64   `json:"content_similarity"`
	Weighted  float64   `json:"weighted_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	AITrained bool      `json:"is_ai_trained"`
	Notes     []string  `json:"analysis_notes"`
}

// Failed reports whether the result is the local-recovery verdict produced when
// one of the images could not be embedded.
func (r SimilarityResult) Failed() bool {
	return len(r.Notes) == 1 && r.Notes[0] == NoteAnalysisFailed
}

// Analysis note texts.
const (
	NoteDirectExact       = "Very high direct similarity - potential exact copy"
	NoteDirectStructural  = "High direct similarity - strong structural match"
	NoteDirectModerate    = "Moderate direct similarity - some structural elements match"
	NoteStyleStrong       = "Strong style match - similar artistic patterns and textures"
	NoteStyleModerate     = "Moderate style influence - some stylistic elements shared"
	NoteContentHigh       = "High content similarity - similar subjects and composition"
	NoteContentModerate   = "Moderate content match - some subject matter overlap"
	NoteMinimalSimilarity = "Minimal similarities detected - low risk of training data contamination"
	NoteAnalysisFailed    = "Analysis failed due to error"
)

// FailedResult is the verdict returned when embedding either image fails.
func FailedResult() SimilarityResult {
	return SimilarityResult{
		RiskLevel: RiskLow,
		Notes:     []string{NoteAnalysisFailed},
	}
}
