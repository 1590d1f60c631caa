package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintID(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		title    string
		filename string
		want     string
	}{
		{"plain", "alice", "Sunset", "sunset.png", "alice_Sunset_sunset.png"},
		{"path is reduced to base name", "alice", "Sunset", "/tmp/uploads/sunset.png", "alice_Sunset_sunset.png"},
		{"spaces kept", "Bob Studio", "Cat", "cat.jpg", "Bob Studio_Cat_cat.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FingerprintID(tt.owner, tt.title, tt.filename))
		})
	}
}

func TestVectorValueScan(t *testing.T) {
	v, err := Vector{0.5, -1, 2}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[0.5,-1,2]", v)

	empty, err := Vector(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	var got Vector
	require.NoError(t, got.Scan([]byte("[1,2,3]")))
	assert.Equal(t, Vector{1, 2, 3}, got)

	require.NoError(t, got.Scan("[4]"))
	assert.Equal(t, Vector{4}, got)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)

	assert.Error(t, got.Scan(42))
}

func TestFailedResult(t *testing.T) {
	r := FailedResult()
	assert.True(t, r.Failed())
	assert.Equal(t, RiskLow, r.RiskLevel)
	assert.Zero(t, r.Weighted)

	ok := SimilarityResult{RiskLevel: RiskLow, Notes: []string{NoteMinimalSimilarity}}
	assert.False(t, ok.Failed())
}

func TestSummarizeReference(t *testing.T) {
	frames := []FrameMatch{
		{Analysis: SimilarityResult{RiskLevel: RiskHigh}},
		{Analysis: SimilarityResult{RiskLevel: RiskMedium}},
		{Analysis: SimilarityResult{RiskLevel: RiskMedium}},
		{Analysis: SimilarityResult{RiskLevel: RiskLow}},
	}
	assert.Equal(t, ReferenceSummary{TotalFrames: 4, HighRiskFrames: 1, MediumRiskFrames: 2}, SummarizeReference(frames))
	assert.Equal(t, ReferenceSummary{}, SummarizeReference(nil))
}

func TestSummarizeStoreScan(t *testing.T) {
	high := Match{Analysis: SimilarityResult{RiskLevel: RiskHigh}}
	low := Match{Analysis: SimilarityResult{RiskLevel: RiskLow}}
	frames := []FrameSearch{
		{TopMatches: []Match{high, low}, BestMatch: &high},
		{TopMatches: []Match{low}, BestMatch: &low},
		{TopMatches: []Match{}},
	}
	assert.Equal(t, StoreScanSummary{TotalFrames: 3, HighRiskFrames: 1, TotalMatches: 3}, SummarizeStoreScan(frames))
}

func TestLayers(t *testing.T) {
	l := Layers{LayerFinal: {1}, LayerEarly: {}}
	assert.Equal(t, []float32{1}, l.Final())
	assert.True(t, l.Has(LayerFinal))
	assert.False(t, l.Has(LayerEarly))
	assert.False(t, l.Has(LayerMidLow))
}
