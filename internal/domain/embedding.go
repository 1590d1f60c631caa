package domain

// LayerName identifies a stage of the feature extractor.
type LayerName string

const (
	// LayerEarly captures basic edges and shapes.
	LayerEarly LayerName = "early"
	// LayerMidLow captures textures and low-level patterns.
	LayerMidLow LayerName = "mid_low"
	// LayerMidHigh captures higher-order pattern statistics.
	LayerMidHigh LayerName = "mid_high"
	// LayerFinal is the pooled output of the network and doubles as the fingerprint.
	LayerFinal LayerName = "final"
)

// AllLayers lists every layer the similarity engine knows about, shallowest first.
var AllLayers = []LayerName{LayerEarly, LayerMidLow, LayerMidHigh, LayerFinal}

// Layers maps a layer name to its flattened feature vector.
// A Layers value always contains LayerFinal when produced by a healthy provider;
// intermediate layers are optional.
type Layers map[LayerName][]float32

// Final returns the fingerprint vector, or nil if the provider did not return one.
func (l Layers) Final() []float32 {
	return l[LayerFinal]
}

// Has reports whether the layer is present and non-empty.
func (l Layers) Has(name LayerName) bool {
	return len(l[name]) > 0
}
