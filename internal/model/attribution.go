package model

import "math"

// AttributionProvider explains a single prediction as per-feature
// contributions. Implementations differ in fidelity: path attribution is
// signed and prediction-specific, importance attribution is an unsigned
// global fallback.
type AttributionProvider interface {
	Attribute(f *Forest, x []float64) map[string]float64
}

// PathAttributor decomposes a prediction along each tree's decision path:
// every split shifts the running positive fraction, and that shift is
// credited to the split feature. Contributions are signed and, together with
// the forest-wide bias, sum to the predicted probability per tree.
type PathAttributor struct{}

func (PathAttributor) Attribute(f *Forest, x []float64) map[string]float64 {
	if f == nil || !f.Fitted() || len(x) != len(f.FeatureNames) {
		return map[string]float64{}
	}

	totals := make([]float64, len(f.FeatureNames))
	for _, tree := range f.Trees {
		node := tree.Root
		for node != nil && !node.Leaf {
			next := node.Right
			if x[node.Feature] <= node.Threshold {
				next = node.Left
			}
			if next == nil {
				break
			}
			totals[node.Feature] += next.Positive - node.Positive
			node = next
		}
	}

	out := make(map[string]float64, len(f.FeatureNames))
	n := float64(len(f.Trees))
	for i, name := range f.FeatureNames {
		out[name] = totals[i] / n
	}
	return out
}

// ImportanceAttributor falls back to global feature importance, signing each
// contribution by whether the (standardized) feature value sits above or
// below zero. Coarser than path attribution but always available for a
// fitted forest.
type ImportanceAttributor struct{}

func (ImportanceAttributor) Attribute(f *Forest, x []float64) map[string]float64 {
	if f == nil || !f.Fitted() || len(x) != len(f.FeatureNames) {
		return map[string]float64{}
	}

	out := make(map[string]float64, len(f.FeatureNames))
	for i, name := range f.FeatureNames {
		v := f.Importance[name]
		if x[i] < 0 || math.Signbit(x[i]) {
			v = -v
		}
		out[name] = v
	}
	return out
}
