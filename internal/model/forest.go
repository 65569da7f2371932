// Package model implements the seeded random-forest classifier behind the
// risk scorer: bootstrap-aggregated gini decision trees with probability
// output, impurity-based feature importance, and per-prediction path
// attribution. Training with the same seed, matrix, and labels always yields
// the same model.
package model

import (
	"fmt"
	"math/rand"
	"sort"
)

// Config holds the forest hyperparameters.
type Config struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// DefaultConfig mirrors the production training defaults.
func DefaultConfig() Config {
	return Config{
		NumTrees:        100,
		MaxDepth:        6,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// Forest is a fitted random forest for binary classification. All fields are
// exported for JSON persistence; a zero Forest is unfitted.
type Forest struct {
	Trees        []*decisionTree    `json:"trees"`
	TreeFeatures [][]int            `json:"tree_features"`
	FeatureNames []string           `json:"feature_names"`
	Importance   map[string]float64 `json:"feature_importance"`
	Cfg          Config             `json:"config"`
}

// NewForest returns an unfitted forest with the given hyperparameters.
// Non-positive values fall back to the defaults.
func NewForest(cfg Config) *Forest {
	def := DefaultConfig()
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = def.NumTrees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesSplit <= 0 {
		cfg.MinSamplesSplit = def.MinSamplesSplit
	}
	return &Forest{Cfg: cfg}
}

// Fit trains the forest on X (rows of feature values in the order of names)
// and binary labels y. Each tree gets a deterministic bootstrap sample and a
// √n feature subset drawn from a single seeded source.
func (f *Forest) Fit(X [][]float64, y []float64, names []string) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("model: need matching non-empty X and y, got %d rows and %d labels", len(X), len(y))
	}
	for i, row := range X {
		if len(row) != len(names) {
			return fmt.Errorf("model: row %d has %d values, want %d", i, len(row), len(names))
		}
	}

	rng := rand.New(rand.NewSource(f.Cfg.Seed))
	k := maxFeatures(len(names))
	rawImportance := make([]float64, len(names))

	f.FeatureNames = append([]string(nil), names...)
	f.Trees = make([]*decisionTree, f.Cfg.NumTrees)
	f.TreeFeatures = make([][]int, f.Cfg.NumTrees)

	for t := 0; t < f.Cfg.NumTrees; t++ {
		indices := bootstrapSample(rng, len(X))
		featureSet := featureSubset(rng, len(names), k)

		tree := &decisionTree{
			MaxDepth:        f.Cfg.MaxDepth,
			MinSamplesSplit: f.Cfg.MinSamplesSplit,
		}
		tree.fit(X, y, indices, featureSet, rawImportance)

		f.Trees[t] = tree
		f.TreeFeatures[t] = featureSet
	}

	f.Importance = normalizeImportance(rawImportance, names)
	return nil
}

// Fitted reports whether the forest has been trained.
func (f *Forest) Fitted() bool { return len(f.Trees) > 0 }

// PredictProba returns the positive-class probability for one feature row,
// averaged over all trees.
func (f *Forest) PredictProba(x []float64) (float64, error) {
	if !f.Fitted() {
		return 0, fmt.Errorf("model: forest is not fitted")
	}
	if len(x) != len(f.FeatureNames) {
		return 0, fmt.Errorf("model: row has %d values, want %d", len(x), len(f.FeatureNames))
	}

	sum := 0.0
	for _, tree := range f.Trees {
		sum += tree.predictProba(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportance returns a copy of the normalized impurity-decrease
// importance per feature name. Values sum to 1 for any fitted forest.
func (f *Forest) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(f.Importance))
	for name, v := range f.Importance {
		out[name] = v
	}
	return out
}

// TopFeatures returns up to n feature names ordered by descending importance,
// ties broken alphabetically so the order is stable.
func (f *Forest) TopFeatures(n int) []string {
	names := make([]string, 0, len(f.Importance))
	for name := range f.Importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if f.Importance[names[i]] != f.Importance[names[j]] {
			return f.Importance[names[i]] > f.Importance[names[j]]
		}
		return names[i] < names[j]
	})
	if n < len(names) {
		names = names[:n]
	}
	return names
}

// normalizeImportance scales raw impurity decreases to sum to 1. If no split
// produced any gain the mass is spread uniformly so the map stays usable for
// attribution fallback.
func normalizeImportance(raw []float64, names []string) map[string]float64 {
	total := 0.0
	for _, v := range raw {
		total += v
	}

	out := make(map[string]float64, len(names))
	for i, name := range names {
		if total > 0 {
			out[name] = raw[i] / total
		} else {
			out[name] = 1.0 / float64(len(names))
		}
	}
	return out
}
