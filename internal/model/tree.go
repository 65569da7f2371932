package model

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a fitted decision tree. Positive holds the
// fraction of positive training samples that reached the node; for leaves it
// is the predicted probability, for internal nodes it feeds path-based
// attribution.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Positive  float64   `json:"positive"`
	Samples   int       `json:"samples"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// decisionTree is a binary classification tree trained by recursive
// gini-impurity splitting.
type decisionTree struct {
	Root            *treeNode `json:"root"`
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
}

// fit builds the tree on the given sample indices, considering only the
// features in featureSet at each split. importance accumulates the weighted
// impurity decrease per feature index.
func (t *decisionTree) fit(X [][]float64, y []float64, indices, featureSet []int, importance []float64) {
	t.Root = t.buildNode(X, y, indices, featureSet, 0, len(indices), importance)
}

func (t *decisionTree) buildNode(X [][]float64, y []float64, indices, featureSet []int, depth, rootSamples int, importance []float64) *treeNode {
	node := &treeNode{
		Positive: positiveFraction(y, indices),
		Samples:  len(indices),
	}

	if depth >= t.MaxDepth || len(indices) < t.MinSamplesSplit || homogeneous(y, indices) {
		node.Leaf = true
		return node
	}

	feature, threshold, gain := bestSplit(X, y, indices, featureSet)
	if gain <= 0 {
		node.Leaf = true
		return node
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		node.Leaf = true
		return node
	}

	importance[feature] += gain * float64(len(indices)) / float64(rootSamples)

	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.buildNode(X, y, left, featureSet, depth+1, rootSamples, importance)
	node.Right = t.buildNode(X, y, right, featureSet, depth+1, rootSamples, importance)
	return node
}

// predictProba walks the tree and returns the leaf's positive fraction.
func (t *decisionTree) predictProba(x []float64) float64 {
	node := t.Root
	for node != nil && !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0.5
	}
	return node.Positive
}

// bestSplit scans every candidate threshold of every feature in featureSet
// and returns the split with the highest gini gain. Candidates are midpoints
// between consecutive distinct sorted values, which makes the search
// deterministic for a fixed input.
func bestSplit(X [][]float64, y []float64, indices, featureSet []int) (int, float64, float64) {
	parent := giniImpurity(y, indices)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	for _, feature := range featureSet {
		values := make([]float64, 0, len(indices))
		for _, i := range indices {
			values = append(values, X[i][feature])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2

			var leftIdx, rightIdx []int
			for _, i := range indices {
				if X[i][feature] <= threshold {
					leftIdx = append(leftIdx, i)
				} else {
					rightIdx = append(rightIdx, i)
				}
			}
			if len(leftIdx) == 0 || len(rightIdx) == 0 {
				continue
			}

			leftW := float64(len(leftIdx)) / float64(len(indices))
			rightW := float64(len(rightIdx)) / float64(len(indices))
			gain := parent - leftW*giniImpurity(y, leftIdx) - rightW*giniImpurity(y, rightIdx)

			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = feature, threshold, gain
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// giniImpurity for binary labels: 2p(1-p).
func giniImpurity(y []float64, indices []int) float64 {
	p := positiveFraction(y, indices)
	return 2 * p * (1 - p)
}

func positiveFraction(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	pos := 0
	for _, i := range indices {
		if y[i] >= 0.5 {
			pos++
		}
	}
	return float64(pos) / float64(len(indices))
}

func homogeneous(y []float64, indices []int) bool {
	p := positiveFraction(y, indices)
	return p == 0 || p == 1
}

// bootstrapSample draws n indices with replacement using the forest's
// seeded source, keeping training deterministic for a fixed seed.
func bootstrapSample(rng *rand.Rand, n int) []int {
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	return sample
}

// featureSubset draws k distinct feature indices in sorted order.
func featureSubset(rng *rand.Rand, total, k int) []int {
	if k >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(total)[:k]
	sort.Ints(perm)
	return perm
}

// maxFeatures is the per-tree feature budget: √total, at least 1.
func maxFeatures(total int) int {
	k := int(math.Sqrt(float64(total)))
	if k < 1 {
		k = 1
	}
	return k
}
