package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/features"
)

// SyntheticTrainingSet builds a labeled training set by collecting the full
// category set for every region×crop pair and deriving binary labels from the
// standardized feature matrix. Pairs with no data in any category are
// skipped. Returns an error only when the whole grid yields nothing usable.
func SyntheticTrainingSet(ctx context.Context, provider domain.RawDataProvider, regions, crops []string, lookbackDays int, logger *slog.Logger) ([]TrainingSample, error) {
	var raws []domain.RawData

	for _, region := range regions {
		for _, crop := range crops {
			raw := make(domain.RawData, len(domain.Categories()))
			usable := false
			for _, cat := range domain.Categories() {
				frame, err := provider.Collect(ctx, cat, region, crop, lookbackDays)
				if err != nil {
					logger.Warn("training collect failed, treating category as empty",
						"region", region, "crop", crop, "category", string(cat), "error", err)
					frame = domain.Frame{Category: cat}
				}
				if !frame.Empty() {
					usable = true
				}
				raw[cat] = frame
			}
			if !usable {
				continue
			}
			raws = append(raws, raw)
		}
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("no usable training samples across %d regions and %d crops", len(regions), len(crops))
	}

	labels := syntheticLabels(raws)
	samples := make([]TrainingSample, len(raws))
	for i, raw := range raws {
		samples[i] = TrainingSample{Raw: raw, Label: labels[i]}
	}
	return samples, nil
}

// Label weights per feature kind: volatility and deviation push risk up,
// improving trends push it down, and extreme averages or totals push it up
// by magnitude.
const (
	volatilityWeight = 0.2
	trendWeight      = 0.15
	magnitudeWeight  = 0.1
)

// syntheticLabels scores each standardized feature row with the weighted
// rules above, squashes the score through a sigmoid, and labels rows above
// 0.5 as high risk. When that cut lands outside the score range and yields a
// single class, it re-cuts at the median so the forest sees both classes
// whenever the rows differ at all.
func syntheticLabels(raws []domain.RawData) []float64 {
	matrix := features.NewPreparer().FitTransform(raws)

	probs := make([]float64, len(matrix.Rows))
	for i, row := range matrix.Rows {
		score := 0.0
		for j, name := range matrix.Names {
			switch {
			case strings.Contains(name, "volatility") || strings.Contains(name, "deviation"):
				score += volatilityWeight * row[j]
			case strings.Contains(name, "trend"):
				score -= trendWeight * row[j]
			case strings.Contains(name, "avg") || strings.Contains(name, "total"):
				score += magnitudeWeight * math.Abs(row[j])
			}
		}
		probs[i] = sigmoid(score)
	}

	labels := cutLabels(probs, 0.5)
	if singleClass(labels) && len(probs) > 1 {
		sorted := append([]float64(nil), probs...)
		sort.Float64s(sorted)
		labels = cutLabels(probs, stat.Quantile(0.5, stat.Empirical, sorted, nil))
	}
	return labels
}

// cutLabels assigns label 1 to rows strictly above the threshold.
func cutLabels(probs []float64, threshold float64) []float64 {
	labels := make([]float64, len(probs))
	for i, p := range probs {
		if p > threshold {
			labels[i] = 1
		}
	}
	return labels
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
