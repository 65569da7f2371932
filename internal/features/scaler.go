package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes columns to zero mean and unit variance.
// It is fit once on the training distribution and only transforms afterwards;
// refitting at inference would make scaling depend on the request's data.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// Fit computes per-column mean and std from the given rows. NaN cells are
// excluded from the statistics. Columns with zero or undefined std get
// std 1 so Transform leaves them centered but unscaled.
func (s *StandardScaler) Fit(rows [][]float64, cols int) {
	s.Means = make([]float64, cols)
	s.Stds = make([]float64, cols)

	for c := 0; c < cols; c++ {
		var values []float64
		for _, row := range rows {
			if !math.IsNaN(row[c]) {
				values = append(values, row[c])
			}
		}
		if len(values) == 0 {
			s.Means[c] = 0
			s.Stds[c] = 1
			continue
		}
		mean, std := stat.MeanStdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Means[c] = mean
		s.Stds[c] = std
	}
}

// Fitted reports whether Fit has been called.
func (s *StandardScaler) Fitted() bool { return len(s.Means) > 0 }

// Transform standardizes a row in place using the fitted parameters.
// NaN cells pass through untouched (imputation happens after scaling).
func (s *StandardScaler) Transform(row []float64) {
	for c := range row {
		if c >= len(s.Means) || math.IsNaN(row[c]) {
			continue
		}
		row[c] = (row[c] - s.Means[c]) / s.Stds[c]
	}
}
