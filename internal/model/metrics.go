package model

// Metrics holds binary classification quality at the 0.5 decision threshold.
// The training pipeline reports these on the training set itself: with the
// simulated label source there is no held-out split, so they describe fit,
// not generalization.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
}

// Evaluate scores the forest against labeled rows. Empty input or an
// unfitted forest yields zero metrics.
func Evaluate(f *Forest, X [][]float64, y []float64) Metrics {
	if f == nil || !f.Fitted() || len(X) == 0 || len(X) != len(y) {
		return Metrics{}
	}

	var tp, fp, tn, fn int
	for i, row := range X {
		p, err := f.PredictProba(row)
		if err != nil {
			return Metrics{}
		}
		predicted := p >= 0.5
		actual := y[i] >= 0.5
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && !actual:
			tn++
		default:
			fn++
		}
	}

	m := Metrics{Samples: len(X)}
	m.Accuracy = float64(tp+tn) / float64(len(X))
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	return m
}
