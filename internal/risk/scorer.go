// Package risk holds the scoring service: it trains the forest on prepared
// feature matrices, publishes trained models atomically so prediction never
// observes a half-trained state, and turns assessment requests into results
// with the documented degraded fallback when scoring is impossible.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/features"
	"github.com/ddv2311/agri-risk-assessment/internal/model"
)

// Config holds scorer settings beyond the forest hyperparameters.
type Config struct {
	// ModelPath and ScalerPath locate the persisted artifacts. Empty paths
	// disable persistence; the scorer then always bootstraps from synthetic
	// training data.
	ModelPath  string
	ScalerPath string

	// LookbackDays bounds how far back providers collect per request.
	LookbackDays int

	// TrainRegions and TrainCrops span the region×crop grid used for
	// synthetic training sets.
	TrainRegions []string
	TrainCrops   []string

	// Attributor explains predictions; nil selects path attribution.
	Attributor model.AttributionProvider

	Forest model.Config
}

// TrainedModel bundles everything one training run produced. It is immutable
// after publication; retraining builds a fresh instance and swaps the
// pointer.
type TrainedModel struct {
	ID        string
	Forest    *model.Forest
	Preparer  *features.Preparer
	Metrics   model.Metrics
	TrainedAt time.Time
	Synthetic bool
}

// TrainingSample pairs one region/crop's raw frames with its binary label.
type TrainingSample struct {
	Raw   domain.RawData
	Label float64
}

// Summary is the model metadata served on the ops endpoint.
type Summary struct {
	ModelID           string             `json:"model_id"`
	TrainedAt         time.Time          `json:"trained_at"`
	Synthetic         bool               `json:"synthetic"`
	FeatureNames      []string           `json:"feature_names"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Metrics           model.Metrics      `json:"metrics"`
}

// Scorer is the risk scoring service. Predictions read the current model via
// an atomic pointer, so a concurrent retrain is invisible until its single
// publish instant.
type Scorer struct {
	provider   domain.RawDataProvider
	attributor model.AttributionProvider
	cfg        Config
	logger     *slog.Logger

	current atomic.Pointer[TrainedModel]
	trainMu sync.Mutex
}

// NewScorer builds a scorer. Attribution defaults to the path decomposition
// unless the config selects another provider.
func NewScorer(provider domain.RawDataProvider, cfg Config, logger *slog.Logger) *Scorer {
	attributor := cfg.Attributor
	if attributor == nil {
		attributor = model.PathAttributor{}
	}
	return &Scorer{
		provider:   provider,
		attributor: attributor,
		cfg:        cfg,
		logger:     logger,
	}
}

// Model returns the currently published model, or nil before the first
// train/load.
func (s *Scorer) Model() *TrainedModel {
	return s.current.Load()
}

// Summary describes the published model for the ops endpoint.
func (s *Scorer) Summary() (Summary, error) {
	tm := s.current.Load()
	if tm == nil {
		return Summary{}, domain.ErrModelNotTrained
	}
	return Summary{
		ModelID:           tm.ID,
		TrainedAt:         tm.TrainedAt,
		Synthetic:         tm.Synthetic,
		FeatureNames:      append([]string(nil), tm.Forest.FeatureNames...),
		FeatureImportance: tm.Forest.FeatureImportance(),
		Metrics:           tm.Metrics,
	}, nil
}

// Train fits a new model on the given samples and publishes it atomically;
// synthetic records the label provenance on the published model. Degenerate
// input (no samples, a feature matrix with zero columns, or single-class
// labels) falls back to a trivial single-feature model so the scorer always
// has something to answer with; the fallback is visible through feature
// importance {"dummy_feature": 1}.
func (s *Scorer) Train(samples []TrainingSample, synthetic bool) (*TrainedModel, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	preparer := features.NewPreparer()
	forest := model.NewForest(s.cfg.Forest)

	raws := make([]domain.RawData, len(samples))
	labels := make([]float64, len(samples))
	for i, sample := range samples {
		raws[i] = sample.Raw
		labels[i] = sample.Label
	}

	matrix := preparer.FitTransform(raws)
	if len(samples) == 0 || matrix.Empty() || singleClass(labels) {
		s.logger.Warn("training input degenerate, fitting trivial fallback model",
			"samples", len(samples))
		matrix = &features.Matrix{Names: []string{"dummy_feature"}, Rows: [][]float64{{0}, {1}}}
		labels = []float64{0, 1}
	}

	if err := forest.Fit(matrix.Rows, labels, matrix.Names); err != nil {
		return nil, fmt.Errorf("fitting forest: %w", err)
	}

	tm := &TrainedModel{
		ID:        uuid.NewString(),
		Forest:    forest,
		Preparer:  preparer,
		Metrics:   model.Evaluate(forest, matrix.Rows, labels),
		TrainedAt: time.Now().UTC(),
		Synthetic: synthetic,
	}
	s.current.Store(tm)

	s.logger.Info("published trained model",
		"model_id", tm.ID,
		"features", len(matrix.Names),
		"samples", len(matrix.Rows),
		"accuracy", tm.Metrics.Accuracy)
	return tm, nil
}

// Retrain gathers a fresh synthetic training set from the provider, trains,
// publishes, and persists the artifacts. Prediction stays on the previous
// model until the publish instant.
func (s *Scorer) Retrain(ctx context.Context) error {
	samples, err := SyntheticTrainingSet(ctx, s.provider, s.cfg.TrainRegions, s.cfg.TrainCrops, s.cfg.LookbackDays, s.logger)
	if err != nil {
		return fmt.Errorf("building training set: %w", err)
	}

	tm, err := s.Train(samples, true)
	if err != nil {
		return err
	}

	if s.cfg.ModelPath == "" {
		return nil
	}
	if err := s.Save(tm); err != nil {
		return fmt.Errorf("persisting model %s: %w", tm.ID, err)
	}
	return nil
}

// Predict scores one request's raw frames against the current model.
// Columns the model was not trained on are dropped; trained columns absent
// from the row default to 0 with a warning. Returns ErrEmptyInput when every
// category is empty and ErrModelNotTrained when no model is published.
func (s *Scorer) Predict(raw domain.RawData) (float64, map[string]float64, error) {
	score, ranked, err := s.predict(raw)
	if err != nil {
		return 0, nil, err
	}
	return score, flattenFactors(ranked), nil
}

// predict runs the model and ranks the attribution, keeping the contribution
// order for explanation rendering.
func (s *Scorer) predict(raw domain.RawData) (float64, []Factor, error) {
	allEmpty := true
	for _, frame := range raw {
		if !frame.Empty() {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return 0, nil, fmt.Errorf("no raw data in any category: %w", domain.ErrEmptyInput)
	}

	tm := s.current.Load()
	if tm == nil {
		return 0, nil, domain.ErrModelNotTrained
	}

	matrix := tm.Preparer.Transform(raw)
	row := s.reindex(matrix, tm.Forest.FeatureNames)

	score, err := tm.Forest.PredictProba(row)
	if err != nil {
		return 0, nil, fmt.Errorf("predicting: %w", err)
	}

	ranked := rankFactors(s.attributor.Attribute(tm.Forest, row), maxContributingFactors)
	return score, ranked, nil
}

// Assess runs the full request flow: collect, score, explain. It never
// returns an error; failures surface as non-OK outcomes carrying the
// degraded default result.
func (s *Scorer) Assess(ctx context.Context, req domain.AssessmentRequest) domain.Outcome {
	raw := s.collect(ctx, req)

	if err := s.ensureModel(ctx); err != nil {
		s.logger.Error("no model available", "request_id", req.ID, "error", err)
		return domain.Outcome{
			Status: domain.OutcomeFailed,
			Result: domain.DegradedResult(req, "model unavailable"),
			Reason: err.Error(),
		}
	}

	score, ranked, err := s.predict(raw)
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return domain.Outcome{
			Status: domain.OutcomeInsufficientData,
			Result: domain.DegradedResult(req, "insufficient data for assessment"),
			Reason: err.Error(),
		}
	case err != nil:
		s.logger.Error("prediction failed", "request_id", req.ID, "error", err)
		return domain.Outcome{
			Status: domain.OutcomeFailed,
			Result: domain.DegradedResult(req, "prediction failed"),
			Reason: err.Error(),
		}
	}

	category := domain.CategoryForScore(score)
	explanation := ExplainFactors(category, ranked, req.Scenario)
	if explanation == "" {
		// Nothing renderable, e.g. the trivial fallback model's dummy
		// feature; the indicator-based wording still applies.
		explanation = explanationFor(raw, category, req.Scenario)
	}
	return domain.Outcome{
		Status: domain.OutcomeOK,
		Result: domain.NewResult(req, score, explanation, flattenFactors(ranked)),
	}
}

// ensureModel lazily brings up a model on the serving path: persisted
// artifacts first, synthetic bootstrap otherwise.
func (s *Scorer) ensureModel(ctx context.Context) error {
	if s.current.Load() != nil {
		return nil
	}

	if s.cfg.ModelPath != "" {
		if err := s.Load(); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrPersistence) {
			return err
		} else {
			s.logger.Warn("persisted model unusable, bootstrapping from synthetic data", "error", err)
		}
	}

	return s.Retrain(ctx)
}

// singleClass reports whether every label carries the same value. A forest
// fit on one class degenerates to leaf-only trees that predict a constant
// and attribute nothing.
func singleClass(labels []float64) bool {
	for _, l := range labels {
		if l != labels[0] {
			return false
		}
	}
	return len(labels) > 0
}

// collect gathers all four category frames for the request. Provider errors
// degrade to empty frames so one failing source never blocks an assessment.
func (s *Scorer) collect(ctx context.Context, req domain.AssessmentRequest) domain.RawData {
	raw := make(domain.RawData, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		frame, err := s.provider.Collect(ctx, cat, req.Region, req.Crop, s.cfg.LookbackDays)
		if err != nil {
			s.logger.Warn("collect failed, treating category as empty",
				"request_id", req.ID, "category", string(cat), "error", err)
			frame = domain.Frame{Category: cat}
		}
		raw[cat] = frame
	}
	return raw
}

// reindex aligns a prepared single-row matrix with the model's feature
// order. Unknown columns are dropped silently; missing trained columns are
// zero-filled and logged once per prediction.
func (s *Scorer) reindex(matrix *features.Matrix, modelNames []string) []float64 {
	byName := make(map[string]float64, len(matrix.Names))
	for i, name := range matrix.Names {
		byName[name] = matrix.Rows[0][i]
	}

	row := make([]float64, len(modelNames))
	var missing []string
	for i, name := range modelNames {
		v, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	if len(missing) > 0 {
		s.logger.Warn("request missing trained features, defaulting to 0", "features", missing)
	}
	return row
}
