package risk

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
	"github.com/ddv2311/agri-risk-assessment/internal/features"
	"github.com/ddv2311/agri-risk-assessment/internal/model"
)

const scalerSchemaVersion = 1

// scalerArtifact is the companion file to the model blob. The shared ModelID
// is the lock-step guarantee: a scaler from one training run must never be
// applied to a model from another.
type scalerArtifact struct {
	SchemaVersion int                  `json:"schema_version"`
	ModelID       string               `json:"model_id"`
	Scalers       features.ScalerState `json:"scalers"`
}

// Save persists the trained model and its scaler state. The model blob is
// written first; a crash between the two writes leaves a mismatched pair
// that Load rejects rather than serving with stale scaling.
func (s *Scorer) Save(tm *TrainedModel) error {
	blob := &model.Blob{
		ModelID:           tm.ID,
		TrainedAt:         tm.TrainedAt,
		Forest:            tm.Forest,
		FeatureNames:      tm.Forest.FeatureNames,
		FeatureImportance: tm.Forest.FeatureImportance(),
		Metrics:           tm.Metrics,
	}
	if err := model.SaveBlob(s.cfg.ModelPath, blob); err != nil {
		return err
	}

	artifact := scalerArtifact{
		SchemaVersion: scalerSchemaVersion,
		ModelID:       tm.ID,
		Scalers:       tm.Preparer.State(),
	}
	if err := model.WriteFileAtomic(s.cfg.ScalerPath, artifact); err != nil {
		return fmt.Errorf("%w: writing scaler artifact: %v", domain.ErrPersistence, err)
	}

	s.logger.Info("persisted model artifacts",
		"model_id", tm.ID, "model_path", s.cfg.ModelPath, "scaler_path", s.cfg.ScalerPath)
	return nil
}

// Load restores the persisted model pair and publishes it. Any corruption,
// schema drift, or model/scaler ID mismatch yields ErrPersistence and leaves
// the current model untouched.
func (s *Scorer) Load() error {
	blob, err := model.LoadBlob(s.cfg.ModelPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(s.cfg.ScalerPath)
	if err != nil {
		return fmt.Errorf("%w: reading scaler artifact: %v", domain.ErrPersistence, err)
	}
	var artifact scalerArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("%w: corrupt scaler artifact %s: %v", domain.ErrPersistence, s.cfg.ScalerPath, err)
	}
	if artifact.SchemaVersion != scalerSchemaVersion {
		return fmt.Errorf("%w: scaler artifact %s has schema version %d, want %d",
			domain.ErrPersistence, s.cfg.ScalerPath, artifact.SchemaVersion, scalerSchemaVersion)
	}
	if artifact.ModelID != blob.ModelID {
		return fmt.Errorf("%w: scaler artifact model %s does not match model blob %s",
			domain.ErrPersistence, artifact.ModelID, blob.ModelID)
	}

	preparer := features.NewPreparer()
	preparer.Restore(artifact.Scalers)

	tm := &TrainedModel{
		ID:        blob.ModelID,
		Forest:    blob.Forest,
		Preparer:  preparer,
		Metrics:   blob.Metrics,
		TrainedAt: blob.TrainedAt,
	}
	s.current.Store(tm)

	s.logger.Info("loaded persisted model", "model_id", tm.ID, "trained_at", tm.TrainedAt)
	return nil
}
