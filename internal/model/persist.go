package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// blobSchemaVersion guards against loading artifacts written by an
// incompatible build.
const blobSchemaVersion = 1

// Blob is the persisted model artifact. ModelID ties it to the companion
// scaler artifact written in the same training run; loaders must refuse a
// pair whose IDs disagree.
type Blob struct {
	SchemaVersion     int                `json:"schema_version"`
	ModelID           string             `json:"model_id"`
	TrainedAt         time.Time          `json:"trained_at"`
	Forest            *Forest            `json:"model"`
	FeatureNames      []string           `json:"feature_names"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Metrics           Metrics            `json:"metrics"`
}

// SaveBlob writes the artifact via a temp file and rename so readers never
// observe a partial blob.
func SaveBlob(path string, blob *Blob) error {
	blob.SchemaVersion = blobSchemaVersion
	if err := WriteFileAtomic(path, blob); err != nil {
		return fmt.Errorf("%w: writing model blob: %v", domain.ErrPersistence, err)
	}
	return nil
}

// WriteFileAtomic marshals v as indented JSON and places it at path through
// a same-directory temp file and rename. Shared by the model blob and its
// companion scaler artifact so neither is ever observed half-written.
func WriteFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// LoadBlob reads and validates a persisted model artifact.
func LoadBlob(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading model blob: %v", domain.ErrPersistence, err)
	}

	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: corrupt model blob %s: %v", domain.ErrPersistence, path, err)
	}
	if blob.SchemaVersion != blobSchemaVersion {
		return nil, fmt.Errorf("%w: model blob %s has schema version %d, want %d", domain.ErrPersistence, path, blob.SchemaVersion, blobSchemaVersion)
	}
	if blob.Forest == nil || !blob.Forest.Fitted() {
		return nil, fmt.Errorf("%w: model blob %s holds no fitted model", domain.ErrPersistence, path)
	}
	if len(blob.FeatureNames) != len(blob.Forest.FeatureNames) {
		return nil, fmt.Errorf("%w: model blob %s feature names disagree with model", domain.ErrPersistence, path)
	}
	return &blob, nil
}

// atomicWrite places data at path through a same-directory temp file and
// rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
