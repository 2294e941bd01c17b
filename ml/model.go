package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Classifier is the contract the scoring pipeline depends on: one call
// yields the class label in {0,1} and the positive-class probability.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

const modelTypeForest = "random_forest"

// artifact is the on-disk envelope for a fitted forest. The embedded feature
// schema is validated on load so a stale or foreign artifact fails fast
// instead of producing nonsensical scores.
type artifact struct {
	ModelType    string         `json:"model_type"`
	FeatureNames []string       `json:"feature_names"`
	Config       ForestConfig   `json:"config"`
	TrainedAt    time.Time      `json:"trained_at"`
	Trees        []decisionTree `json:"trees"`
	Importance   []float64      `json:"importance"`
}

// SaveArtifact serializes a fitted forest to path.
func SaveArtifact(path string, forest *Forest) error {
	if forest == nil || len(forest.trees) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(artifact{
		ModelType:    modelTypeForest,
		FeatureNames: FeatureNames(),
		Config:       forest.config,
		TrainedAt:    time.Now().UTC(),
		Trees:        forest.trees,
		Importance:   forest.importance,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadArtifact reads a serialized forest and validates its feature schema
// against the canonical order.
func LoadArtifact(path string) (*Forest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.ModelType != modelTypeForest {
		return nil, fmt.Errorf("unsupported model type %q", a.ModelType)
	}
	if err := validateSchema(a.FeatureNames); err != nil {
		return nil, err
	}
	if len(a.Trees) == 0 {
		return nil, errors.New("artifact contains no trees")
	}
	return &Forest{
		config:       a.Config,
		featureCount: len(a.FeatureNames),
		trees:        a.Trees,
		importance:   a.Importance,
	}, nil
}

func validateSchema(names []string) error {
	expected := FeatureNames()
	if len(names) != len(expected) {
		return fmt.Errorf("artifact feature schema mismatch: got %d features, want %d", len(names), len(expected))
	}
	for i, name := range names {
		if name != expected[i] {
			return fmt.Errorf("artifact feature schema mismatch at column %d: got %q, want %q", i, name, expected[i])
		}
	}
	return nil
}
