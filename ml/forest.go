package ml

import (
	"errors"
	"math"
	"math/rand"
)

// ForestConfig carries the bagging hyperparameters. The defaults mirror the
// trainer's fixed knobs; everything is tunable but nothing is derived.
type ForestConfig struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		Seed:            42,
	}
}

// Forest is a bagged ensemble of decision trees over the canonical feature
// schema. A trained forest is immutable and safe for concurrent prediction.
type Forest struct {
	config       ForestConfig
	featureCount int
	trees        []decisionTree
	importance   []float64
}

// TrainForest fits the ensemble on binary-labeled feature vectors. Each tree
// sees a bootstrap sample drawn from a rand source seeded by config.Seed, so
// repeated runs on the same data produce the same model.
func TrainForest(features [][]float64, labels []int, config ForestConfig) (*Forest, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	for _, label := range labels {
		if label != 0 && label != 1 {
			return nil, errors.New("labels must be binary")
		}
	}
	if config.Trees <= 0 {
		config.Trees = DefaultForestConfig().Trees
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultForestConfig().MaxDepth
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}

	featureCount := len(features[0])
	rng := rand.New(rand.NewSource(config.Seed))
	importance := make([]float64, featureCount)
	trees := make([]decisionTree, 0, config.Trees)

	cfg := treeConfig{
		maxDepth:         config.MaxDepth,
		minSamplesSplit:  config.MinSamplesSplit,
		featuresPerSplit: int(math.Sqrt(float64(featureCount))),
	}

	sampleFeatures := make([][]float64, len(features))
	sampleLabels := make([]int, len(labels))
	for t := 0; t < config.Trees; t++ {
		for i := range sampleFeatures {
			j := rng.Intn(len(features))
			sampleFeatures[i] = features[j]
			sampleLabels[i] = labels[j]
		}
		grower := &treeGrower{cfg: cfg, rng: rng, importance: importance}
		trees = append(trees, grower.grow(sampleFeatures, sampleLabels))
	}

	normalizeImportance(importance)
	return &Forest{
		config:       config,
		featureCount: featureCount,
		trees:        trees,
		importance:   importance,
	}, nil
}

// Predict returns the majority class label and the averaged positive-class
// probability across all trees.
func (f *Forest) Predict(features []float64) (int, float64, error) {
	prob, err := f.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	label := 0
	if prob >= 0.5 {
		label = 1
	}
	return label, prob, nil
}

// PredictProba returns the probability of the positive class in [0,1].
func (f *Forest) PredictProba(features []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != f.featureCount {
		return 0, errors.New("feature vector length mismatch")
	}
	sum := 0.0
	for i := range f.trees {
		_, prob, err := f.trees[i].predict(features)
		if err != nil {
			return 0, err
		}
		sum += prob
	}
	return sum / float64(len(f.trees)), nil
}

// FeatureImportances returns the normalized mean impurity decrease per
// feature, summing to 1 when any split occurred.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importance...)
}

func (f *Forest) Config() ForestConfig {
	return f.config
}

func normalizeImportance(importance []float64) {
	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range importance {
		importance[i] /= total
	}
}
