package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"studentrisk/ml"
)

func main() {
	dataPath := flag.String("data", "./data/student_dataset.csv", "dataset path, reused verbatim if it exists")
	modelPath := flag.String("model_path", "./models/student_risk.json", "model output path")
	samples := flag.Int("samples", 1000, "rows to synthesize when no dataset exists")
	trees := flag.Int("trees", 100, "number of trees")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	minSplit := flag.Int("min_split", 5, "minimum samples to split a node")
	seed := flag.Int64("seed", 42, "random seed for dataset, split and bagging")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*dataPath), 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	dataset, created, err := ml.LoadOrCreateDataset(*dataPath, *samples, *seed)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	if created {
		log.Printf("sample dataset created and saved to %s", *dataPath)
	} else {
		log.Printf("loaded existing dataset from %s", *dataPath)
	}
	log.Printf("dataset: %d rows, positives=%d", len(dataset.Labels), countPositives(dataset.Labels))

	train, test := ml.StratifiedSplit(dataset, *testRatio, *seed)

	model, err := ml.TrainForest(train.Features, train.Labels, ml.ForestConfig{
		Trees:           *trees,
		MaxDepth:        *maxDepth,
		MinSamplesSplit: *minSplit,
		Seed:            *seed,
	})
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	log.Printf("training accuracy: %.3f", accuracy(model, train))
	log.Printf("testing accuracy: %.3f", accuracy(model, test))
	printImportances(model)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := ml.SaveArtifact(*modelPath, model); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	fmt.Printf("model saved to %s\n", *modelPath)

	// Manual sanity check, not a gate: score one held-out sample.
	if len(test.Features) > 0 {
		prob, err := model.PredictProba(test.Features[0])
		if err != nil {
			log.Fatalf("smoke prediction failed: %v", err)
		}
		fmt.Printf("test prediction: %.3f\n", prob)
	}
}

func accuracy(model *ml.Forest, dataset *ml.Dataset) float64 {
	if len(dataset.Features) == 0 {
		return 0
	}
	correct := 0
	for i, features := range dataset.Features {
		label, _, err := model.Predict(features)
		if err != nil {
			continue
		}
		if label == dataset.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(dataset.Features))
}

func printImportances(model *ml.Forest) {
	names := ml.FeatureNames()
	importances := model.FeatureImportances()

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})

	log.Println("feature importance:")
	for _, idx := range order {
		log.Printf("  %-18s %.4f", names[idx], importances[idx])
	}
}

func countPositives(labels []int) int {
	n := 0
	for _, label := range labels {
		if label == 1 {
			n++
		}
	}
	return n
}
