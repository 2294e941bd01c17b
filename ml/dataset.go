package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
)

// Dataset is a labeled feature table in canonical column order.
type Dataset struct {
	Features [][]float64
	Labels   []int
}

// Synthetic generation constants. LMS activity is drawn but carries no
// weight in the label, so the classifier has to learn that on its own.
var (
	featureRanges = [][2]float64{
		{1.5, 10.0},  // Previous_GPA
		{40, 100},    // Attendance
		{30, 100},    // Assignment_Scores
		{5, 50},      // Study_Hours
		{11, 40},     // Midterm_Scores
		{10, 150},    // LMS_Activity
	}
	scoreWeights = []float64{0.3 / 10.0, 0.25 / 100, 0.2 / 100, 0.1 / 40, 0.15 / 100, 0}
)

const (
	labelNoise     = 0.1
	labelThreshold = 0.6
)

// SyntheticDataset draws n rows from independent uniforms over the domain
// ranges and binarizes a weighted score with gaussian noise. The same seed
// always produces the same rows.
func SyntheticDataset(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	features := make([][]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(featureRanges))
		score := 0.0
		for j, r := range featureRanges {
			row[j] = r[0] + rng.Float64()*(r[1]-r[0])
			score += scoreWeights[j] * row[j]
		}
		features[i] = row
		if score+rng.NormFloat64()*labelNoise > labelThreshold {
			labels[i] = 1
		}
	}
	return &Dataset{Features: features, Labels: labels}
}

// LoadOrCreateDataset reuses an existing CSV verbatim; otherwise it
// synthesizes one and persists it for reproducible re-training. The bool
// reports whether a new dataset was created.
func LoadOrCreateDataset(path string, samples int, seed int64) (*Dataset, bool, error) {
	if _, err := os.Stat(path); err == nil {
		ds, err := LoadCSV(path)
		return ds, false, err
	}
	ds := SyntheticDataset(samples, seed)
	if err := ds.SaveCSV(path); err != nil {
		return nil, false, err
	}
	return ds, true, nil
}

// SaveCSV writes the dataset with a header of canonical names plus "Pass".
func (d *Dataset) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append(FeatureNames(), "Pass")
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, row := range d.Features {
		record := make([]string, 0, len(row)+1)
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record, strconv.Itoa(d.Labels[i]))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadCSV reads a dataset previously written by SaveCSV.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("dataset has no rows")
	}

	header := records[0]
	expected := append(FeatureNames(), "Pass")
	if len(header) != len(expected) {
		return nil, fmt.Errorf("dataset has %d columns, want %d", len(header), len(expected))
	}
	for i, name := range header {
		if name != expected[i] {
			return nil, fmt.Errorf("unexpected dataset column %q at %d", name, i)
		}
	}

	featureCount := len(FeatureNames())
	ds := &Dataset{}
	for line, record := range records[1:] {
		row := make([]float64, featureCount)
		for j := 0; j < featureCount; j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", line+2, j, err)
			}
			row[j] = v
		}
		label, err := strconv.Atoi(record[featureCount])
		if err != nil {
			return nil, fmt.Errorf("row %d label: %w", line+2, err)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}
	return ds, nil
}

// StratifiedSplit shuffles each class independently with a seeded source and
// carves off testRatio of every class for the test partition.
func StratifiedSplit(d *Dataset, testRatio float64, seed int64) (train, test *Dataset) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	byClass := make(map[int][]int)
	for i, label := range d.Labels {
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	train = &Dataset{}
	test = &Dataset{}
	for _, label := range []int{0, 1} {
		indices := byClass[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		cut := int(float64(len(indices)) * (1 - testRatio))
		for i, idx := range indices {
			if i < cut {
				train.Features = append(train.Features, d.Features[idx])
				train.Labels = append(train.Labels, d.Labels[idx])
			} else {
				test.Features = append(test.Features, d.Features[idx])
				test.Labels = append(test.Labels, d.Labels[idx])
			}
		}
	}
	return train, test
}
