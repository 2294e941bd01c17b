package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// decisionTree is a CART tree stored as a flat node array. Child links are
// indices into the same array; -1 marks a missing child.
type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassLabel  int     `json:"class_label"`
	Probability float64 `json:"probability"`
	IsLeaf      bool    `json:"is_leaf"`
}

// predict walks the tree and returns the leaf's majority label and its
// positive-class fraction.
func (dt *decisionTree) predict(features []float64) (int, float64, error) {
	if len(dt.Nodes) == 0 {
		return 0, 0, errors.New("tree not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Probability, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

type treeConfig struct {
	maxDepth         int
	minSamplesSplit  int
	featuresPerSplit int
}

// treeGrower builds one tree and accumulates per-feature impurity decrease
// into the shared importance slice.
type treeGrower struct {
	cfg        treeConfig
	rng        *rand.Rand
	total      float64
	importance []float64
}

func (g *treeGrower) grow(features [][]float64, labels []int) decisionTree {
	g.total = float64(len(labels))
	return decisionTree{Nodes: g.buildNode(features, labels, 0)}
}

func (g *treeGrower) buildNode(features [][]float64, labels []int, depth int) []treeNode {
	leaf := []treeNode{{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassLabel:  majorityLabel(labels),
		Probability: positiveFraction(labels),
		IsLeaf:      true,
	}}

	if depth >= g.cfg.maxDepth || len(labels) < g.cfg.minSamplesSplit || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, impurity, ok := g.findBestSplit(features, labels)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	decrease := gini(labels) - impurity
	if decrease > 0 {
		g.importance[bestFeature] += decrease * float64(len(labels)) / g.total
	}

	leftNodes := g.buildNode(leftFeatures, leftLabels, depth+1)
	rightNodes := g.buildNode(rightFeatures, rightLabels, depth+1)

	root := treeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		ClassLabel:  majorityLabel(labels),
		Probability: positiveFraction(labels),
		IsLeaf:      false,
	}

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

// findBestSplit evaluates quartile thresholds on a random feature subset and
// returns the split with the lowest weighted gini impurity.
func (g *treeGrower) findBestSplit(features [][]float64, labels []int) (int, float64, float64, bool) {
	featureCount := len(features[0])
	candidates := g.rng.Perm(featureCount)
	if g.cfg.featuresPerSplit > 0 && g.cfg.featuresPerSplit < featureCount {
		candidates = candidates[:g.cfg.featuresPerSplit]
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	values := make([]float64, len(features))
	for _, featureIdx := range candidates {
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		for _, threshold := range quantileThresholds(values) {
			leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
			if len(leftLabels) == 0 || len(rightLabels) == 0 {
				continue
			}
			impurity := weightedGini(leftLabels, rightLabels)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, 0, false
	}
	return bestFeature, bestThreshold, bestImpurity, true
}

func quantileThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return nil
	}
	thresholds := make([]float64, 0, 3)
	for _, q := range []float64{0.25, 0.5, 0.75} {
		idx := int(q * float64(n-1))
		t := sorted[idx]
		if len(thresholds) == 0 || t != thresholds[len(thresholds)-1] {
			thresholds = append(thresholds, t)
		}
	}
	return thresholds
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func majorityLabel(labels []int) int {
	counts := make(map[int]int)
	bestLabel := 0
	bestCount := -1
	for _, label := range labels {
		counts[label]++
		if counts[label] > bestCount {
			bestCount = counts[label]
			bestLabel = label
		}
	}
	return bestLabel
}

func positiveFraction(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	positive := 0
	for _, label := range labels {
		if label == 1 {
			positive++
		}
	}
	return float64(positive) / float64(len(labels))
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
