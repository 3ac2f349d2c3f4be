package model

import (
	"errors"
	"fmt"
)

// Classifier produces a two-class probability distribution from a feature
// vector. Index 0 is Fake, index 1 is Real.
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
}

// Forest is a pretrained random-forest classifier exported as parallel node
// arrays, one Tree per estimator. It is read-only after load.
type Forest struct {
	NumClasses  int    `json:"n_classes"`
	NumFeatures int    `json:"n_features"`
	Trees       []Tree `json:"trees"`
}

// Tree holds one decision tree in parallel-array form. A node i is a leaf
// when ChildrenLeft[i] is -1; otherwise samples with
// features[Feature[i]] <= Threshold[i] descend left.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

func (f *Forest) validate() error {
	if f.NumClasses != 2 {
		return fmt.Errorf("classifier has %d classes, want 2", f.NumClasses)
	}
	if f.NumFeatures <= 0 {
		return errors.New("classifier has no features")
	}
	if len(f.Trees) == 0 {
		return errors.New("classifier has no trees")
	}
	for i, tree := range f.Trees {
		n := len(tree.ChildrenLeft)
		if len(tree.ChildrenRight) != n || len(tree.Feature) != n ||
			len(tree.Threshold) != n || len(tree.Value) != n {
			return fmt.Errorf("tree %d has inconsistent node arrays", i)
		}
		for _, value := range tree.Value {
			if len(value) != f.NumClasses {
				return fmt.Errorf("tree %d has a node value of wrong width", i)
			}
		}
	}
	return nil
}

// PredictProba averages the normalized leaf distributions of every tree.
// A vector of the wrong width is a feature-order contract violation, not a
// user error, and is returned loudly.
func (f *Forest) PredictProba(features []float64) ([]float64, error) {
	if len(features) != f.NumFeatures {
		return nil, fmt.Errorf(
			"feature vector has %d entries, classifier expects %d",
			len(features), f.NumFeatures,
		)
	}

	probabilities := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		leaf, err := tree.descend(features)
		if err != nil {
			return nil, err
		}

		var total float64
		for _, count := range leaf {
			total += count
		}
		if total == 0 {
			return nil, errors.New("classifier leaf with empty distribution")
		}
		for class, count := range leaf {
			probabilities[class] += count / total
		}
	}

	trees := float64(len(f.Trees))
	for class := range probabilities {
		probabilities[class] /= trees
	}
	return probabilities, nil
}

func (t *Tree) descend(features []float64) ([]float64, error) {
	node := 0
	for t.ChildrenLeft[node] != -1 {
		feature := t.Feature[node]
		if feature < 0 || feature >= len(features) {
			return nil, fmt.Errorf("tree references feature %d outside the vector", feature)
		}
		if features[feature] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
		if node < 0 || node >= len(t.ChildrenLeft) {
			return nil, errors.New("tree descended to an out-of-range node")
		}
	}
	return t.Value[node], nil
}
