package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
)

// Estimator types understood by the loader.
const (
	EstimatorRandomForest       = "random_forest"
	EstimatorLogisticRegression = "logistic_regression"
)

// Artifact is the serialized classifier: scaler, estimator, label decoder and
// the ordered feature-name list every input vector is validated against.
type Artifact struct {
	Version       string               `json:"version"`
	FeatureNames  []string             `json:"feature_names"`
	Classes       []string             `json:"classes"`
	PositiveClass string               `json:"positive_class,omitempty"`
	Imputation    *acoustic.Imputation `json:"imputation,omitempty"`
	Scaler        Scaler               `json:"scaler"`
	Estimator     EstimatorSpec        `json:"estimator"`
}

// EstimatorSpec holds the fitted parameters for one of the supported estimator types.
type EstimatorSpec struct {
	Type      string    `json:"type"`
	Trees     []Tree    `json:"trees,omitempty"`
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`
}

// Tree is one fitted decision tree in flat array form. A node whose left child
// is -1 is a leaf; Value holds per-class sample counts for every node.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

const leafNode = -1

// positiveIndex resolves the at-risk label. An empty PositiveClass selects the
// last class, matching predict_proba column order for binary labels.
func (a *Artifact) positiveIndex() (int, error) {
	if a.PositiveClass == "" {
		return len(a.Classes) - 1, nil
	}
	for i, c := range a.Classes {
		if c == a.PositiveClass {
			return i, nil
		}
	}
	return 0, fmt.Errorf("positive class %q not in classes %v", a.PositiveClass, a.Classes)
}

// imputation returns the training means for the non-derivable columns.
func (a *Artifact) imputation() acoustic.Imputation {
	if a.Imputation == nil {
		return acoustic.DefaultImputation
	}
	return *a.Imputation
}

func (a *Artifact) validate() error {
	n := len(a.FeatureNames)
	if n == 0 {
		return fmt.Errorf("artifact has no feature names")
	}
	if len(a.Classes) < 2 {
		return fmt.Errorf("artifact needs at least 2 classes, got %d", len(a.Classes))
	}
	if _, err := a.positiveIndex(); err != nil {
		return err
	}
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("scaler has %d means and %d scales for %d features",
			len(a.Scaler.Mean), len(a.Scaler.Scale), n)
	}

	switch a.Estimator.Type {
	case EstimatorRandomForest:
		if len(a.Estimator.Trees) == 0 {
			return fmt.Errorf("random forest has no trees")
		}
		for i, t := range a.Estimator.Trees {
			if err := t.validate(n, len(a.Classes)); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	case EstimatorLogisticRegression:
		if len(a.Classes) != 2 {
			return fmt.Errorf("logistic regression supports 2 classes, got %d", len(a.Classes))
		}
		if len(a.Estimator.Coef) != n {
			return fmt.Errorf("logistic regression has %d coefficients for %d features", len(a.Estimator.Coef), n)
		}
	default:
		return fmt.Errorf("unsupported estimator type %q", a.Estimator.Type)
	}

	return nil
}

func (t Tree) validate(features, classes int) error {
	nodes := len(t.ChildrenLeft)
	if nodes == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenRight) != nodes || len(t.Feature) != nodes ||
		len(t.Threshold) != nodes || len(t.Value) != nodes {
		return fmt.Errorf("node arrays have mismatched lengths")
	}

	for i := 0; i < nodes; i++ {
		if len(t.Value[i]) != classes {
			return fmt.Errorf("node %d has %d class counts, want %d", i, len(t.Value[i]), classes)
		}
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leafNode {
			continue
		}
		if left <= 0 || left >= nodes || right <= 0 || right >= nodes {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= features {
			return fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], features)
		}
	}

	return nil
}

// matchesColumn reports whether an artifact column name accepts the mapper's
// column at index i. Positional names ("feature_3") match by index alone.
func matchesColumn(artifactName string, i int, name string) bool {
	if artifactName == name {
		return true
	}
	if rest, ok := strings.CutPrefix(artifactName, "feature_"); ok {
		idx, err := strconv.Atoi(rest)
		return err == nil && idx == i
	}
	return false
}
