package model

import (
	"errors"
	"fmt"
	"math"
)

var errTreeWalk = errors.New("tree walk exceeded node count")

type estimator interface {
	// probability returns P(positive class) for a scaled feature vector.
	probability(x []float64) (float64, error)
}

// standardize applies (x - mean) / scale. A zero scale is treated as 1.
func standardize(x []float64, s Scaler) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}

// Scaler is a fitted per-column standardizer.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type forest struct {
	trees    []Tree
	positive int
}

func (f forest) probability(x []float64) (float64, error) {
	sum := 0.0
	for i, t := range f.trees {
		p, err := t.leafProbability(x, f.positive)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	return sum / float64(len(f.trees)), nil
}

// leafProbability walks from the root to a leaf and returns the positive
// class share of the leaf's samples.
func (t Tree) leafProbability(x []float64, positive int) (float64, error) {
	node := 0
	for steps := 0; steps < len(t.ChildrenLeft); steps++ {
		left := t.ChildrenLeft[node]
		if left == leafNode {
			counts := t.Value[node]
			total := 0.0
			for _, c := range counts {
				total += c
			}
			if total <= 0 {
				return 0, fmt.Errorf("leaf %d has no samples", node)
			}
			return counts[positive] / total, nil
		}
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = left
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return 0, errTreeWalk
}

type logistic struct {
	coef      []float64
	intercept float64
	// invert is set when the at-risk label is the first class.
	invert bool
}

func (l logistic) probability(x []float64) (float64, error) {
	z := l.intercept
	for i, c := range l.coef {
		z += c * x[i]
	}
	p := 1 / (1 + math.Exp(-z))
	if l.invert {
		p = 1 - p
	}
	return p, nil
}

func newEstimator(a *Artifact, positive int) estimator {
	if a.Estimator.Type == EstimatorLogisticRegression {
		return logistic{
			coef:      a.Estimator.Coef,
			intercept: a.Estimator.Intercept,
			invert:    positive == 0,
		}
	}
	return forest{trees: a.Estimator.Trees, positive: positive}
}
