package analysis

import "github.com/ZanzyTHEbar/cognitive-echo/internal/model"

// ModelBlendWeight is the share of the acoustic score given to the classifier.
const ModelBlendWeight = 0.40

// Blend combines a model score with the heuristic score. Without a model
// probability the heuristic is returned unchanged.
func Blend(m model.Score, heuristic float64) float64 {
	if !m.Ready() {
		return heuristic
	}
	return score(mix(100*m.Probability, heuristic, ModelBlendWeight))
}
