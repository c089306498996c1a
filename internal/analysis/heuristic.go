package analysis

import "github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"

// sigmoidTerm maps one measurement onto a 0–100 risk contribution centred on
// midpoint. Reversed terms treat lower values as riskier.
type sigmoidTerm struct {
	midpoint  float64
	steepness float64
	weight    float64
	reversed  bool
}

func (t sigmoidTerm) risk(x float64) float64 {
	d := x - t.midpoint
	if t.reversed {
		d = -d
	}
	return 100 * sigmoid(t.steepness*d)
}

// Heuristic constants. Weights sum to 1.
var (
	jitterTerm    = sigmoidTerm{midpoint: 2.0, steepness: 3, weight: 0.25}
	shimmerTerm   = sigmoidTerm{midpoint: 5.0, steepness: 2, weight: 0.20}
	stabilityTerm = sigmoidTerm{midpoint: 0.7, steepness: 10, weight: 0.20, reversed: true}
	hnrTerm       = sigmoidTerm{midpoint: 15, steepness: 0.4, weight: 0.20, reversed: true}
	baselineTerm  = sigmoidTerm{midpoint: 25, steepness: 0.15, weight: 0.15}
)

// HeuristicScore is a deterministic 0–100 risk score from the voice
// measurements and the baseline deviation. A measurement the extractor did
// not supply contributes nothing.
func HeuristicScore(f acoustic.FeatureVector, baselineDeviation float64) float64 {
	total := baselineTerm.weight * baselineTerm.risk(score(baselineDeviation))

	if f.Has(acoustic.FieldJitter) {
		total += jitterTerm.weight * jitterTerm.risk(f.JitterPercent)
	}
	if f.Has(acoustic.FieldShimmer) {
		total += shimmerTerm.weight * shimmerTerm.risk(f.ShimmerPercent)
	}
	if f.Has(acoustic.FieldPitchStability) {
		total += stabilityTerm.weight * stabilityTerm.risk(f.PitchStability)
	}
	if f.Has(acoustic.FieldHNR) {
		total += hnrTerm.weight * hnrTerm.risk(f.HarmonicsToNoise)
	}

	return score(total)
}
