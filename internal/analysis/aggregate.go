package analysis

import "math"

// AcousticFusionWeight is the acoustic share of the combined score when a
// cognitive score is present. The cognitive share is 1 − AcousticFusionWeight.
const AcousticFusionWeight = 0.6

// Risk band thresholds, lower-inclusive.
const (
	mediumRiskAt = 33.0
	highRiskAt   = 66.0
)

// Confidence model.
const (
	maxConfidence       = 0.95
	minConfidence       = 0.30
	disagreementPenalty = 0.5
	bandDistancePenalty = 0.1
)

// LevelFor maps a 0–100 score onto a risk band. Boundary values belong to the
// higher band.
func LevelFor(s float64) RiskLevel {
	switch {
	case s >= highRiskAt:
		return RiskHigh
	case s >= mediumRiskAt:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Aggregate fuses the acoustic score with an optional cognitive score. With no
// cognitive score the level follows the acoustic score alone and confidence is nil.
func Aggregate(acousticScore float64, cognitive *float64) RiskScores {
	a := round(score(acousticScore), 1)

	if cognitive == nil || math.IsNaN(*cognitive) || math.IsInf(*cognitive, 0) {
		return RiskScores{
			AcousticRiskScore: a,
			NeuroRiskLevel:    LevelFor(a),
		}
	}

	c := round(score(*cognitive), 1)
	combined := round(mix(a, c, AcousticFusionWeight), 1)

	bandGap := math.Abs(float64(LevelFor(a).rank() - LevelFor(c).rank()))
	conf := maxConfidence - disagreementPenalty*math.Abs(a-c)/100 - bandDistancePenalty*bandGap
	conf = round(clip(conf, minConfidence, maxConfidence), 2)

	return RiskScores{
		AcousticRiskScore:  a,
		CognitiveRiskScore: &c,
		NeuroRiskLevel:     LevelFor(combined),
		Confidence:         &conf,
		CognitiveAvailable: true,
	}
}

// CognitiveScore converts lexical markers into a 0–100 risk score: the four
// markers average into a health figure which is then inverted.
func CognitiveScore(m CognitiveMetrics) float64 {
	health := 0.25*clip(finite(m.VocabularyRichness), 0, 1) +
		0.25*clip(finite(m.SentenceCoherence), 0, 1) +
		0.25*(1-clip(finite(m.WordFindingDifficulty), 0, 1)) +
		0.25*(1-clip(finite(m.RepetitionTendency), 0, 1))

	return round(score(100*(1-health)), 1)
}
