package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
)

// Drift weights and proxies.
const (
	mfccWeight   = 0.4
	pitchWeight  = 0.3
	rhythmWeight = 0.3

	// MFCC proxy when spectra are missing: drift points per unit change
	jitterDriftPerPercent  = 15.0
	shimmerDriftPerPercent = 5.0

	pitchMeanShare  = 0.7
	pauseShare      = 0.6
	pauseDriftScale = 120.0
)

// Drift status thresholds, lower-inclusive.
const (
	mildDriftAt        = 20.0
	significantDriftAt = 45.0
	criticalDriftAt    = 70.0
)

// StatusFor classifies a deviation score.
func StatusFor(deviation float64) DriftStatus {
	switch {
	case deviation >= criticalDriftAt:
		return DriftCritical
	case deviation >= significantDriftAt:
		return DriftSignificant
	case deviation >= mildDriftAt:
		return DriftMild
	default:
		return DriftNormal
	}
}

// CompareBaseline measures drift of current from a stored baseline. A nil
// baseline is a first-time subject: every metric is 0 and status is normal.
func CompareBaseline(current acoustic.FeatureVector, baseline *acoustic.FeatureVector) BaselineComparison {
	if baseline == nil {
		return BaselineComparison{Status: DriftNormal}
	}
	b := *baseline

	mfcc := mfccDrift(current, b)

	pitch := 0.0
	if bothHave(current, b, acoustic.FieldMeanPitch) {
		pitch += pitchMeanShare * pctChange(current.MeanPitchHz, b.MeanPitchHz)
	}
	if bothHave(current, b, acoustic.FieldPitchStd) {
		pitch += (1 - pitchMeanShare) * pctChange(current.PitchStdHz, b.PitchStdHz)
	}

	rhythm := 0.0
	if bothHave(current, b, acoustic.FieldPauseRatio) {
		rhythm += pauseShare * math.Min(100, pauseDriftScale*math.Abs(current.PauseRatio-b.PauseRatio))
	}
	if bothHave(current, b, acoustic.FieldSpeechRate) {
		rhythm += (1 - pauseShare) * pctChange(current.SpeechRate, b.SpeechRate)
	}

	deviation := score(mfccWeight*mfcc + pitchWeight*pitch + rhythmWeight*rhythm)

	return BaselineComparison{
		DeviationScore:  round(deviation, 2),
		MFCCDrift:       round(score(mfcc), 2),
		PitchDeviation:  round(score(pitch), 2),
		RhythmDeviation: round(score(rhythm), 2),
		Status:          StatusFor(deviation),
	}
}

// mfccDrift is the relative distance between MFCC mean vectors, or a
// jitter/shimmer proxy when either vector is missing or they differ in length.
func mfccDrift(cur, base acoustic.FeatureVector) float64 {
	if len(cur.MFCCMean) > 0 && len(cur.MFCCMean) == len(base.MFCCMean) {
		return score(100 * euclidean(cur.MFCCMean, base.MFCCMean) / math.Max(norm(base.MFCCMean), 1))
	}

	drift := 0.0
	if bothHave(cur, base, acoustic.FieldJitter) {
		drift += jitterDriftPerPercent * math.Abs(cur.JitterPercent-base.JitterPercent)
	}
	if bothHave(cur, base, acoustic.FieldShimmer) {
		drift += shimmerDriftPerPercent * math.Abs(cur.ShimmerPercent-base.ShimmerPercent)
	}
	return score(drift)
}

func bothHave(a, b acoustic.FeatureVector, f acoustic.Field) bool {
	return a.Has(f) && b.Has(f)
}
