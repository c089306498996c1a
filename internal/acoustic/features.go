package acoustic

import "math"

// Field identifies one scalar measurement of a voice sample.
type Field uint16

const (
	FieldJitter Field = 1 << iota
	FieldShimmer
	FieldMeanPitch
	FieldPitchStd
	FieldPitchStability
	FieldPauseRatio
	FieldSpeechRate
	FieldHNR
)

// FeatureInput is the wire shape produced by the upstream extractor. Scalars are
// optional so a partially extracted sample can still be scored.
type FeatureInput struct {
	MFCCMean         []float64 `json:"mfcc_mean,omitempty"`
	MFCCStd          []float64 `json:"mfcc_std,omitempty"`
	JitterPercent    *float64  `json:"jitter_percent,omitempty"`
	ShimmerPercent   *float64  `json:"shimmer_percent,omitempty"`
	MeanPitchHz      *float64  `json:"mean_pitch_hz,omitempty"`
	PitchStdHz       *float64  `json:"pitch_std_hz,omitempty"`
	PitchStability   *float64  `json:"pitch_stability,omitempty"`
	PauseRatio       *float64  `json:"pause_ratio,omitempty"`
	SpeechRate       *float64  `json:"speech_rate,omitempty"`
	HarmonicsToNoise *float64  `json:"harmonics_to_noise,omitempty"`
}

// FeatureVector is a validated, immutable set of measurements for one sample.
// Every scalar is finite; ratios are within [0,1].
type FeatureVector struct {
	MFCCMean         []float64
	MFCCStd          []float64
	JitterPercent    float64
	ShimmerPercent   float64
	MeanPitchHz      float64
	PitchStdHz       float64
	PitchStability   float64
	PauseRatio       float64
	SpeechRate       float64
	HarmonicsToNoise float64

	present Field
}

// Value returns a pointer to v, for building a FeatureInput literal.
func Value(v float64) *float64 { return &v }

// Has reports whether the extractor supplied a finite value for f.
func (v FeatureVector) Has(f Field) bool { return v.present&f != 0 }

// Sanitize converts the wire input into a FeatureVector. Missing and non-finite
// scalars become 0, magnitudes are floored at 0, and ratios are clamped to [0,1].
func (in FeatureInput) Sanitize() FeatureVector {
	var v FeatureVector

	take := func(p *float64, f Field) float64 {
		if p == nil || !isFinite(*p) {
			return 0
		}
		v.present |= f
		return *p
	}

	v.JitterPercent = math.Max(0, take(in.JitterPercent, FieldJitter))
	v.ShimmerPercent = math.Max(0, take(in.ShimmerPercent, FieldShimmer))
	v.MeanPitchHz = math.Max(0, take(in.MeanPitchHz, FieldMeanPitch))
	v.PitchStdHz = math.Max(0, take(in.PitchStdHz, FieldPitchStd))
	v.PitchStability = clampUnit(take(in.PitchStability, FieldPitchStability))
	v.PauseRatio = clampUnit(take(in.PauseRatio, FieldPauseRatio))
	v.SpeechRate = math.Max(0, take(in.SpeechRate, FieldSpeechRate))
	// HNR is a dB value and may legitimately be negative for very noisy voices.
	v.HarmonicsToNoise = take(in.HarmonicsToNoise, FieldHNR)

	v.MFCCMean = sanitizeSlice(in.MFCCMean)
	v.MFCCStd = sanitizeSlice(in.MFCCStd)

	return v
}

// Input converts the vector back to its wire form, omitting fields that were
// never supplied. Used to persist a vector as a baseline.
func (v FeatureVector) Input() FeatureInput {
	opt := func(f Field, x float64) *float64 {
		if !v.Has(f) {
			return nil
		}
		return Value(x)
	}

	return FeatureInput{
		MFCCMean:         append([]float64(nil), v.MFCCMean...),
		MFCCStd:          append([]float64(nil), v.MFCCStd...),
		JitterPercent:    opt(FieldJitter, v.JitterPercent),
		ShimmerPercent:   opt(FieldShimmer, v.ShimmerPercent),
		MeanPitchHz:      opt(FieldMeanPitch, v.MeanPitchHz),
		PitchStdHz:       opt(FieldPitchStd, v.PitchStdHz),
		PitchStability:   opt(FieldPitchStability, v.PitchStability),
		PauseRatio:       opt(FieldPauseRatio, v.PauseRatio),
		SpeechRate:       opt(FieldSpeechRate, v.SpeechRate),
		HarmonicsToNoise: opt(FieldHNR, v.HarmonicsToNoise),
	}
}

func sanitizeSlice(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		if isFinite(x) {
			out[i] = x
		}
	}
	return out
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
