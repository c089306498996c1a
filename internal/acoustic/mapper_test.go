package acoustic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(t *testing.T, name string) int {
	t.Helper()
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown column %q", name)
	return -1
}

func TestMapper_Map(t *testing.T) {
	m := NewMapper(DefaultImputation)

	v := FeatureInput{
		JitterPercent:    Value(2),
		ShimmerPercent:   Value(10),
		MeanPitchHz:      Value(200),
		PitchStdHz:       Value(20),
		PitchStability:   Value(0.8),
		PauseRatio:       Value(0.25),
		SpeechRate:       Value(4),
		HarmonicsToNoise: Value(20),
	}.Sanitize()

	out := m.Map(v)
	require.Equal(t, ModelWidth, out.Len())
	require.Len(t, out.Names, ModelWidth)

	tests := []struct {
		column   string
		expected float64
	}{
		{"subject_id", 20.5},
		{"jitter_local", 2},
		{"jitter_local_abs", 2 * 6e-5},
		{"jitter_rap", 1},
		{"jitter_ppq5", 1.1},
		{"jitter_ddp", 3},
		{"shimmer_local", 10},
		{"shimmer_local_db", 0.864},
		{"shimmer_apq3", 5},
		{"shimmer_apq5", 6},
		{"shimmer_apq11", 8},
		{"shimmer_dda", 15},
		{"ac", 0.8},
		{"nth", 0.05},
		{"htn", 20},
		{"median_pitch", 200},
		{"mean_pitch", 200},
		{"pitch_std", 20},
		{"min_pitch", 160},
		{"max_pitch", 240},
		{"num_pulses", 120},
		{"num_periods", 119},
		{"mean_period", 0.005},
		{"period_std", 0.0005},
		{"unvoiced_fraction", 25},
		{"num_voice_breaks", 3},
		{"voice_break_degree", 15},
		{"updrs", 13},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			i := indexOf(t, tt.column)
			assert.Equal(t, tt.column, out.Names[i])
			assert.InDelta(t, tt.expected, out.Values[i], 1e-9)
		})
	}
}

func TestMapper_MapEmptyInput(t *testing.T) {
	m := NewMapper(Imputation{SubjectID: 1, UPDRS: 2})
	out := m.Map(FeatureInput{}.Sanitize())

	require.Equal(t, ModelWidth, out.Len())
	for i, x := range out.Values {
		assert.False(t, math.IsNaN(x) || math.IsInf(x, 0), "column %s is not finite", out.Names[i])
	}

	assert.Equal(t, 1.0, out.Values[0])
	assert.Equal(t, 2.0, out.Values[ModelWidth-1])
	assert.Equal(t, 0.0, out.Values[indexOf(t, "nth")])
	assert.Equal(t, 0.0, out.Values[indexOf(t, "mean_period")])
	assert.Equal(t, 0.0, out.Values[indexOf(t, "num_periods")])
}

func TestMapper_NoiseToHarmonics(t *testing.T) {
	tests := []struct {
		name     string
		hnr      float64
		expected float64
	}{
		{"negative HNR", -3, 0},
		{"zero HNR", 0, 0},
		{"small HNR capped", 0.5, 1},
		{"typical HNR", 25, 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, noiseToHarmonics(tt.hnr), 1e-12)
		})
	}
}

func TestMapper_Deterministic(t *testing.T) {
	m := NewMapper(DefaultImputation)
	v := FeatureInput{JitterPercent: Value(1.3), MeanPitchHz: Value(150)}.Sanitize()

	first := m.Map(v)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Map(v))
	}
}

func TestMapper_ReturnsIndependentNames(t *testing.T) {
	m := NewMapper(DefaultImputation)
	out := m.Map(FeatureVector{})
	out.Names[0] = "mutated"

	assert.Equal(t, "subject_id", FeatureNames[0])
}
