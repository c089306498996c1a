package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected float64
	}{
		{"below range", -5, 0},
		{"inside range", 42, 42},
		{"above range", 150, 100},
		{"at lower bound", 0, 0},
		{"at upper bound", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clip(tt.x, 0, 100))
		})
	}
}

func TestSigmoid(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"sigmoid of 0", 0, 0.5},
		{"sigmoid of positive value", 1.0, 0.7310585786300049},
		{"sigmoid of negative value", -1.0, 0.2689414213699951},
		{"sigmoid of large positive value", 100, 1},
		{"sigmoid of large negative value", -100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, sigmoid(tt.input), 1e-12)
		})
	}
}

func TestScoreSanitizes(t *testing.T) {
	assert.Equal(t, 0.0, score(math.NaN()))
	assert.Equal(t, 0.0, score(math.Inf(1)))
	assert.Equal(t, 0.0, score(math.Inf(-1)))
	assert.Equal(t, 100.0, score(250))
	assert.Equal(t, 0.0, score(-3))
	assert.Equal(t, 55.5, score(55.5))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 44.0, round(43.96, 1))
	assert.Equal(t, 0.45, round(0.4499999, 2))
	assert.Equal(t, 3.0, round(2.5, 0))
}

func TestPctChange(t *testing.T) {
	tests := []struct {
		name      string
		cur, base float64
		expected  float64
	}{
		{"zero base", 10, 0, 0},
		{"no change", 120, 120, 0},
		{"ten percent up", 110, 100, 10},
		{"ten percent down", 90, 100, 10},
		{"capped at 100", 500, 100, 100},
		{"negative base uses magnitude", -90, -100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, pctChange(tt.cur, tt.base), 1e-9)
		})
	}
}

func TestMix(t *testing.T) {
	assert.Equal(t, 7.0, mix(10, 5, 0.4))
	assert.Equal(t, 10.0, mix(10, 5, 2))
	assert.Equal(t, 5.0, mix(10, 5, -1))
}

func TestEuclidean(t *testing.T) {
	assert.Equal(t, 5.0, euclidean([]float64{3, 0}, []float64{0, 4}))
	assert.Equal(t, 5.0, norm([]float64{3, 4}))
	assert.Equal(t, 0.0, norm(nil))
}
