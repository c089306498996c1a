package analysis

import "math"

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// finite replaces NaN and ±Inf with 0.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// score clamps x into [0,100], mapping non-finite values to 0.
func score(x float64) float64 { return clip(finite(x), 0, 100) }

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// pctChange is 100·|cur−base|/|base|, clamped to [0,100]. A zero base yields 0.
func pctChange(cur, base float64) float64 {
	if base == 0 {
		return 0
	}
	return score(100 * math.Abs(cur-base) / math.Abs(base))
}

// mix returns lambda·a + (1−lambda)·b with lambda clamped to [0,1].
func mix(a, b, lambda float64) float64 {
	lambda = clip(lambda, 0, 1)
	return lambda*a + (1-lambda)*b
}

func euclidean(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func norm(a []float64) float64 {
	return euclidean(a, make([]float64, len(a)))
}
