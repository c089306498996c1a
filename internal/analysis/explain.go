package analysis

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
)

// Explanation thresholds.
const (
	elevatedJitterPercent = 2.0
	lowPitchStability     = 0.6
	lowCoherence          = 0.65
)

// Explain renders a short narrative and follow-up recommendations for an
// assessment. lexical may be nil when no language analysis was available.
func Explain(a Assessment, f acoustic.FeatureVector, lexical *CognitiveMetrics) (string, []string) {
	var parts, recs []string

	switch a.NeuroRiskLevel {
	case RiskHigh:
		parts = append(parts, fmt.Sprintf(
			"Neuro risk is High (acoustic score %.1f/100). Multiple voice biomarkers deviate from expected patterns. Professional evaluation is recommended.",
			a.AcousticRiskScore))
	case RiskMedium:
		parts = append(parts, fmt.Sprintf(
			"Neuro risk is Medium (acoustic score %.1f/100). Some acoustic markers show mild deviation from expected patterns.",
			a.AcousticRiskScore))
	default:
		parts = append(parts, fmt.Sprintf(
			"Neuro risk is Low (acoustic score %.1f/100). Voice biomarkers are within healthy parameters.",
			a.AcousticRiskScore))
	}

	if f.Has(acoustic.FieldJitter) && f.JitterPercent > elevatedJitterPercent {
		parts = append(parts, fmt.Sprintf("Elevated vocal jitter (%.2f%%) suggests increased laryngeal instability.", f.JitterPercent))
		recs = append(recs, "Consider an ENT evaluation to rule out vocal cord pathology.")
	}

	if f.Has(acoustic.FieldPitchStability) && f.PitchStability < lowPitchStability {
		parts = append(parts, fmt.Sprintf("Pitch stability is below normal (%.2f), indicating potential motor speech changes.", f.PitchStability))
	}

	switch a.BaselineComparison.Status {
	case DriftSignificant, DriftCritical:
		parts = append(parts, fmt.Sprintf("Baseline comparison shows %s from the stored profile.",
			strings.ReplaceAll(string(a.BaselineComparison.Status), "_", " ")))
		recs = append(recs, "Schedule a follow-up recording in 2 weeks to track progression.")
	}

	if lexical != nil && lexical.SentenceCoherence < lowCoherence {
		parts = append(parts, "Lexical analysis indicates reduced semantic coherence in speech content.")
		recs = append(recs, "Consider a brief cognitive screening (e.g., MoCA) with your primary care provider.")
	}

	if len(recs) == 0 {
		recs = append(recs,
			"Continue regular monitoring with bi-weekly voice recordings.",
			"Maintain a healthy lifestyle with adequate sleep and hydration.",
		)
	}

	if !a.CognitiveAvailable {
		parts = append(parts, "Note: cognitive assessment was unavailable for this session. Risk is based on acoustic data only.")
		recs = append(recs, "Re-record and retry when language analysis is available for a more comprehensive assessment.")
	}

	return strings.Join(parts, " "), recs
}
