package analysis

// RiskLevel is the final tri-band verdict.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// rank orders levels for band-distance arithmetic.
func (l RiskLevel) rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 0
	}
}

// DriftStatus classifies the deviation from a subject's baseline.
type DriftStatus string

const (
	DriftNormal      DriftStatus = "normal"
	DriftMild        DriftStatus = "mild_drift"
	DriftSignificant DriftStatus = "significant_drift"
	DriftCritical    DriftStatus = "critical_drift"
)

// Degradation reasons reported alongside a partial result. The model reasons
// share their values with model.Reason.
const (
	ReasonModelUnavailable     = "model_unavailable"
	ReasonSchemaMismatch       = "schema_mismatch"
	ReasonInferenceError       = "inference_error"
	ReasonCognitiveUnavailable = "cognitive_unavailable"
	ReasonBaselineUnavailable  = "baseline_unavailable"
)

type BaselineComparison struct {
	DeviationScore  float64     `json:"deviation_score"`
	MFCCDrift       float64     `json:"mfcc_drift"`
	PitchDeviation  float64     `json:"pitch_deviation"`
	RhythmDeviation float64     `json:"rhythm_deviation"`
	Status          DriftStatus `json:"status"`
}

type RiskScores struct {
	AcousticRiskScore  float64   `json:"acoustic_risk_score"`
	CognitiveRiskScore *float64  `json:"cognitive_risk_score"`
	NeuroRiskLevel     RiskLevel `json:"neuro_risk_level"`
	Confidence         *float64  `json:"confidence"`
	CognitiveAvailable bool      `json:"cognitive_available"`
}

// Assessment is the complete engine output for one sample.
type Assessment struct {
	RiskScores
	BaselineComparison BaselineComparison `json:"baseline_comparison"`
	HeuristicScore     float64            `json:"heuristic_score"`
	ModelProbability   *float64           `json:"model_probability"`
	Degraded           bool               `json:"degraded"`
	DegradationReasons []string           `json:"degradation_reasons"`
}

// CognitiveMetrics are the lexical markers returned by the language analysis
// collaborator, each in [0,1].
type CognitiveMetrics struct {
	VocabularyRichness    float64 `json:"vocabulary_richness"`
	SentenceCoherence     float64 `json:"sentence_coherence"`
	WordFindingDifficulty float64 `json:"word_finding_difficulty"`
	RepetitionTendency    float64 `json:"repetition_tendency"`
	CognitiveConcern      string  `json:"cognitive_concern"`
}
