package analysis

import (
	"log/slog"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
)

// RiskModel scores mapped feature vectors. *model.Model satisfies it.
type RiskModel interface {
	Score(v acoustic.ModelVector) model.Score
	Imputation() acoustic.Imputation
}

// Request is the input to one assessment. Baseline and Cognitive are optional;
// BaselineUnavailable marks a store failure as opposed to a first-time subject.
type Request struct {
	Features            acoustic.FeatureVector
	Baseline            *acoustic.FeatureVector
	BaselineUnavailable bool
	Cognitive           *float64
}

// Engine orchestrates the scoring pipeline
type Engine struct {
	model  RiskModel
	logger *slog.Logger
}

// NewEngine creates an engine around m. A nil model scores heuristic-only.
func NewEngine(m RiskModel, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{model: m, logger: logger}
}

// Assess scores one sample. It never fails: every degraded path produces a
// complete Assessment with the reasons listed.
func (e *Engine) Assess(req Request) Assessment {
	reasons := make([]string, 0, 3)

	baseline := CompareBaseline(req.Features, req.Baseline)
	if req.BaselineUnavailable {
		reasons = append(reasons, ReasonBaselineUnavailable)
	}

	heuristic := HeuristicScore(req.Features, baseline.DeviationScore)

	ms := e.scoreModel(req.Features)
	var probability *float64
	if ms.Ready() {
		p := round(ms.Probability, 4)
		probability = &p
	} else {
		reasons = append(reasons, string(ms.Reason))
		e.logger.Warn("Model score unavailable, using heuristic only", "reason", ms.Reason)
	}

	risk := Aggregate(Blend(ms, heuristic), req.Cognitive)
	if !risk.CognitiveAvailable {
		reasons = append(reasons, ReasonCognitiveUnavailable)
	}

	return Assessment{
		RiskScores:         risk,
		BaselineComparison: baseline,
		HeuristicScore:     round(heuristic, 1),
		ModelProbability:   probability,
		Degraded:           len(reasons) > 0,
		DegradationReasons: reasons,
	}
}

func (e *Engine) scoreModel(f acoustic.FeatureVector) model.Score {
	if e.model == nil {
		return model.Unavailable(model.ReasonUnavailable)
	}
	mapper := acoustic.NewMapper(e.model.Imputation())
	return e.model.Score(mapper.Map(f))
}
