package model

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

// State is the lifecycle state of the risk model.
type State int32

const (
	StateUnloaded State = iota
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Reason explains why a Score carries no probability.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonUnavailable    Reason = "model_unavailable"
	ReasonSchemaMismatch Reason = "schema_mismatch"
	ReasonInferenceError Reason = "inference_error"
)

// Score is the tagged result of one inference: either Ready with a
// probability in [0,1], or not ready with a Reason.
type Score struct {
	Probability float64
	Reason      Reason
}

// Ready reports whether the score carries a usable probability.
func (s Score) Ready() bool { return s.Reason == ReasonNone }

// Unavailable builds a score without a probability.
func Unavailable(r Reason) Score { return Score{Reason: r} }

// snapshot is an immutable view of a loaded artifact. Each Score call reads
// exactly one snapshot so a concurrent Reload never mixes two artifacts.
type snapshot struct {
	state     State
	path      string
	artifact  *Artifact
	est       estimator
	loadedAt  time.Time
	loadError error
}

// Model owns the classifier artifact. The zero value is Unloaded and scores
// every vector as unavailable. All methods are safe for concurrent use.
type Model struct {
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
}

// New creates an unloaded model.
func New(logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{logger: logger}
}

func (m *Model) log() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Load creates a model from the artifact at path. A failed load leaves the
// model Unavailable rather than returning an error; callers inspect State or
// Info when they need to know. An empty path means heuristic-only operation.
func Load(path string, logger *slog.Logger) *Model {
	m := New(logger)
	if path == "" {
		m.current.Store(&snapshot{
			state:     StateUnavailable,
			loadError: apperrors.NewModelError(path, fmt.Errorf("no model path configured")),
		})
		m.log().Warn("No model artifact configured, scoring is heuristic-only")
		return m
	}
	if err := m.Reload(path); err != nil {
		m.current.Store(&snapshot{state: StateUnavailable, path: path, loadError: err})
	}
	return m
}

// Reload builds a new snapshot from path and swaps it in. On failure the
// current snapshot stays in place and the error is returned.
func (m *Model) Reload(path string) error {
	start := time.Now()

	a, err := ReadArtifact(path)
	if err != nil {
		appErr := apperrors.NewModelError(path, err)
		m.log().Error("Failed to load risk model",
			"path", path,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return appErr
	}

	positive, _ := a.positiveIndex()
	m.current.Store(&snapshot{
		state:    StateReady,
		path:     path,
		artifact: a,
		est:      newEstimator(a, positive),
		loadedAt: time.Now(),
	})

	m.log().Info("Risk model loaded",
		"path", path,
		"version", a.Version,
		"estimator", a.Estimator.Type,
		"features", len(a.FeatureNames),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// State returns the current lifecycle state.
func (m *Model) State() State {
	if s := m.current.Load(); s != nil {
		return s.state
	}
	return StateUnloaded
}

// Imputation returns the training means for the non-derivable columns of the
// loaded artifact, or the defaults when no artifact is ready.
func (m *Model) Imputation() acoustic.Imputation {
	if s := m.current.Load(); s != nil && s.artifact != nil {
		return s.artifact.imputation()
	}
	return acoustic.DefaultImputation
}

// Score returns P(at-risk) for v. It never panics and never returns an error:
// every failure is reported through the Reason of the returned Score.
func (m *Model) Score(v acoustic.ModelVector) (score Score) {
	s := m.current.Load()
	if s == nil || s.state != StateReady {
		return Unavailable(ReasonUnavailable)
	}

	names := s.artifact.FeatureNames
	if len(v.Values) != len(names) || (v.Names != nil && len(v.Names) != len(names)) {
		return Unavailable(ReasonSchemaMismatch)
	}
	for i, name := range v.Names {
		if !matchesColumn(names[i], i, name) {
			return Unavailable(ReasonSchemaMismatch)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			m.log().Error("Recovered panic during model inference", "panic", r)
			score = Unavailable(ReasonInferenceError)
		}
	}()

	x := make([]float64, len(v.Values))
	for i, val := range v.Values {
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			x[i] = val
		}
	}

	p, err := s.est.probability(standardize(x, s.artifact.Scaler))
	if err != nil {
		m.log().Warn("Model inference failed", "error", err)
		return Unavailable(ReasonInferenceError)
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Unavailable(ReasonInferenceError)
	}

	return Score{Probability: math.Max(0, math.Min(1, p))}
}

// Info describes the loaded artifact for operators.
type Info struct {
	State         string    `json:"state"`
	Path          string    `json:"path,omitempty"`
	Version       string    `json:"version,omitempty"`
	Estimator     string    `json:"estimator,omitempty"`
	Trees         int       `json:"trees,omitempty"`
	FeatureCount  int       `json:"feature_count"`
	FeatureNames  []string  `json:"feature_names,omitempty"`
	Classes       []string  `json:"classes,omitempty"`
	PositiveClass string    `json:"positive_class,omitempty"`
	LoadedAt      time.Time `json:"loaded_at,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Info returns a description of the current snapshot.
func (m *Model) Info() Info {
	s := m.current.Load()
	if s == nil {
		return Info{State: StateUnloaded.String()}
	}

	info := Info{State: s.state.String(), Path: s.path}
	if s.loadError != nil {
		info.Error = s.loadError.Error()
	}
	if a := s.artifact; a != nil {
		positive, _ := a.positiveIndex()
		info.Version = a.Version
		info.Estimator = a.Estimator.Type
		info.Trees = len(a.Estimator.Trees)
		info.FeatureCount = len(a.FeatureNames)
		info.FeatureNames = append([]string(nil), a.FeatureNames...)
		info.Classes = append([]string(nil), a.Classes...)
		info.PositiveClass = a.Classes[positive]
		info.LoadedAt = s.loadedAt
	}
	return info
}
