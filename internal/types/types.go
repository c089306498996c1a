package types

import (
	"time"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/analysis"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/resilience"
)

// AnalyzeRequest represents the request structure for the analyze endpoint.
// CognitiveRiskScore, when set, takes precedence over scoring the transcript.
type AnalyzeRequest struct {
	SubjectID          string                `json:"subject_id,omitempty" example:"subject-042"`
	Features           acoustic.FeatureInput `json:"features" binding:"required"`
	Transcript         string                `json:"transcript,omitempty"`
	CognitiveRiskScore *float64              `json:"cognitive_risk_score,omitempty" example:"42.5"`
}

// AnalyzeResponse is one complete assessment
type AnalyzeResponse struct {
	SessionID string `json:"session_id"`
	analysis.Assessment
	Explanation      string                     `json:"explanation"`
	Recommendations  []string                   `json:"recommendations"`
	LexicalStatus    string                     `json:"lexical_status"`
	LexicalErrorType string                     `json:"lexical_error_type,omitempty"`
	LexicalMetrics   *analysis.CognitiveMetrics `json:"lexical_metrics,omitempty"`
	BaselineUsed     bool                       `json:"baseline_used"`
	ModelVersion     string                     `json:"model_version,omitempty"`
	Timestamp        time.Time                  `json:"timestamp"`
}

// LexicalStatusProvided marks a cognitive score supplied by the caller
const LexicalStatusProvided = "provided"

// BaselineRequest stores a subject's reference features
type BaselineRequest struct {
	Features acoustic.FeatureInput `json:"features" binding:"required"`
}

// BaselineResponse describes a stored baseline
type BaselineResponse struct {
	ID        string                `json:"id"`
	SubjectID string                `json:"subject_id"`
	Features  acoustic.FeatureInput `json:"features"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// HealthResponse reports service and dependency health
type HealthResponse struct {
	Status    string                               `json:"status"`
	Level     string                               `json:"degradation_level"`
	Model     model.Info                           `json:"model"`
	Services  map[string]*resilience.ServiceHealth `json:"services"`
	Uptime    string                               `json:"uptime"`
	Timestamp time.Time                            `json:"timestamp"`
}
