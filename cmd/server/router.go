package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/acoustic"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/adapters"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/analysis"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/database"
	_ "github.com/ZanzyTHEbar/cognitive-echo/internal/docs"
	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/middleware"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/monitoring"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/ratelimit"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/resilience"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/security"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/types"
)

// baselineStore is satisfied by *database.BaselineService
type baselineStore interface {
	Lookup(ctx context.Context, subjectID string) (*acoustic.FeatureVector, error)
	Get(ctx context.Context, subjectID string) (*database.Baseline, error)
	Put(ctx context.Context, subjectID string, features acoustic.FeatureVector) (*database.Baseline, error)
	Delete(ctx context.Context, subjectID string) error
}

// transcriptAnalyzer is satisfied by *adapters.LexicalAdapter
type transcriptAnalyzer interface {
	Analyze(ctx context.Context, transcript string) adapters.LexicalResult
}

// riskModel is satisfied by *model.Model
type riskModel interface {
	analysis.RiskModel
	Info() model.Info
}

type server struct {
	model        riskModel
	engine       *analysis.Engine
	baselines    baselineStore
	lexical      transcriptAnalyzer
	security     *security.SecurityMiddleware
	compression  *middleware.Compression
	limiter      *ratelimit.RateLimiter
	analyzeLimit int
	degradation  *resilience.DegradationManager
	metrics      *monitoring.Metrics
	logger       *monitoring.Logger
	stats        map[string]func() map[string]interface{}
	startedAt    time.Time
}

func (s *server) routes() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	if s.compression != nil {
		r.Use(s.compression.Handler())
	}

	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware(s.security.Config().EnableHSTS))
	r.Use(s.security.CORSConfig())
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.BodyLimit)
	r.Use(s.security.ValidateContentType)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.IPRateLimitMiddleware())
	}

	analyze := []gin.HandlerFunc{s.handleAnalyze}
	if s.limiter != nil && s.analyzeLimit > 0 {
		analyze = append([]gin.HandlerFunc{s.limiter.EndpointRateLimitMiddleware("analyze", s.analyzeLimit)}, analyze...)
	}
	api.POST("/analyze", analyze...)

	api.GET("/model", s.handleModel)

	api.PUT("/baselines/:subject", s.handlePutBaseline)
	api.GET("/baselines/:subject", s.handleGetBaseline)
	api.DELETE("/baselines/:subject", s.handleDeleteBaseline)

	return r
}

// handleAnalyze godoc
// @Summary Score one voice sample
// @Tags assessment
// @Accept json
// @Produce json
// @Param request body types.AnalyzeRequest true "Acoustic features, optional subject, transcript or cognitive score"
// @Success 200 {object} types.AnalyzeResponse
// @Failure 400 {object} apperrors.Response
// @Router /api/analyze [post]
func (s *server) handleAnalyze(c *gin.Context) {
	start := time.Now()

	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid analyze request", err.Error()))
		return
	}
	if req.SubjectID != "" {
		if err := database.ValidateSubjectID(req.SubjectID); err != nil {
			_ = c.Error(err)
			return
		}
	}
	if cs := req.CognitiveRiskScore; cs != nil && (math.IsNaN(*cs) || *cs < 0 || *cs > 100) {
		_ = c.Error(apperrors.NewValidationErrorWithMap(map[string]string{
			"cognitive_risk_score": "must be between 0 and 100",
		}))
		return
	}

	features := req.Features.Sanitize()
	transcript := s.security.SanitizeTranscript(req.Transcript)

	var (
		baseline            *acoustic.FeatureVector
		baselineUnavailable bool
		lexical             adapters.LexicalResult
	)

	g, ctx := errgroup.WithContext(c.Request.Context())

	if req.SubjectID != "" && s.baselines != nil {
		g.Go(func() error {
			b, err := s.baselines.Lookup(ctx, req.SubjectID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				baselineUnavailable = true
				s.recordService(resilience.ServiceBaselines, err)
				s.logger.Warn("Baseline lookup failed, scoring without baseline",
					"subject_id", req.SubjectID,
					"error", err,
				)
				return nil
			}
			s.recordService(resilience.ServiceBaselines, nil)
			baseline = b
			return nil
		})
	}

	if req.CognitiveRiskScore == nil && s.lexical != nil {
		g.Go(func() error {
			lexical = s.lexical.Analyze(ctx, transcript)
			switch lexical.ErrorType {
			case adapters.LexicalErrorAPIFailure, adapters.LexicalErrorInvalidResponse:
				s.recordService(resilience.ServiceLexicalAPI, errors.New(lexical.Message))
			case "":
				s.recordService(resilience.ServiceLexicalAPI, nil)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = c.Error(apperrors.NewTimeoutError("analysis cancelled before completion", err))
		return
	}

	cognitive, lexicalStatus := req.CognitiveRiskScore, types.LexicalStatusProvided
	if cognitive == nil {
		lexicalStatus = string(lexical.Status)
		if lexical.Status == "" {
			lexical = adapters.LexicalResult{Status: adapters.LexicalUnavailable, ErrorType: adapters.LexicalErrorNotConfigured}
			lexicalStatus = string(lexical.Status)
		}
		if lexical.Metrics != nil {
			score := analysis.CognitiveScore(*lexical.Metrics)
			cognitive = &score
		}
	}

	assessment := s.engine.Assess(analysis.Request{
		Features:            features,
		Baseline:            baseline,
		BaselineUnavailable: baselineUnavailable,
		Cognitive:           cognitive,
	})
	s.recordModel(assessment)

	explanation, recommendations := analysis.Explain(assessment, features, lexical.Metrics)

	resp := types.AnalyzeResponse{
		SessionID:        uuid.NewString(),
		Assessment:       assessment,
		Explanation:      explanation,
		Recommendations:  recommendations,
		LexicalStatus:    lexicalStatus,
		LexicalErrorType: lexical.ErrorType,
		LexicalMetrics:   lexical.Metrics,
		BaselineUsed:     baseline != nil,
		Timestamp:        time.Now().UTC(),
	}
	if info := s.model.Info(); info.State == model.StateReady.String() {
		resp.ModelVersion = info.Version
	}

	modelUsed := assessment.ModelProbability != nil
	s.metrics.RecordAssessment(string(assessment.NeuroRiskLevel), modelUsed, assessment.CognitiveAvailable, assessment.DegradationReasons)
	s.logger.AssessmentLogger(resp.SessionID, string(assessment.NeuroRiskLevel), assessment.AcousticRiskScore,
		modelUsed, assessment.DegradationReasons, time.Since(start))

	c.JSON(http.StatusOK, resp)
}

// recordModel feeds inference failures of a loaded model into the
// degradation manager. A model that never loaded is pinned at startup.
func (s *server) recordModel(a analysis.Assessment) {
	if a.ModelProbability != nil {
		s.recordService(resilience.ServiceRiskModel, nil)
		return
	}
	for _, reason := range a.DegradationReasons {
		if reason == analysis.ReasonSchemaMismatch || reason == analysis.ReasonInferenceError {
			s.recordService(resilience.ServiceRiskModel, errors.New(reason))
			return
		}
	}
}

func (s *server) recordService(name string, err error) {
	if s.degradation == nil {
		return
	}
	if err != nil {
		s.degradation.RecordError(name, err)
		return
	}
	s.degradation.RecordRequest(name, true)
}

// handleModel godoc
// @Summary Report risk model state
// @Tags model
// @Produce json
// @Success 200 {object} model.Info
// @Router /api/model [get]
func (s *server) handleModel(c *gin.Context) {
	c.JSON(http.StatusOK, s.model.Info())
}

// handlePutBaseline godoc
// @Summary Store features as a subject's baseline
// @Tags baselines
// @Accept json
// @Produce json
// @Param subject path string true "Subject ID"
// @Param request body types.BaselineRequest true "Baseline features"
// @Success 200 {object} types.BaselineResponse
// @Router /api/baselines/{subject} [put]
func (s *server) handlePutBaseline(c *gin.Context) {
	var req types.BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid baseline request", err.Error()))
		return
	}

	b, err := s.baselines.Put(c.Request.Context(), c.Param("subject"), req.Features.Sanitize())
	if err != nil {
		_ = c.Error(s.baselineError(c, err))
		return
	}

	c.JSON(http.StatusOK, baselineResponse(b))
}

// handleGetBaseline godoc
// @Summary Get a subject's baseline
// @Tags baselines
// @Produce json
// @Param subject path string true "Subject ID"
// @Success 200 {object} types.BaselineResponse
// @Failure 404 {object} apperrors.Response
// @Router /api/baselines/{subject} [get]
func (s *server) handleGetBaseline(c *gin.Context) {
	b, err := s.baselines.Get(c.Request.Context(), c.Param("subject"))
	if err != nil {
		_ = c.Error(s.baselineError(c, err))
		return
	}

	c.JSON(http.StatusOK, baselineResponse(b))
}

// handleDeleteBaseline godoc
// @Summary Delete a subject's baseline
// @Tags baselines
// @Param subject path string true "Subject ID"
// @Success 204
// @Failure 404 {object} apperrors.Response
// @Router /api/baselines/{subject} [delete]
func (s *server) handleDeleteBaseline(c *gin.Context) {
	if err := s.baselines.Delete(c.Request.Context(), c.Param("subject")); err != nil {
		_ = c.Error(s.baselineError(c, err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *server) baselineError(c *gin.Context, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, database.ErrNotFound):
		return apperrors.NewNotFoundError("baseline", c.Param("subject"))
	case errors.As(err, &appErr):
		return appErr
	default:
		s.recordService(resilience.ServiceBaselines, err)
		return apperrors.NewInternalError("baseline store failure", err)
	}
}

func baselineResponse(b *database.Baseline) types.BaselineResponse {
	return types.BaselineResponse{
		ID:        b.ID,
		SubjectID: b.SubjectID,
		Features:  b.Features,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// handleHealth godoc
// @Summary Service degradation summary
// @Tags ops
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Router /health [get]
func (s *server) handleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		Status:    "ok",
		Level:     resilience.LevelNormal.String(),
		Model:     s.model.Info(),
		Services:  map[string]*resilience.ServiceHealth{},
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}

	if s.degradation != nil {
		level := s.degradation.OverallLevel()
		resp.Level = level.String()
		resp.Services = s.degradation.GetAllServiceHealth()
		if level != resilience.LevelNormal {
			resp.Status = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleMetrics godoc
// @Summary Service counters
// @Tags ops
// @Produce json
// @Router /metrics [get]
func (s *server) handleMetrics(c *gin.Context) {
	resp := gin.H{"service": s.metrics.GetStats()}
	if s.limiter != nil {
		resp["rate_limiter"] = s.limiter.GetStats()
	}
	for name, stats := range s.stats {
		resp[name] = stats()
	}
	resp["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	c.JSON(http.StatusOK, resp)
}

// modelHealthCheck reports a model that is not ready as unavailable
func modelHealthCheck(m riskModel) func(context.Context) error {
	return func(context.Context) error {
		info := m.Info()
		if info.State != model.StateReady.String() {
			if info.Error != "" {
				return fmt.Errorf("risk model %s: %s", info.State, info.Error)
			}
			return fmt.Errorf("risk model %s", info.State)
		}
		return nil
	}
}
