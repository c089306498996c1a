package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/monitoring"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/resilience"
)

const (
	// DefaultLexicalURL is the Featherless chat-completions endpoint
	DefaultLexicalURL   = "https://api.featherless.ai/v1/chat/completions"
	DefaultLexicalModel = "meta-llama/Llama-3-70b-chat-hf"

	lexicalAPIName          = "lexical"
	lexicalTemperature      = 0.2
	lexicalMaxTokens        = 300
	maxLexicalResponseBytes = 1 << 20
)

const lexicalSystemPrompt = "You are a clinical neurolinguistics expert. " +
	"Analyze the following speech transcript for cognitive-linguistic markers. " +
	"Evaluate ONLY the following dimensions and return a JSON object with " +
	"exactly these keys:\n" +
	"\n" +
	`  "vocabulary_richness"      - float 0 to 1 (1 = highly diverse vocabulary)` + "\n" +
	`  "sentence_coherence"       - float 0 to 1 (1 = perfectly coherent)` + "\n" +
	`  "word_finding_difficulty"  - float 0 to 1 (1 = severe difficulty)` + "\n" +
	`  "repetition_tendency"      - float 0 to 1 (1 = highly repetitive)` + "\n" +
	`  "cognitive_concern"        - string, one of "Low", "Medium", or "High"` + "\n" +
	"\n" +
	"Return ONLY valid JSON. No markdown, no explanation, no extra text."

// LexicalStatus reports whether lexical metrics were produced
type LexicalStatus string

const (
	LexicalSuccess     LexicalStatus = "success"
	LexicalUnavailable LexicalStatus = "unavailable"
)

// Lexical error types carried by an unavailable result
const (
	LexicalErrorEmptyTranscript = "empty_transcript"
	LexicalErrorNotConfigured   = "not_configured"
	LexicalErrorAPIFailure      = "api_failure"
	LexicalErrorInvalidResponse = "invalid_response"
)

var errInvalidResponse = errors.New("invalid lexical response")

// LexicalConfig holds lexical analysis service configuration
type LexicalConfig struct {
	URL     string        `json:"url" yaml:"url"`
	APIKey  string        `json:"-" yaml:"api_key"`
	Model   string        `json:"model" yaml:"model"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// LexicalResult is the outcome of one transcript analysis. Metrics is only
// set on success; a failed call never produces metrics.
type LexicalResult struct {
	Status    LexicalStatus              `json:"status"`
	ErrorType string                     `json:"error_type,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Metrics   *analysis.CognitiveMetrics `json:"metrics,omitempty"`
}

func lexicalUnavailable(errorType, message string) LexicalResult {
	return LexicalResult{Status: LexicalUnavailable, ErrorType: errorType, Message: message}
}

// LexicalAdapter scores transcripts through an OpenAI-compatible
// chat-completions endpoint
type LexicalAdapter struct {
	config  LexicalConfig
	client  *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryPolicy
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewLexicalAdapter creates a new lexical adapter with connection pooling
func NewLexicalAdapter(config LexicalConfig, metrics *monitoring.Metrics, logger *monitoring.Logger) *LexicalAdapter {
	if config.URL == "" {
		config.URL = DefaultLexicalURL
	}
	if config.Model == "" {
		config.Model = DefaultLexicalModel
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = monitoring.NewLogger(slog.LevelInfo)
	}

	poolConfig := resilience.DefaultPoolConfig()
	poolConfig.RequestTimeout = config.Timeout

	retry := resilience.LexicalRetryPolicy
	retry.Config.RetryableErrors = func(err error) bool {
		if errors.Is(err, errInvalidResponse) {
			return false
		}
		return resilience.IsRetryable(err)
	}

	return &LexicalAdapter{
		config: config,
		client: resilience.NewPooledClient(poolConfig),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
			OnStateChange: func(from, to resilience.CircuitBreakerState) {
				logger.Warn("Lexical circuit breaker state changed", "from", from.String(), "to", to.String())
				if metrics == nil {
					return
				}
				if to == resilience.StateOpen {
					metrics.IncrementCircuitBreakerOpen()
				} else if to == resilience.StateClosed {
					metrics.IncrementCircuitBreakerClose()
				}
			},
		}),
		retry:   retry,
		metrics: metrics,
		logger:  logger,
	}
}

// IsConfigured reports whether an API key is set
func (l *LexicalAdapter) IsConfigured() bool {
	return l.config.APIKey != ""
}

// Analyze scores a transcript. It never returns an error: every failure is an
// unavailable result with an error type.
func (l *LexicalAdapter) Analyze(ctx context.Context, transcript string) LexicalResult {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return lexicalUnavailable(LexicalErrorEmptyTranscript, "transcript must be a non-empty string")
	}
	if !l.IsConfigured() {
		return lexicalUnavailable(LexicalErrorNotConfigured, "lexical analysis API key is not configured")
	}

	var metrics *analysis.CognitiveMetrics
	err := resilience.RetryWithPolicy(ctx, l.retry, func() error {
		return l.breaker.Call(func() error {
			m, err := l.complete(ctx, transcript)
			if err != nil {
				return err
			}
			metrics = m
			return nil
		})
	})

	if err != nil {
		l.logger.Warn("Lexical analysis unavailable", "error", err, "breaker", l.breaker.State().String())
		if errors.Is(err, errInvalidResponse) {
			return lexicalUnavailable(LexicalErrorInvalidResponse, err.Error())
		}
		return lexicalUnavailable(LexicalErrorAPIFailure, err.Error())
	}

	l.logger.Info("Lexical analysis complete",
		"concern", metrics.CognitiveConcern,
		"coherence", metrics.SentenceCoherence,
		"transcript_chars", len(transcript),
	)
	return LexicalResult{Status: LexicalSuccess, Metrics: metrics}
}

// BreakerState returns the circuit breaker state for health reporting
func (l *LexicalAdapter) BreakerState() resilience.CircuitBreakerState {
	return l.breaker.State()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs one chat-completions call
func (l *LexicalAdapter) complete(ctx context.Context, transcript string) (*analysis.CognitiveMetrics, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       l.config.Model,
		Temperature: lexicalTemperature,
		MaxTokens:   lexicalMaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: lexicalSystemPrompt},
			{Role: "user", Content: "Transcript:\n\n" + transcript},
		},
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode lexical request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build lexical request", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		l.record(req, 0, start, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewNetworkError("lexical API unreachable", err)
	}
	defer apperrors.SafeClose(resp.Body, "lexical response body")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLexicalResponseBytes))
	if err != nil {
		l.record(req, resp.StatusCode, start, false)
		return nil, apperrors.NewNetworkError("failed to read lexical response", err)
	}

	if resp.StatusCode != http.StatusOK {
		l.record(req, resp.StatusCode, start, false)
		httpErr := resilience.NewHTTPError(resp.StatusCode, resp.Status)
		httpErr.Message = fmt.Sprintf("lexical API returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 300))
		return nil, httpErr
	}
	l.record(req, resp.StatusCode, start, true)

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: unexpected completion format", errInvalidResponse)
	}

	return ParseLexicalMetrics(completion.Choices[0].Message.Content)
}

func (l *LexicalAdapter) record(req *http.Request, status int, start time.Time, success bool) {
	l.logger.ExternalAPILogger(lexicalAPIName, req.Method, req.URL.Host, status, time.Since(start), success)
	if l.metrics != nil {
		l.metrics.RecordExternalAPIRequest(lexicalAPIName, success)
	}
}

// ParseLexicalMetrics extracts the metrics object from a model reply. Markdown
// fences around the JSON are tolerated; scores are clamped to [0,1].
func ParseLexicalMetrics(raw string) (*analysis.CognitiveMetrics, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		if i := strings.Index(cleaned, "\n"); i >= 0 {
			cleaned = cleaned[i+1:]
		} else {
			cleaned = cleaned[3:]
		}
	}
	cleaned = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cleaned), "```"))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: reply is not a JSON object: %s", errInvalidResponse, truncate(raw, 200))
	}

	var m analysis.CognitiveMetrics
	scores := []struct {
		key string
		dst *float64
	}{
		{"vocabulary_richness", &m.VocabularyRichness},
		{"sentence_coherence", &m.SentenceCoherence},
		{"word_finding_difficulty", &m.WordFindingDifficulty},
		{"repetition_tendency", &m.RepetitionTendency},
	}
	for _, s := range scores {
		v, ok := fields[s.key]
		if !ok {
			return nil, fmt.Errorf("%w: missing key %q", errInvalidResponse, s.key)
		}
		if err := json.Unmarshal(v, s.dst); err != nil {
			return nil, fmt.Errorf("%w: key %q is not a number", errInvalidResponse, s.key)
		}
		*s.dst = clamp01(*s.dst)
	}

	concern, ok := fields["cognitive_concern"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", errInvalidResponse, "cognitive_concern")
	}
	if err := json.Unmarshal(concern, &m.CognitiveConcern); err != nil {
		return nil, fmt.Errorf("%w: key %q is not a string", errInvalidResponse, "cognitive_concern")
	}
	switch analysis.RiskLevel(m.CognitiveConcern) {
	case analysis.RiskLow, analysis.RiskMedium, analysis.RiskHigh:
	default:
		return nil, fmt.Errorf("%w: cognitive_concern must be Low, Medium or High, got %q", errInvalidResponse, m.CognitiveConcern)
	}

	return &m, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
