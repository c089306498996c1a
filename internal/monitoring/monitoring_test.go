package monitoring

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLILogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(slog.LevelDebug)
	logger.CacheLogger("get", "subject-0123456789", true, 3)
	out := buf.String()
	assert.Contains(t, out, "Cache Operation")
	assert.Contains(t, out, "subject-...")
	assert.NotContains(t, out, "0123456789")
}

func TestLogger_AssessmentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLILogger(&buf, slog.LevelInfo)

	logger.AssessmentLogger("sess-1", "Medium", 42.5, false, []string{"model_unavailable"}, time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, "session_id=sess-1")
	assert.Contains(t, out, "neuro_risk_level=Medium")
	assert.Contains(t, out, "model_used=false")
}

func TestMetrics_RecordAssessment(t *testing.T) {
	m := NewMetrics()

	m.RecordAssessment("Low", true, true, nil)
	m.RecordAssessment("High", false, false, []string{"model_unavailable", "cognitive_unavailable"})
	m.RecordAssessment("High", false, true, []string{"model_unavailable"})

	stats := m.GetAssessmentStats()
	assert.Equal(t, int64(3), stats["total"])
	assert.Equal(t, int64(1), stats["model_scored"])
	assert.Equal(t, int64(2), stats["heuristic_fallbacks"])
	assert.Equal(t, int64(1), stats["cognitive_unavailable"])
	assert.Equal(t, map[string]int64{"Low": 1, "High": 2}, stats["risk_levels"])
	assert.Equal(t, map[string]int64{"model_unavailable": 2, "cognitive_unavailable": 1}, stats["degradation_reasons"])
	assert.InDelta(t, 66.67, stats["fallback_rate_percent"].(float64), 0.01)
}

func TestMetrics_Percentiles(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, time.Duration(0), m.GetPercentileResponseTime(50))

	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 50*time.Millisecond, m.GetPercentileResponseTime(50))
	assert.Equal(t, 100*time.Millisecond, m.GetPercentileResponseTime(100))
	assert.Equal(t, 1*time.Millisecond, m.GetPercentileResponseTime(0))
}

func TestMetrics_ResponseTimeWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxResponseSamples+50; i++ {
		m.RecordResponseTime(time.Millisecond)
	}
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()
	assert.Len(t, m.ResponseTimes, maxResponseSamples)
}

func TestMetrics_GetStatsAndReset(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.RecordExternalAPIRequest("lexical", true)
	m.RecordExternalAPIRequest("lexical", false)
	m.RecordModelReload(false)
	m.IncrementRateLimitIPBlock()
	m.IncrementRateLimitEndpoint("/api/analyze")

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.InDelta(t, 50.0, stats["error_rate_percent"].(float64), 1e-9)
	assert.InDelta(t, 50.0, stats["cache_hit_rate_percent"].(float64), 1e-9)
	assert.Contains(t, stats, "go_heap_alloc_bytes")

	api := stats["external_api_stats"].(map[string]interface{})["lexical"].(map[string]interface{})
	assert.Equal(t, int64(2), api["requests"])
	assert.InDelta(t, 50.0, api["error_rate"].(float64), 1e-9)

	rl := stats["rate_limit"].(map[string]interface{})
	assert.Equal(t, int64(1), rl["ip_blocks"])
	assert.Equal(t, map[string]int64{"/api/analyze": 1}, rl["endpoint_blocks"])

	assessments := stats["assessments"].(map[string]interface{})
	assert.Equal(t, int64(1), assessments["model_reload_failures"])

	m.Reset()
	stats = m.GetStats()
	assert.Equal(t, int64(0), stats["total_requests"])
	assert.Empty(t, m.GetExternalAPIStats())
	assert.Empty(t, m.GetStatusCodeDistribution())
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementRequest()
				m.RecordRequestByStatus(http.StatusOK)
				m.RecordAssessment("Low", true, true, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1600), m.RequestCount)
	assert.Equal(t, int64(1600), m.GetStatusCodeDistribution()[http.StatusOK])
	assert.Equal(t, int64(1600), m.GetAssessmentStats()["total"])
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewCLILogger(&buf, slog.LevelInfo)
	metrics := NewMetrics()

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(MonitoringMiddleware(metrics, logger))
	router.Use(SecurityMonitoringMiddleware(logger))
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})
	router.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	t.Run("assigns a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		assert.Contains(t, w.Body.String(), w.Header().Get(RequestIDHeader))
	})

	t.Run("propagates a request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("counts errors", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, int64(1), metrics.ErrorCount)
		assert.Equal(t, int64(1), metrics.GetStatusCodeDistribution()[http.StatusInternalServerError])
	})

	t.Run("flags suspicious user agents", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("User-Agent", "SQLMap/1.7")
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Contains(t, buf.String(), "suspicious_user_agent")
	})
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsSQLInjectionPatterns("id=1 UNION SELECT password"))
	assert.False(t, containsSQLInjectionPatterns("subject=abc"))
	assert.True(t, containsSuspiciousUserAgent("Mozilla nikto scanner"))
	assert.False(t, containsSuspiciousUserAgent(strings.Repeat("a", 64)))
}
