package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/model"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/resilience"
	"github.com/ZanzyTHEbar/cognitive-echo/internal/types"
)

func getHealth(t *testing.T, r http.Handler) types.HealthResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint_Integration(t *testing.T) {
	tests := []struct {
		name          string
		ready         bool
		setup         func(dm *resilience.DegradationManager)
		expectedState string
		expectedLevel string
		modelState    string
	}{
		{
			name:          "all services healthy",
			ready:         true,
			expectedState: "ok",
			expectedLevel: "normal",
			modelState:    "ready",
		},
		{
			name:  "model not loaded",
			ready: false,
			setup: func(dm *resilience.DegradationManager) {
				dm.MarkUnavailable(resilience.ServiceRiskModel, errors.New("no model path configured"))
			},
			expectedState: "degraded",
			expectedLevel: "emergency",
			modelState:    "unavailable",
		},
		{
			name:  "baseline store failing",
			ready: true,
			setup: func(dm *resilience.DegradationManager) {
				dm.RecordRequest(resilience.ServiceBaselines, true)
				dm.RecordError(resilience.ServiceBaselines, errors.New("database is locked"))
			},
			expectedState: "degraded",
			expectedLevel: "emergency",
			modelState:    "ready",
		},
		{
			name:  "recovered service",
			ready: true,
			setup: func(dm *resilience.DegradationManager) {
				dm.MarkUnavailable(resilience.ServiceLexicalAPI, errors.New("circuit open"))
				dm.MarkHealthy(resilience.ServiceLexicalAPI)
			},
			expectedState: "ok",
			expectedLevel: "normal",
			modelState:    "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testServerOptions{}
			if tt.ready {
				opts.model = readyModel(t)
			}
			s := newTestServer(t, opts)
			if tt.setup != nil {
				tt.setup(s.degradation)
			}

			resp := getHealth(t, s.routes())

			assert.Equal(t, tt.expectedState, resp.Status)
			assert.Equal(t, tt.expectedLevel, resp.Level)
			assert.Equal(t, tt.modelState, resp.Model.State)
			assert.Len(t, resp.Services, 3)
			assert.NotEmpty(t, resp.Uptime)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestHealthEndpoint_ServiceDetail(t *testing.T) {
	s := newTestServer(t, testServerOptions{})
	s.degradation.MarkUnavailable(resilience.ServiceRiskModel, errors.New("artifact missing"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	s.routes().ServeHTTP(w, req)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))

	services := raw["services"].(map[string]interface{})
	riskModel := services[resilience.ServiceRiskModel].(map[string]interface{})
	assert.Equal(t, "emergency", riskModel["level"])
	assert.Equal(t, "artifact missing", riskModel["last_error"])
}

func TestHealthEndpoint_ContentType(t *testing.T) {
	r := newTestServer(t, testServerOptions{}).routes()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestHealthEndpoint_ConcurrentRequests(t *testing.T) {
	r := newTestServer(t, testServerOptions{}).routes()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
}

func TestHealthEndpoint_WithQueryParameters(t *testing.T) {
	r := newTestServer(t, testServerOptions{}).routes()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health?param=value&another=test", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestModelHealthCheck(t *testing.T) {
	t.Run("ready model passes", func(t *testing.T) {
		check := modelHealthCheck(readyModel(t))
		assert.NoError(t, check(context.Background()))
	})

	t.Run("unavailable model reports its load error", func(t *testing.T) {
		check := modelHealthCheck(model.Load("", nil))
		err := check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unavailable")
	})

	t.Run("unloaded model fails", func(t *testing.T) {
		check := modelHealthCheck(model.New(nil))
		assert.EqualError(t, check(context.Background()), "risk model unloaded")
	})

	t.Run("health check drives degradation", func(t *testing.T) {
		s := newTestServer(t, testServerOptions{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s.degradation.StartHealthChecks(ctx)

		health, ok := s.degradation.GetServiceHealth(resilience.ServiceRiskModel)
		require.True(t, ok)
		assert.NotEqual(t, resilience.LevelNormal, health.Level)
	})
}
