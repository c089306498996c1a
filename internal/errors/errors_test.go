package errors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
		message  string
	}{
		{
			name:     "validation",
			err:      NewValidationError("features are required", "features"),
			category: CategoryValidation,
			status:   http.StatusBadRequest,
			message:  "[VALIDATION_ERROR] features are required",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("baseline", "subject-1"),
			category: CategoryNotFound,
			status:   http.StatusNotFound,
			message:  "[NOT_FOUND] baseline not found",
		},
		{
			name:     "network",
			err:      NewNetworkError("connection failed", fmt.Errorf("connection refused")),
			category: CategoryNetwork,
			status:   http.StatusBadGateway,
			message:  "[NETWORK_ERROR] connection failed",
		},
		{
			name:     "external api",
			err:      NewExternalAPIError("lexical", nil),
			category: CategoryExternalAPI,
			status:   http.StatusBadGateway,
			message:  "[EXTERNAL_API_ERROR] lexical API error",
		},
		{
			name:     "configuration",
			err:      NewConfigurationError("port must not be empty", nil),
			category: CategoryConfiguration,
			status:   http.StatusInternalServerError,
			message:  "[CONFIGURATION_ERROR] Configuration error",
		},
		{
			name:     "model",
			err:      NewModelError("/models/risk.json", fmt.Errorf("unexpected EOF")),
			category: CategoryModel,
			status:   http.StatusServiceUnavailable,
			message:  "[MODEL_ERROR] Risk model unavailable",
		},
		{
			name:     "rate limit",
			err:      NewRateLimitError("60s"),
			category: CategoryRateLimit,
			status:   http.StatusTooManyRequests,
			message:  "[RATE_LIMIT_EXCEEDED] Rate limit exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := NewModelError("risk.json", cause)

	assert.ErrorIs(t, err, cause)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
	}{
		{"nil stays nil", nil, ""},
		{"app error passes through", NewNotFoundError("baseline", "x"), CategoryNotFound},
		{"errbuilder error is internal", errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("boom"), CategoryInternal},
		{"connection refused is network", fmt.Errorf("dial tcp: connection refused"), CategoryNetwork},
		{"timeout text is timeout", fmt.Errorf("i/o timeout"), CategoryTimeout},
		{"context canceled is timeout", context.Canceled, CategoryTimeout},
		{"anything else is internal", fmt.Errorf("standard error"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAppError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewNetworkError("down", nil)))
	assert.True(t, IsRetryableError(NewTimeoutError("slow", nil)))
	assert.True(t, IsRetryableError(NewExternalAPIError("lexical", nil)))
	assert.False(t, IsRetryableError(NewValidationError("bad")))
	assert.False(t, IsRetryableError(NewModelError("m.json", nil)))

	assert.Greater(t, GetRetryDelay(NewNetworkError("down", nil), 1), GetRetryDelay(NewValidationError("bad"), 1))
}

func TestValidationErrorWithMap(t *testing.T) {
	err := NewValidationErrorWithMap(map[string]string{
		"jitter_percent": "must be a number",
		"pause_ratio":    "must be a number",
	})

	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "Multiple validation errors", err.Msg)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/missing", func(c *gin.Context) {
		_ = c.Error(NewNotFoundError("baseline", "abc"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"not_found"`)
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/panic", func(c *gin.Context) {
		panic("inference exploded")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"internal"`)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	base := fmt.Errorf("disk full")
	wrapped := WrapError(base, "store baseline %s", "s1")
	assert.EqualError(t, wrapped, "store baseline s1: disk full")
	assert.ErrorIs(t, wrapped, base)
}
