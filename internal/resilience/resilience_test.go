package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_Transitions(t *testing.T) {
	var transitions []string
	now := time.Unix(1000, 0)

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  10 * time.Second,
		SuccessThreshold: 2,
		OnStateChange: func(from, to CircuitBreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return now }

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, cb.Call(ok), &cbErr)
	assert.Equal(t, StateOpen, cbErr.State)

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateHalfOpen, cb.State())

	// a failed probe reopens
	assert.ErrorIs(t, cb.Call(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Call(ok))
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())

	assert.Equal(t, []string{
		"closed->open",
		"open->half_open",
		"half_open->open",
		"open->half_open",
		"half_open->closed",
	}, transitions)
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 30*time.Second, cb.config.RecoveryTimeout)
	assert.Equal(t, 3, cb.config.SuccessThreshold)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = cb.Call(func() error {
					if j%2 == 0 {
						return errBoom
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerRegistry(t *testing.T) {
	r := NewCircuitBreakerRegistry()
	a := r.GetOrCreate("lexical", CircuitBreakerConfig{FailureThreshold: 1})
	b := r.GetOrCreate("lexical", CircuitBreakerConfig{})
	assert.Same(t, a, b)

	_ = a.Call(func() error { return errBoom })
	stats := r.GetStats()["lexical"].(map[string]interface{})
	assert.Equal(t, "open", stats["state"])

	r.ResetAll()
	got, ok := r.Get("lexical")
	require.True(t, ok)
	assert.Equal(t, StateClosed, got.State())
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetryWithConfig(t *testing.T) {
	t.Run("retries retryable errors until success", func(t *testing.T) {
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetry(3), func() error {
			calls++
			if calls < 3 {
				return NewHTTPError(http.StatusServiceUnavailable, "503 Service Unavailable")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable status", func(t *testing.T) {
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetry(3), func() error {
			calls++
			return NewHTTPError(http.StatusUnauthorized, "401 Unauthorized")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns last error after max attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetry(3), func() error {
			calls++
			return apperrors.NewNetworkError("connection refused", errBoom)
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("open circuit is not retried", func(t *testing.T) {
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetry(3), func() error {
			calls++
			return NewCircuitBreakerError("circuit breaker is open", StateOpen)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithConfig(ctx, fastRetry(3), func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero attempts still calls once", func(t *testing.T) {
		calls := 0
		_ = RetryWithConfig(context.Background(), RetryConfig{}, func() error {
			calls++
			return nil
		})
		assert.Equal(t, 1, calls)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"429", NewHTTPError(http.StatusTooManyRequests, "429"), true},
		{"502 wrapped", fmt.Errorf("call: %w", NewHTTPError(http.StatusBadGateway, "502")), true},
		{"400", NewHTTPError(http.StatusBadRequest, "400"), false},
		{"timeout", apperrors.NewTimeoutError("slow", nil), true},
		{"validation", apperrors.NewValidationError("bad"), false},
		{"cancelled", context.Canceled, false},
		{"open circuit", NewCircuitBreakerError("open", StateOpen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(config, 2))
	assert.Equal(t, time.Second, calculateDelay(config, 10))

	config.JitterEnabled = true
	d := calculateDelay(config, 0)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.Less(t, d, 110*time.Millisecond)

	config.InitialDelay = 0
	assert.Equal(t, time.Duration(0), calculateDelay(config, 0))
}

func TestDegradationManager_ErrorRates(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig(), nil)
	dm.RegisterService(ServiceLexicalAPI, nil)

	for i := 0; i < 9; i++ {
		dm.RecordRequest(ServiceLexicalAPI, true)
	}
	dm.RecordError(ServiceLexicalAPI, errBoom)

	health, ok := dm.GetServiceHealth(ServiceLexicalAPI)
	require.True(t, ok)
	assert.Equal(t, LevelDegraded, health.Level)
	assert.InDelta(t, 0.1, health.ErrorRate, 1e-9)
	assert.Equal(t, "boom", health.LastError)
	assert.NotNil(t, health.DegradedSince)

	for i := 0; i < 10; i++ {
		dm.RecordRequest(ServiceLexicalAPI, false)
	}
	assert.False(t, dm.IsServiceAvailable(ServiceLexicalAPI))
	assert.Equal(t, LevelEmergency, dm.OverallLevel())

	dm.ResetService(ServiceLexicalAPI)
	assert.True(t, dm.IsServiceAvailable(ServiceLexicalAPI))
	assert.False(t, dm.IsServiceAvailable("unknown"))
}

func TestDegradationManager_Pinned(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig(), nil)
	dm.RegisterService(ServiceRiskModel, nil)
	dm.RegisterService(ServiceBaselines, nil)

	dm.MarkUnavailable(ServiceRiskModel, errBoom)
	dm.RecordRequest(ServiceRiskModel, true)

	health, _ := dm.GetServiceHealth(ServiceRiskModel)
	assert.Equal(t, LevelEmergency, health.Level)
	assert.Equal(t, LevelEmergency, dm.OverallLevel())

	all := dm.GetAllServiceHealth()
	assert.Len(t, all, 2)
	assert.Equal(t, LevelNormal, all[ServiceBaselines].Level)

	dm.MarkHealthy(ServiceRiskModel)
	assert.Equal(t, LevelNormal, dm.OverallLevel())
}

func TestDegradationManager_HealthChecks(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig(), nil)

	var mu sync.Mutex
	healthy := false
	dm.RegisterService(ServiceRiskModel, func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if !healthy {
			return errBoom
		}
		return nil
	})

	dm.performHealthChecks(context.Background())
	assert.False(t, dm.IsServiceAvailable(ServiceRiskModel))

	mu.Lock()
	healthy = true
	mu.Unlock()

	dm.performHealthChecks(context.Background())
	assert.True(t, dm.IsServiceAvailable(ServiceRiskModel))
}

func TestDegradationLevel_MarshalText(t *testing.T) {
	b, err := LevelCritical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "critical", string(b))
}

func TestNewPooledClient(t *testing.T) {
	client := NewPooledClient(PoolConfig{MaxIdle: 1, MaxActive: 2, IdleTimeout: time.Second, RequestTimeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 1, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 2, transport.MaxConnsPerHost)
}
