package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

// Service names registered by the server
const (
	ServiceRiskModel  = "risk-model"
	ServiceLexicalAPI = "lexical-api"
	ServiceBaselines  = "baseline-store"
	ServiceRedis      = "redis"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name
func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DegradationConfig holds configuration for graceful degradation
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold" yaml:"degraded_threshold"`       // Error rate threshold (0.0-1.0)
	CriticalThreshold   float64       `json:"critical_threshold" yaml:"critical_threshold"`       // Error rate threshold (0.0-1.0)
	EmergencyThreshold  float64       `json:"emergency_threshold" yaml:"emergency_threshold"`     // Error rate threshold (0.0-1.0)
	HealthCheckTimeout  time.Duration `json:"health_check_timeout" yaml:"health_check_timeout"`   // Timeout for health checks
	MaxDegradedDuration time.Duration `json:"max_degraded_duration" yaml:"max_degraded_duration"` // Max time in degraded state before emergency
	MinRequests         int64         `json:"min_requests" yaml:"min_requests"`                   // Requests required before the error rate counts
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,  // 10% error rate
		CriticalThreshold:   0.25, // 25% error rate
		EmergencyThreshold:  0.5,  // 50% error rate
		HealthCheckTimeout:  5 * time.Second,
		MaxDegradedDuration: 10 * time.Minute,
		MinRequests:         1,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`

	// pinned levels come from MarkUnavailable and ignore the error rate
	pinned bool
}

// DegradationManager manages graceful degradation for multiple services
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
	logger       *slog.Logger
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig, logger *slog.Logger) *DegradationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
		logger:       logger,
	}
}

// RegisterService registers a service with its health check function
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}

	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	dm.logger.Info("Registered service for degradation management", "service", serviceName)
}

// RecordRequest records a request and its success/failure
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	if !success {
		dm.RecordError(serviceName, errors.NewInternalError("Service request failed", nil))
		return
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)
	dm.updateDegradationLevel(service)
}

// RecordError records an error for a service
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	service.TotalRequests++
	service.ErrorCount++
	if err != nil {
		service.LastError = err.Error()
	}
	service.LastErrorTime = time.Now()
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateDegradationLevel(service)
}

// MarkUnavailable pins a service at emergency level until MarkHealthy. Used for
// dependencies that fail permanently, such as a model artifact that did not load.
func (dm *DegradationManager) MarkUnavailable(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	old := service.Level
	service.pinned = true
	service.Level = LevelEmergency
	service.StatusMessage = "Service is unavailable"
	if err != nil {
		service.LastError = err.Error()
	}
	service.LastErrorTime = time.Now()
	dm.logTransition(service, old)
}

// MarkHealthy clears a pinned level and the error history of a service
func (dm *DegradationManager) MarkHealthy(serviceName string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	old := service.Level
	*service = ServiceHealth{
		ServiceName:   service.ServiceName,
		Level:         LevelNormal,
		StatusMessage: "Service is healthy",
	}
	dm.logTransition(service, old)
}

// updateDegradationLevel updates the degradation level based on current metrics
func (dm *DegradationManager) updateDegradationLevel(service *ServiceHealth) {
	if service.pinned {
		return
	}

	oldLevel := service.Level
	now := time.Now()

	var newLevel DegradationLevel
	var statusMessage string

	switch {
	case service.TotalRequests < dm.config.MinRequests:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel = LevelEmergency
		statusMessage = "Service is in emergency state - high error rate"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		newLevel = LevelCritical
		statusMessage = "Service is in critical state - elevated error rate"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		newLevel = LevelDegraded
		statusMessage = "Service is degraded - moderate error rate"
	default:
		newLevel = LevelNormal
		statusMessage = "Service is healthy"
	}

	// Handle degraded duration timeout
	if newLevel == LevelDegraded && service.DegradedSince != nil {
		if now.Sub(*service.DegradedSince) > dm.config.MaxDegradedDuration {
			newLevel = LevelEmergency
			statusMessage = "Service has been degraded too long - entering emergency state"
		}
	}

	if newLevel == LevelDegraded && oldLevel != LevelDegraded {
		service.DegradedSince = &now
	} else if newLevel != LevelDegraded {
		service.DegradedSince = nil
	}

	service.Level = newLevel
	service.StatusMessage = statusMessage
	dm.logTransition(service, oldLevel)
}

func (dm *DegradationManager) logTransition(service *ServiceHealth, oldLevel DegradationLevel) {
	if oldLevel == service.Level {
		return
	}
	dm.logger.Warn("Service degradation level changed",
		"service", service.ServiceName,
		"old_level", oldLevel.String(),
		"new_level", service.Level.String(),
		"error_rate", service.ErrorRate,
		"total_requests", service.TotalRequests,
		"error_count", service.ErrorCount)
}

// GetServiceHealth returns the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (*ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return nil, false
	}

	// Return a copy to prevent external modification
	health := *service
	return &health, true
}

// GetAllServiceHealth returns health status for all services
func (dm *DegradationManager) GetAllServiceHealth() map[string]*ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make(map[string]*ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		health := *service
		result[name] = &health
	}

	return result
}

// OverallLevel returns the worst level across all registered services
func (dm *DegradationManager) OverallLevel() DegradationLevel {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	worst := LevelNormal
	for _, service := range dm.services {
		if service.Level > worst {
			worst = service.Level
		}
	}
	return worst
}

// IsServiceAvailable checks if a service is available for use
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}

	// Service is unavailable only in emergency state
	return service.Level != LevelEmergency
}

// StartHealthChecks runs every check once, then periodically until ctx is done
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	dm.performHealthChecks(ctx)

	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

// performHealthChecks runs every registered check once and waits for them
func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for serviceName, healthCheck := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.MarkUnavailable(name, errors.WrapError(err, "health check failed for service %s", name))
				return
			}

			dm.mutex.RLock()
			service, ok := dm.services[name]
			pinned := ok && service.pinned
			dm.mutex.RUnlock()
			if pinned {
				dm.MarkHealthy(name)
			}
		}(serviceName, healthCheck)
	}
	wg.Wait()
}

// ResetService resets a service's health status
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.MarkHealthy(serviceName)
	dm.logger.Info("Service health reset", "service", serviceName)
}

// GracefulShutdown logs the final status of every service
func (dm *DegradationManager) GracefulShutdown() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	dm.logger.Info("Degradation manager shutting down", "services", len(dm.services))

	for name, service := range dm.services {
		dm.logger.Info("Final service status",
			"service", name,
			"level", service.Level.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}
