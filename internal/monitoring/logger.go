package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Logger provides enhanced structured logging with context
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// NewLogger creates a JSON logger on stdout at the given level
func NewLogger(level slog.Level) *Logger {
	return newLogger(os.Stdout, level, true)
}

// NewCLILogger creates a compact text logger for command-line tools
func NewCLILogger(w io.Writer, level slog.Level) *Logger {
	return newLogger(w, level, false)
}

func newLogger(w io.Writer, level slog.Level, structured bool) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level)

	var handler slog.Handler
	if structured {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     lv,
			AddSource: true,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Add timestamp in RFC3339 format
				if a.Key == slog.TimeKey {
					return slog.Attr{
						Key:   "timestamp",
						Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
					}
				}
				return a
			},
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	}

	return &Logger{Logger: slog.New(handler), level: lv}
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the logging level in place
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AssessmentLogger logs the outcome of one risk assessment. Feature values are
// never logged at info level.
func (l *Logger) AssessmentLogger(sessionID, level string, acousticScore float64, modelUsed bool, reasons []string, duration time.Duration) {
	l.Info("Assessment Completed",
		"session_id", sessionID,
		"neuro_risk_level", level,
		"acoustic_risk_score", acousticScore,
		"model_used", modelUsed,
		"degradation_reasons", reasons,
		"duration_us", duration.Microseconds(),
	)
}

// ModelLogger logs artifact load and reload outcomes
func (l *Logger) ModelLogger(event, path, state string, err error) {
	if err != nil {
		l.Error("Model Event",
			"event", event,
			"path", path,
			"state", state,
			"error", err.Error(),
		)
		return
	}

	l.Info("Model Event",
		"event", event,
		"path", path,
		"state", state,
	)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}

// ExternalAPILogger logs external API calls
func (l *Logger) ExternalAPILogger(apiName, method, endpoint string, statusCode int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "External API Call",
		"api_name", apiName,
		"method", method,
		"endpoint", endpoint,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_prefix", key,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}

	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Warn("Performance Metric",
		"metric", metric,
		"value", strconv.FormatFloat(value, 'f', 3, 64),
		"unit", unit,
	)
}

var startTime = time.Now()
