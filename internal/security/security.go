package security

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/cognitive-echo/internal/errors"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxBodyBytes        int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
	MaxTranscriptLength int           `json:"max_transcript_length" yaml:"max_transcript_length"`
	AllowedOrigins      []string      `json:"allowed_origins" yaml:"allowed_origins"`
	TrustedProxies      []string      `json:"trusted_proxies" yaml:"trusted_proxies"`
	RequestTimeout      time.Duration `json:"request_timeout" yaml:"request_timeout"`
	EnableHSTS          bool          `json:"enable_hsts" yaml:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxBodyBytes:        256 << 10,
		MaxTranscriptLength: 20000,
		AllowedOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies:      []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout:      30 * time.Second,
	}
}

// SecurityMiddleware provides request hardening middleware
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// Config returns the active configuration
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeTranscript strips markup and control characters from a transcript,
// collapses whitespace and truncates it to the configured length on a rune
// boundary.
func (sm *SecurityMiddleware) SanitizeTranscript(input string) string {
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}

	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	input = strings.TrimSpace(whitespacePattern.ReplaceAllString(input, " "))

	if max := sm.config.MaxTranscriptLength; max > 0 && utf8.RuneCountInString(input) > max {
		runes := []rune(input)
		input = strings.TrimSpace(string(runes[:max]))
	}

	return input
}

// ValidateContentType rejects request bodies that are not JSON
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.ContentLength == 0 || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		sm.abort(c, http.StatusUnsupportedMediaType,
			apperrors.NewValidationError("unsupported content type, expected application/json"))
		return
	}

	c.Next()
}

// BodyLimit caps the request body at MaxBodyBytes
func (sm *SecurityMiddleware) BodyLimit(c *gin.Context) {
	if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		if c.Request.ContentLength > sm.config.MaxBodyBytes {
			sm.abort(c, http.StatusRequestEntityTooLarge,
				apperrors.NewValidationError("request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds the request context so downstream calls are cancelled
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	if sm.config.RequestTimeout <= 0 {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// CORSConfig builds the CORS middleware for the configured origins
func (sm *SecurityMiddleware) CORSConfig() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(sm.config.AllowedOrigins) == 1 && sm.config.AllowedOrigins[0] == "*" {
		config.AllowAllOrigins = true
		config.AllowCredentials = false
	} else {
		config.AllowOrigins = sm.config.AllowedOrigins
	}

	return cors.New(config)
}

func (sm *SecurityMiddleware) abort(c *gin.Context, status int, appErr *apperrors.AppError) {
	resp := appErr.Response()
	resp.RequestID = c.GetHeader("X-Request-ID")
	c.AbortWithStatusJSON(status, resp)
}
