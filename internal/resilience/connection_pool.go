package resilience

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig sizes the shared transport used for outbound API calls
type PoolConfig struct {
	MaxIdle        int           `json:"max_idle" yaml:"max_idle"`
	MaxActive      int           `json:"max_active" yaml:"max_active"`
	IdleTimeout    time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultPoolConfig returns defaults sized for a single upstream host
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdle:        10,
		MaxActive:      20,
		IdleTimeout:    90 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// NewPooledTransport creates a keep-alive transport with bounded connections
func NewPooledTransport(config PoolConfig) *http.Transport {
	perHost := config.MaxIdle / 2
	if perHost < 1 {
		perHost = 1
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdle,
		MaxConnsPerHost:       config.MaxActive,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewPooledClient creates an HTTP client over a pooled transport
func NewPooledClient(config PoolConfig) *http.Client {
	return &http.Client{
		Transport: NewPooledTransport(config),
		Timeout:   config.RequestTimeout,
	}
}
