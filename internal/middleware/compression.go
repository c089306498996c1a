package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	Level        int      // gzip level, 1 (fastest) to 9 (best)
	ContentTypes []string // media types eligible for compression
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"application/javascript",
		},
	}
}

// Compression gzips eligible responses for clients that accept it
type Compression struct {
	config CompressionConfig
	pool   sync.Pool

	compressed int64
	skipped    int64
}

// NewCompression creates a new compression middleware
func NewCompression(config CompressionConfig) *Compression {
	if config.Level < gzip.DefaultCompression || config.Level > gzip.BestCompression {
		config.Level = gzip.DefaultCompression
	}

	c := &Compression{config: config}
	c.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(nil, config.Level)
		return gz
	}
	return c
}

// Handler returns the Gin middleware
func (cm *Compression) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !acceptsGzip(c.GetHeader("Accept-Encoding")) {
			c.Next()
			return
		}

		w := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = w
		defer w.close()

		c.Next()
	}
}

// Stats reports how many responses were compressed or passed through
func (cm *Compression) Stats() map[string]interface{} {
	return map[string]interface{}{
		"compressed": atomic.LoadInt64(&cm.compressed),
		"skipped":    atomic.LoadInt64(&cm.skipped),
		"level":      cm.config.Level,
	}
}

func (cm *Compression) compressible(contentType string) bool {
	mediaType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	for _, t := range cm.config.ContentTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		if strings.EqualFold(fields[0], "gzip") {
			return len(fields) < 2 || strings.TrimSpace(fields[1]) != "q=0"
		}
	}
	return false
}

// gzipResponseWriter decides on the first body write, once the handler has
// set the status and content type.
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm      *Compression
	gz      *gzip.Writer
	decided bool
}

func (w *gzipResponseWriter) decide() {
	w.decided = true

	h := w.Header()
	status := w.Status()
	if h.Get("Content-Encoding") != "" || status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified ||
		!w.cm.compressible(h.Get("Content-Type")) {
		atomic.AddInt64(&w.cm.skipped, 1)
		return
	}

	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	gz := w.cm.pool.Get().(*gzip.Writer)
	gz.Reset(w.ResponseWriter)
	w.gz = gz
	atomic.AddInt64(&w.cm.compressed, 1)
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	if !w.decided {
		w.decide()
	}
	if w.gz == nil {
		return w.ResponseWriter.Write(data)
	}
	return w.gz.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipResponseWriter) close() {
	if w.gz == nil {
		return
	}
	_ = w.gz.Close()
	w.gz.Reset(io.Discard)
	w.cm.pool.Put(w.gz)
	w.gz = nil
}
