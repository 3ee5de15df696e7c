// Package logging writes one structured log entry per request.
package logging

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/lazycounter/pkg/middleware/requestid"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// Log field name constants
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled bool
	// ExcludedPathPrefixes disables logging for probe and scrape paths.
	ExcludedPathPrefixes []string
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		ExcludedPathPrefixes: []string{},
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) gin.HandlerFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware. 5xx responses are logged at
// error level, 4xx at warn, everything else at info.
func WithConfig(log logger.Logger, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !cfg.enabledFor(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			FieldRequestID, requestid.GetRequestID(c.Request.Context()),
			FieldMethod, c.Request.Method,
			FieldPath, path,
			FieldStatus, status,
			FieldDurationMS, time.Since(start).Milliseconds(),
			FieldRemoteAddr, c.ClientIP(),
			FieldUserAgent, c.Request.UserAgent(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, FieldError, errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

func (cfg Config) enabledFor(path string) bool {
	if !cfg.Enabled {
		return false
	}
	for _, prefix := range cfg.ExcludedPathPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
